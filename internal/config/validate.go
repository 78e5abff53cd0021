package config

import (
	"errors"
	"fmt"
)

// Valid pattern types for routing rules.
const (
	PatternPort     = "port"
	PatternContains = "contains"
	PatternRegex    = "regex"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Ingress.Addr == "" {
		return errors.New("ingress.addr is required")
	}

	if c.Routing.DefaultEndpoint.Host == "" {
		return errors.New("routing.default_endpoint.host is required")
	}
	if c.Routing.DefaultEndpoint.Port < 1 || c.Routing.DefaultEndpoint.Port > 65535 {
		return fmt.Errorf("routing.default_endpoint.port must be between 1 and 65535, got %d",
			c.Routing.DefaultEndpoint.Port)
	}

	seen := make(map[string]bool, len(c.Routing.Routes))
	for i, rule := range c.Routing.Routes {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("routing.routes[%d]: %w", i, err)
		}
		if seen[rule.ID] {
			return fmt.Errorf("routing.routes[%d]: duplicate id %q", i, rule.ID)
		}
		seen[rule.ID] = true
	}

	if c.Connection.ReconnectFactor < 1 {
		return fmt.Errorf("connection.reconnect_factor must be >= 1, got %v",
			c.Connection.ReconnectFactor)
	}
	if c.Connection.MaxRetries < 1 {
		return errors.New("connection.max_retries must be >= 1")
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
	}

	return nil
}

func (r *Rule) validate() error {
	if r.ID == "" {
		return errors.New("id is required")
	}
	if r.Pattern == "" {
		return errors.New("pattern is required")
	}
	switch r.PatternType {
	case PatternPort, PatternContains, PatternRegex:
	default:
		return fmt.Errorf("pattern_type must be one of port, contains, regex, got %q", r.PatternType)
	}
	if r.MCPPort < 1 || r.MCPPort > 65535 {
		return fmt.Errorf("mcp_port must be between 1 and 65535, got %d", r.MCPPort)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
