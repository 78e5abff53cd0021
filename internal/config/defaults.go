package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultIngressAddr        = "127.0.0.1:8765"
	DefaultHost               = "localhost"
	DefaultPort               = 7007
	DefaultConnectTimeout     = 10 * time.Second
	DefaultIdleTimeout        = 10 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 10 * time.Second
	DefaultReconnectFactor    = 1.5
	DefaultMaxRetries         = 10
	DefaultWriteTimeout       = 5 * time.Second
	DefaultPingTimeout        = 30 * time.Second
	DefaultBufferSize         = 100
	DefaultLogLevel           = "info"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 500
	DefaultFlushInterval      = 1 * time.Second
	DefaultArchiveBuffer      = 5000
)

func (c *Config) applyDefaults() {
	if c.Ingress.Addr == "" {
		c.Ingress.Addr = DefaultIngressAddr
	}

	// Routing defaults
	if c.Routing.DefaultEndpoint.Host == "" {
		c.Routing.DefaultEndpoint.Host = DefaultHost
	}
	if c.Routing.DefaultEndpoint.Port == 0 {
		c.Routing.DefaultEndpoint.Port = DefaultPort
	}
	for i := range c.Routing.Routes {
		if c.Routing.Routes[i].ID == "" {
			c.Routing.Routes[i].ID = uuid.NewString()
		}
	}

	// Connection defaults
	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Connection.IdleTimeout == 0 {
		c.Connection.IdleTimeout = DefaultIdleTimeout
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.ReconnectFactor == 0 {
		c.Connection.ReconnectFactor = DefaultReconnectFactor
	}
	if c.Connection.MaxRetries == 0 {
		c.Connection.MaxRetries = DefaultMaxRetries
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}

	// Archive defaults
	if c.Archive.Enabled {
		applyDBDefaults(&c.Archive.Database)
		if c.Archive.BatchSize == 0 {
			c.Archive.BatchSize = DefaultBatchSize
		}
		if c.Archive.FlushInterval == 0 {
			c.Archive.FlushInterval = DefaultFlushInterval
		}
		if c.Archive.BufferSize == 0 {
			c.Archive.BufferSize = DefaultArchiveBuffer
		}
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
