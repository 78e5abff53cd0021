package config

import "time"

// Config is the root configuration for a relay daemon instance.
type Config struct {
	Ingress    IngressConfig    `yaml:"ingress"`
	Routing    RoutingConfig    `yaml:"routing"`
	Connection ConnectionConfig `yaml:"connection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// IngressConfig holds the local capture ingress settings.
type IngressConfig struct {
	Addr string `yaml:"addr"`
}

// RoutingConfig holds the routing table and its global switches.
type RoutingConfig struct {
	// Enabled is the daemon-wide kill switch. When false every dispatch
	// is rejected before any routing or connection work happens.
	Enabled bool `yaml:"enabled"`

	// AutoRouting selects between rule matching (true) and always using
	// the default endpoint port (false).
	AutoRouting bool `yaml:"auto_routing"`

	// DefaultEndpoint is used when auto-routing is off or no rule matches.
	DefaultEndpoint EndpointConfig `yaml:"default_endpoint"`

	// Routes is evaluated in order; the first enabled match wins.
	Routes []Rule `yaml:"routes"`
}

// EndpointConfig is a (host, port) pair.
type EndpointConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Rule selects a target port for URLs matching its pattern.
type Rule struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	PatternType string `yaml:"pattern_type"` // "port", "contains", or "regex"
	MCPPort     int    `yaml:"mcp_port"`
	Enabled     bool   `yaml:"enabled"`
}

// ConnectionConfig holds socket lifecycle settings.
type ConnectionConfig struct {
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	IdleTimeout        time.Duration `yaml:"idle_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	ReconnectFactor    float64       `yaml:"reconnect_factor"`
	MaxRetries         int           `yaml:"max_retries"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// LoggingConfig holds log settings. Behavior outside of level selection
// is carried as data only.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ArchiveConfig holds the optional dispatch-history archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
