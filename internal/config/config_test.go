package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relayd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
ingress:
  addr: 127.0.0.1:9000
routing:
  enabled: true
  auto_routing: true
  default_endpoint:
    host: localhost
    port: 7007
  routes:
    - id: r1
      name: Dev box
      pattern: "22002"
      pattern_type: port
      mcp_port: 7022
      enabled: true
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Ingress.Addr != "127.0.0.1:9000" {
		t.Errorf("Ingress.Addr = %q, want %q", cfg.Ingress.Addr, "127.0.0.1:9000")
	}
	if !cfg.Routing.Enabled {
		t.Error("Routing.Enabled = false, want true")
	}
	if len(cfg.Routing.Routes) != 1 {
		t.Fatalf("len(Routes) = %d, want 1", len(cfg.Routing.Routes))
	}
	if cfg.Routing.Routes[0].PatternType != PatternPort {
		t.Errorf("Routes[0].PatternType = %q, want %q", cfg.Routing.Routes[0].PatternType, PatternPort)
	}
	if cfg.Routing.Routes[0].MCPPort != 7022 {
		t.Errorf("Routes[0].MCPPort = %d, want 7022", cfg.Routing.Routes[0].MCPPort)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_RELAY_HOST", "devhost.internal")

	yaml := `
routing:
  enabled: true
  default_endpoint:
    host: ${TEST_RELAY_HOST}
    port: 7007
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Routing.DefaultEndpoint.Host != "devhost.internal" {
		t.Errorf("DefaultEndpoint.Host = %q, want %q", cfg.Routing.DefaultEndpoint.Host, "devhost.internal")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
routing:
  enabled: true
  routes:
    - name: No ID rule
      pattern: staging
      pattern_type: contains
      mcp_port: 7010
      enabled: true
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Ingress.Addr != DefaultIngressAddr {
		t.Errorf("Ingress.Addr = %q, want default %q", cfg.Ingress.Addr, DefaultIngressAddr)
	}
	if cfg.Routing.DefaultEndpoint.Host != DefaultHost {
		t.Errorf("DefaultEndpoint.Host = %q, want default %q", cfg.Routing.DefaultEndpoint.Host, DefaultHost)
	}
	if cfg.Routing.DefaultEndpoint.Port != DefaultPort {
		t.Errorf("DefaultEndpoint.Port = %d, want default %d", cfg.Routing.DefaultEndpoint.Port, DefaultPort)
	}
	if cfg.Connection.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Connection.ConnectTimeout = %v, want default %v", cfg.Connection.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Connection.ReconnectFactor != DefaultReconnectFactor {
		t.Errorf("Connection.ReconnectFactor = %v, want default %v", cfg.Connection.ReconnectFactor, DefaultReconnectFactor)
	}
	if cfg.Connection.MaxRetries != DefaultMaxRetries {
		t.Errorf("Connection.MaxRetries = %d, want default %d", cfg.Connection.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, DefaultLogLevel)
	}

	// Rules without an id get one assigned
	if cfg.Routing.Routes[0].ID == "" {
		t.Error("Routes[0].ID is empty, want generated uuid")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "default port out of range",
			mutate:  func(c *Config) { c.Routing.DefaultEndpoint.Port = 70000 },
			wantErr: "default_endpoint.port",
		},
		{
			name:    "default host empty",
			mutate:  func(c *Config) { c.Routing.DefaultEndpoint.Host = "" },
			wantErr: "default_endpoint.host",
		},
		{
			name: "bad pattern type",
			mutate: func(c *Config) {
				c.Routing.Routes = []Rule{{ID: "r1", Pattern: "x", PatternType: "glob", MCPPort: 7000}}
			},
			wantErr: "pattern_type",
		},
		{
			name: "rule port out of range",
			mutate: func(c *Config) {
				c.Routing.Routes = []Rule{{ID: "r1", Pattern: "x", PatternType: PatternContains, MCPPort: 0}}
			},
			wantErr: "mcp_port",
		},
		{
			name: "duplicate rule id",
			mutate: func(c *Config) {
				c.Routing.Routes = []Rule{
					{ID: "r1", Pattern: "x", PatternType: PatternContains, MCPPort: 7000},
					{ID: "r1", Pattern: "y", PatternType: PatternContains, MCPPort: 7001},
				}
			},
			wantErr: "duplicate id",
		},
		{
			name:    "reconnect factor below one",
			mutate:  func(c *Config) { c.Connection.ReconnectFactor = 0.5 },
			wantErr: "reconnect_factor",
		},
		{
			name: "archive enabled without host",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Database = DBConfig{Name: "relayd", User: "relayd", MaxConns: 5}
				c.Archive.BatchSize = 100
				c.Archive.BufferSize = 100
			},
			wantErr: "archive.database.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
