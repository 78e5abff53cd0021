package routing

import (
	"testing"

	"pointer-relay/internal/config"
)

func testConfig(autoRouting bool, rules ...config.Rule) *config.RoutingConfig {
	return &config.RoutingConfig{
		Enabled:     true,
		AutoRouting: autoRouting,
		DefaultEndpoint: config.EndpointConfig{
			Host: "d",
			Port: 7007,
		},
		Routes: rules,
	}
}

func TestResolver_AutoRoutingOff(t *testing.T) {
	r := NewResolver()

	// Rules are ignored entirely when auto-routing is off.
	cfg := testConfig(false, rule("r1", "22002", config.PatternPort, 7022, true))

	got := r.Resolve("https://10.0.0.5:22002/x", cfg)

	if got.Host != "10.0.0.5" {
		t.Errorf("Host = %q, want %q", got.Host, "10.0.0.5")
	}
	if got.Port != 7007 {
		t.Errorf("Port = %d, want default 7007", got.Port)
	}
	if got.Rule != nil {
		t.Errorf("Rule = %q, want nil", got.Rule.ID)
	}
}

func TestResolver_AutoRoutingMatch(t *testing.T) {
	r := NewResolver()
	cfg := testConfig(true, rule("r1", "22002", config.PatternPort, 7022, true))

	got := r.Resolve("https://10.0.0.5:22002/x", cfg)

	if got.Host != "10.0.0.5" {
		t.Errorf("Host = %q, want %q", got.Host, "10.0.0.5")
	}
	if got.Port != 7022 {
		t.Errorf("Port = %d, want rule port 7022", got.Port)
	}
	if got.Rule == nil || got.Rule.ID != "r1" {
		t.Errorf("Rule = %v, want r1", got.Rule)
	}
}

func TestResolver_NoMatchFallsBackToDefault(t *testing.T) {
	r := NewResolver()
	cfg := testConfig(true, rule("r1", "22002", config.PatternPort, 7022, true))

	got := r.Resolve("https://app.example.com/", cfg)

	if got.Host != "app.example.com" {
		t.Errorf("Host = %q, want %q", got.Host, "app.example.com")
	}
	if got.Port != 7007 {
		t.Errorf("Port = %d, want default 7007", got.Port)
	}
	if got.Rule != nil {
		t.Errorf("Rule = %q, want nil", got.Rule.ID)
	}
}

func TestResolver_UnparseableURLUsesDefaultHost(t *testing.T) {
	r := NewResolver()
	cfg := testConfig(true)

	tests := []string{
		"://missing-scheme",
		"not a url",
		"",
	}

	for _, url := range tests {
		got := r.Resolve(url, cfg)
		if got.Host != "d" {
			t.Errorf("Resolve(%q).Host = %q, want default %q", url, got.Host, "d")
		}
		if got.Port != 7007 {
			t.Errorf("Resolve(%q).Port = %d, want 7007", url, got.Port)
		}
	}
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver()
	cfg := testConfig(true, rule("r1", "staging", config.PatternContains, 7010, true))

	url := "https://staging.example.com/app"
	first := r.Resolve(url, cfg)
	second := r.Resolve(url, cfg)

	if first.Host != second.Host || first.Port != second.Port {
		t.Errorf("Resolve not stable: %+v then %+v", first, second)
	}
	if (first.Rule == nil) != (second.Rule == nil) {
		t.Errorf("Rule presence not stable")
	}
}
