package routing

import (
	"net/url"

	"pointer-relay/internal/config"
)

// Resolved is the concrete endpoint chosen for one outgoing message.
// Created fresh per message, never persisted.
type Resolved struct {
	Host string
	Port int

	// Rule is the routing rule that selected the port, or nil when the
	// default endpoint was used.
	Rule *config.Rule
}

// Resolver maps a source URL and the current routing configuration to a
// concrete endpoint. Idempotent and side-effect free; safe to call once
// per message at high frequency.
type Resolver struct {
	matcher *Matcher
}

// NewResolver creates a Resolver with its own match cache.
func NewResolver() *Resolver {
	return &Resolver{matcher: NewMatcher()}
}

// Resolve picks the endpoint for a message originating at sourceURL.
//
// The host always comes from the message's own URL when it parses
// (rules only ever select a port); the configured default host is a
// fallback for unparseable URLs.
func (r *Resolver) Resolve(sourceURL string, cfg *config.RoutingConfig) Resolved {
	host := cfg.DefaultEndpoint.Host
	if u, err := url.Parse(sourceURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	if !cfg.AutoRouting {
		return Resolved{Host: host, Port: cfg.DefaultEndpoint.Port}
	}

	if rule := r.matcher.Match(sourceURL, cfg.Routes); rule != nil {
		return Resolved{Host: host, Port: rule.MCPPort, Rule: rule}
	}

	return Resolved{Host: host, Port: cfg.DefaultEndpoint.Port}
}
