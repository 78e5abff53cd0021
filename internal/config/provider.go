package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider abstracts where routing configuration lives. The daemon core
// only ever sees loaded Config values and change notifications.
type Provider interface {
	// Load returns the current configuration.
	Load() (*Config, error)

	// Save persists the configuration.
	Save(cfg *Config) error

	// Watch invokes fn with the new configuration whenever the stored
	// configuration changes. Blocks until ctx is cancelled.
	Watch(ctx context.Context, fn func(*Config)) error
}

// FileProvider stores configuration in a YAML file and detects changes
// by polling the file's modification time.
type FileProvider struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	lastMod time.Time
}

// NewFileProvider creates a provider backed by the file at path.
func NewFileProvider(path string, interval time.Duration, logger *slog.Logger) *FileProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &FileProvider{
		path:     path,
		interval: interval,
		logger:   logger,
	}
}

// Load reads, defaults, and validates the config file.
func (p *FileProvider) Load() (*Config, error) {
	cfg, err := LoadAndValidate(p.path)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(p.path); err == nil {
		p.mu.Lock()
		p.lastMod = info.ModTime()
		p.mu.Unlock()
	}

	return cfg, nil
}

// Save writes the config atomically (temp file + rename).
func (p *FileProvider) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".relayd-config-*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace config file: %w", err)
	}

	if info, err := os.Stat(p.path); err == nil {
		p.mu.Lock()
		p.lastMod = info.ModTime()
		p.mu.Unlock()
	}

	return nil
}

// Watch polls the file's mtime and reloads on change. A reload that
// fails validation is logged and skipped; the previous config stays live.
func (p *FileProvider) Watch(ctx context.Context, fn func(*Config)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			info, err := os.Stat(p.path)
			if err != nil {
				p.logger.Warn("config stat failed", "path", p.path, "error", err)
				continue
			}

			p.mu.Lock()
			changed := info.ModTime().After(p.lastMod)
			p.mu.Unlock()

			if !changed {
				continue
			}

			cfg, err := LoadAndValidate(p.path)
			if err != nil {
				p.logger.Warn("config reload failed, keeping previous", "error", err)
				continue
			}

			p.mu.Lock()
			p.lastMod = info.ModTime()
			p.mu.Unlock()

			p.logger.Info("configuration reloaded",
				"routes", len(cfg.Routing.Routes),
				"auto_routing", cfg.Routing.AutoRouting,
			)
			fn(cfg)
		}
	}
}
