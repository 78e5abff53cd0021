package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pointer-relay/internal/archive"
	"pointer-relay/internal/config"
	"pointer-relay/internal/connection"
	"pointer-relay/internal/database"
	"pointer-relay/internal/dispatch"
	"pointer-relay/internal/server"
	"pointer-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relayd.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger; replaced once config decides the level.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting relayd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	provider := config.NewFileProvider(*configPath, 2*time.Second, logger.With("component", "config"))
	cfg, err := provider.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"routes", len(cfg.Routing.Routes),
		"auto_routing", cfg.Routing.AutoRouting,
		"default_endpoint", cfg.Routing.DefaultEndpoint.Host,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional dispatch archive
	var sink dispatch.Sink
	var archiveWriter *archive.Writer
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Archive.Database.Host,
			"database", cfg.Archive.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archiveWriter = archive.NewWriter(cfg.Archive, pool, logger.With("component", "archive"))
		if err := archiveWriter.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
		sink = archiveWriter
	}

	// Connection lifecycle manager
	manager := connection.NewManager(managerConfig(cfg.Connection), logger.With("component", "connection"))
	defer manager.Close()

	// Dispatcher with its tab tracking store
	tracker := dispatch.NewTracker()
	dispatcher := dispatch.NewDispatcher(&cfg.Routing, manager, tracker, sink, logger.With("component", "dispatch"))

	// Local ingress
	ingress := server.New(cfg.Ingress.Addr, dispatcher, manager, logger.With("component", "ingress"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ingress.Run(gctx)
	})

	g.Go(func() error {
		err := provider.Watch(gctx, func(next *config.Config) {
			dispatcher.SetConfig(&next.Routing)
		})
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	logger.Info("relayd running", "ingress", cfg.Ingress.Addr)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("relayd failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down...")

	if archiveWriter != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		archiveWriter.Stop(stopCtx)
	}

	logger.Info("relayd stopped")
}

// managerConfig maps the yaml connection section onto the lifecycle
// manager's config.
func managerConfig(c config.ConnectionConfig) connection.ManagerConfig {
	return connection.ManagerConfig{
		ConnectTimeout:     c.ConnectTimeout,
		IdleTimeout:        c.IdleTimeout,
		ReconnectBaseDelay: c.ReconnectBaseDelay,
		ReconnectMaxDelay:  c.ReconnectMaxDelay,
		ReconnectFactor:    c.ReconnectFactor,
		MaxRetries:         c.MaxRetries,
		WriteTimeout:       c.WriteTimeout,
		PingTimeout:        c.PingTimeout,
		BufferSize:         c.BufferSize,
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
