// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app is the composition root: it loads configuration, builds the
// session registry and event bus, rehydrates leftover session metadata
// from a prior run, and starts the HTTP server. It owns nothing the
// session package doesn't already own — it only wires pieces together and
// drives startup/shutdown.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/tonyjom/lineforge/internal/api"
	"github.com/tonyjom/lineforge/internal/bind"
	"github.com/tonyjom/lineforge/internal/config"
	"github.com/tonyjom/lineforge/internal/events"
	"github.com/tonyjom/lineforge/internal/session"
)

// Options holds the command-line/config inputs that shape a run.
type Options struct {
	ConfigPath string
	Version    string
}

// App is the running application: config, registry, event bus, HTTP
// server.
type App struct {
	mu sync.Mutex

	configPath string
	cfg        *config.Config
	registry   *session.Registry
	eventBus   *events.Bus
	server     *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// New loads configuration and builds the registry and event bus. It does
// not start the HTTP server or rehydrate sessions; call Run for that.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()

	path := opts.ConfigPath
	if path == "" {
		found, err := loader.FindConfig()
		if err != nil {
			return nil, fmt.Errorf("locating config file: %w", err)
		}
		path = found
	}

	cfg, err := loader.LoadWithDefaults(context.Background(), path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	defaultTool, err := session.ParseToolKind(cfg.Tools.Default)
	if err != nil {
		return nil, fmt.Errorf("config tools.default: %w", err)
	}

	eventBus := events.NewBus(256)
	registry := session.New(session.Config{
		DataDir:     dataDir,
		ToolPath:    cfg.Tools.Path,
		YoloMode:    cfg.YoloMode,
		MaxLogLines: cfg.Sessions.MaxLogLines,
		DefaultTool: defaultTool,
	}, eventBus)

	resolvedBind := bind.Resolve(cfg.Server.Bind)

	app := &App{
		configPath: path,
		cfg:        cfg,
		registry:   registry,
		eventBus:   eventBus,
		server: api.NewServer(api.ServerConfig{
			Bind: resolvedBind,
			Port: cfg.Server.Port,
		}, registry, defaultTool, cfg.ITerm.Enabled),
		done: make(chan struct{}),
	}
	return app, nil
}

// defaultDataDir returns <data_local_dir> (~/.local/share), creating it if
// missing; the registry keeps its sessions under lineforge/sessions there.
func defaultDataDir() (string, error) {
	base, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, ".local", "share")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Config returns the loaded configuration.
func (app *App) Config() *config.Config { return app.cfg }

// Registry returns the session registry.
func (app *App) Registry() *session.Registry { return app.registry }

// Run rehydrates leftover session metadata, starts the HTTP server, and
// blocks until a shutdown signal arrives or the context is cancelled.
func (app *App) Run(ctx context.Context) error {
	if _, err := app.registry.Rehydrate(); err != nil {
		log.Printf("rehydrating sessions: %v", err)
	}

	stop := make(chan struct{})
	go config.WatchForChanges(app.configPath, stop)

	serverErr := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
	case err := <-serverErr:
		close(stop)
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Printf("context cancelled, shutting down")
	case <-app.done:
		log.Printf("shutdown requested")
	}

	close(stop)
	return app.Shutdown(context.Background())
}

// Shutdown gracefully stops the HTTP server.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down http server: %v", err)
	}
	app.eventBus.Close()
	return nil
}

// Stop signals Run to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
