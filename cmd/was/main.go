package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/api"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/config"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/contents"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/factory"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/handlers"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/rules"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/was"
)

func main() {
	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init()
	defer logger.CloseTargets()
	logger.Info("Starting simplewas...",
		"discovery", cfg.DiscoveryMode,
		"signature", cfg.ServerSignature,
		"denied_extensions", cfg.DeniedExtensions)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start health server
	var healthServer *api.HealthServer
	if cfg.HealthServerPort != "" {
		healthServer = api.NewHealthServer(":" + cfg.HealthServerPort)
		healthServer.Start()
	}

	// Load the site document
	source, err := factory.NewSourceFactory(cfg).Create(ctx)
	if err != nil {
		logger.Fatal("Failed to create site source", "error", err)
	}
	sites, err := source.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load site document", "error", err)
	}
	if len(sites.Hosts) == 0 {
		logger.Fatal("Site document has no virtual hosts")
	}

	workers := sites.ThreadCount
	if cfg.WorkerCount > 0 {
		workers = cfg.WorkerCount
	}

	handlerRegistry := handlers.Builtin()
	chain := rules.Default(cfg.DeniedExtensions, handlerRegistry)
	resolver := contents.NewResolver(handlerRegistry)

	// One listener per port; a failing listener leaves the others running
	var wg sync.WaitGroup
	for _, port := range sites.Ports() {
		port := port // per-iteration copy (go.mod targets go 1.21 loop semantics)
		l := was.NewListener(was.Options{
			MainLogTarget: sites.MainLogTarget,
			Workers:       workers,
			ReadTimeout:   cfg.ReadTimeout,
			Signature:     cfg.ServerSignature,
			OnListening: func(addr net.Addr) {
				if healthServer != nil {
					healthServer.ListenerUp(addr)
				}
			},
			OnStopped: func(addr net.Addr) {
				if healthServer != nil {
					healthServer.ListenerDown(addr)
				}
			},
		}, chain, resolver)

		if err := registerAll(l, sites.ForPort(port)); err != nil {
			logger.Error("Listener not started", "port", port, "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Listener terminated", "port", port, "error", err)
			}
		}()
	}

	wg.Wait()
	logger.Info("All listeners stopped, shutting down")

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Warn("Failed to stop health server", "error", err)
		}
	}
}

func registerAll(l *was.Listener, hosts []*core.VirtualHost) error {
	for _, host := range hosts {
		if err := l.Register(host); err != nil {
			return err
		}
	}
	return nil
}
