package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"yoco/stocksync/internal/api"
	"yoco/stocksync/internal/config"
	"yoco/stocksync/internal/db"
	"yoco/stocksync/internal/logging"
	"yoco/stocksync/internal/routes"
)

// @title YoCo Stock Sync API
// @version 1.0
// @description Supplier feed stock sync and backorder engine.
// @host localhost:8080
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", os.Getenv("YOCO_CONFIG"), "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.AppEnv, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Stock sync starting up",
		"environment", cfg.AppEnv,
		"database_driver", cfg.Database.Driver,
		"scheduler_enabled", cfg.Scheduler.Enabled,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if err := run(cfg); err != nil {
		logging.Fatal("Server stopped with error", "error", err.Error())
	}
	logging.Info("Server stopped")
}

func run(cfg *config.Config) error {
	logger := logging.Named("server")

	deps, err := api.InitDependencies(cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warnw("Failed to close dependencies", "error", err)
		}
	}()
	logger.Infow("Connected to databases", "catalog_driver", cfg.Catalog.Driver, "redis", deps.Redis != nil)

	if err := db.Migrate(deps.ORM); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if cfg.Catalog.DSN == cfg.Database.DSN {
		// Single database installs keep the catalog next to the engine tables
		if err := db.CreateCatalogSchema(context.Background(), deps.Catalog); err != nil {
			return fmt.Errorf("catalog schema: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           routes.RegisterRoutes(deps, prometheus.DefaultGatherer, time.Now(), logging.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("Server starting", "port", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		deps.Services.Scheduler.RunScheduled(gctx)
		return nil
	})
	g.Go(func() error {
		deps.Services.Workers.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infow("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
