// Package cli provides common CLI initialization utilities shared by
// cmd/ledger and cmd/ledger-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/trace"
)

// SetupLogger initializes structured logging at level, writing to w, and
// installs it as the default logger. Records logged with a traced context
// carry its correlation ID.
func SetupLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Handler = trace.NewHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level}))
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App is a ledger opened from configuration together with the resources
// it owns.
type App struct {
	Ledger  *services.Ledger
	Config  *config.Config
	Backend backend.BackendType

	cache     *cache.Manager
	publisher *amqp.Client
}

// OpenLedger opens the configured store and wires the ledger on top of it.
// When AMQP_URL is set, committed changes are published to the broker; a
// broker that cannot be reached is logged and skipped.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	taxonomy := core.DefaultTaxonomy()
	if cfg.CategorySeedDir != "" {
		taxonomy = core.TaxonomyFromDir(cfg.CategorySeedDir)
	}

	app := &App{Config: cfg, Backend: bcfg.Type}
	opts := services.Options{
		Location:   loc,
		EditWindow: cfg.EditWindow,
		Taxonomy:   taxonomy,
		Logger:     logger,
		CacheSize:  cfg.CacheSize,
		CacheTTL:   cfg.CacheTTL,
	}
	if cfg.CacheSize > 0 {
		app.cache = cache.NewManager()
		opts.CacheManager = app.cache
	}
	app.Ledger = services.New(res.Store, opts)
	if app.cache != nil {
		app.cache.StartCleanup(cfg.CacheTTL)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change publishing", log.FieldError, err)
		} else {
			app.publisher = client
			app.Ledger.Events().Subscribe(client.PublishEvent)
			logger.Info("Publishing ledger changes",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			if !bcfg.Type.Durable() {
				logger.Warn("Publishing from a memory backend; the export worker cannot read these entries back",
					"backend", bcfg.Type.String())
			}
		}
	}

	return app, nil
}

// Close releases the cache janitor, the broker connection and the store.
func (a *App) Close() error {
	if a.cache != nil {
		a.cache.Stop()
	}
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
	}
	if err := a.Ledger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
