/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the store ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Open the configured repository
  3. Wire hub, notifier, service and factory into the API handler
  4. Start the export scheduler when EXPORT_DIR is set
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port
  -driver  sqlite | bolt | postgres | memory
  -db      SQLite/BoltDB file path; ":memory:" works for sqlite
  -env     .env file to load (default: .env, missing is fine)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the export scheduler
  2. Close realtime streams so open SSE requests end
  3. Wait for active requests to complete (30s timeout)
  4. Close the repository
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run on BoltDB
  ./server -driver=bolt -db="./data/ledger.bolt"

  # Run against PostgreSQL
  DB_DRIVER=postgres DATABASE_URL=postgres://... ./server

SEE ALSO:
  - config/config.go: Environment keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/store-ledger/api"
	"github.com/warp/store-ledger/config"
	"github.com/warp/store-ledger/factory"
	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/ledger/store"
	"github.com/warp/store-ledger/notify"
	"github.com/warp/store-ledger/realtime"
	"github.com/warp/store-ledger/store/bolt"
	"github.com/warp/store-ledger/store/postgres"
	"github.com/warp/store-ledger/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	driver := flag.String("driver", "", "Repository driver (overrides DB_DRIVER)")
	dbPath := flag.String("db", "", "Database file path (overrides DB_PATH)")
	envFile := flag.String("env", ".env", "Environment file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *driver != "" {
		cfg.DBDriver = *driver
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logger(os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx := context.Background()
	loc := cfg.Location()

	// Initialize repository
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s repository: %w", cfg.DBDriver, err)
	}
	defer closeRepo()

	hub := realtime.NewHub(logger.With().Str("component", "hub").Logger())
	notifier := notify.New(cfg.NotifyDismiss, logger.With().Str("component", "notify").Logger())
	defer notifier.Close()

	svc := ledger.NewService(repo, hub, uuid.NewString)
	handler := api.NewHandler(svc, factory.New(loc), hub, notifier, loc, logger)
	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: cfg.CORSOrigins})

	if cfg.ExportDir != "" {
		scheduler := api.NewExportScheduler(svc, cfg.ExportDir, cfg.ExportSchedule, loc,
			logger.With().Str("component", "export").Logger())
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	// No WriteTimeout: SSE responses stay open.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Str("driver", cfg.DBDriver).Str("tz", loc.String()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	// Ends open SSE requests so Shutdown does not wait on them.
	hub.Close()
	notifier.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// openRepository opens the backend named by cfg.DBDriver.
func openRepository(ctx context.Context, cfg config.Config) (ledger.Repository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		return store.NewMemory(), func() {}, nil
	case config.DriverBolt:
		s, err := bolt.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}
