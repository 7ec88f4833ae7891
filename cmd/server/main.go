/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the PACS loan engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, file, LOANENGINE_* environment)
  3. Build the logger
  4. Load the scheme table (built-in or schemes file)
  5. Initialize SQLite store
  6. Create API handler, start the accrual scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config     Config file (YAML, JSON or TOML)
  -port       HTTP server port, overrides config
  -db         SQLite database path, overrides config
              Use ":memory:" for in-memory database
  -log-level  debug, info, warn or error, overrides config

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the accrual scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (shutdown timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/loans.db"

  # Run with in-memory database and debug logs
  ./server -db=":memory:" -log-level=debug

  # Run from a config file
  ./server -config=./config.yml

SEE ALSO:
  - config/config.go: Configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
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

	"go.uber.org/zap"

	"github.com/pacs/loan-engine/api"
	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/config"
	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/factory"
	"github.com/pacs/loan-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := config.NewLogger(cfg.Log, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(finish(logger, run(cfg, logger)))
}

// finish logs a failed run, flushes the logger and returns the exit code.
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server failed", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(cfg config.Config, logger *zap.Logger) error {
	schemes, err := loadSchemes(cfg.SchemesFile)
	if err != nil {
		return err
	}
	logger.Info("schemes loaded", zap.Int("count", len(schemes)), zap.String("file", cfg.SchemesFile))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, engine.NewRateSchedule(schemes), logger)
	handler.Clock = calendar.SystemClock{Location: loc}
	handler.Accruals.Enabled = cfg.Scheduler.Enabled
	handler.Accruals.CheckInterval = cfg.Scheduler.Interval
	handler.Accruals.Start()
	defer handler.Accruals.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	handler.Accruals.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func loadSchemes(path string) (engine.SchemeTable, error) {
	f := factory.NewSchemeFactory()
	if path == "" {
		return f.Defaults()
	}
	return f.LoadFile(path)
}
