/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the profit-sharing ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and environment (config.Load)
  2. Parse command-line flags (they override the environment)
  3. Build the zap logger
  4. Open storage and the vesting cache, wire services (app.New)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -env     .env file to read (default: .env, missing file is fine)
  -port    HTTP server port (default: PORT or 8080)
  -driver  sqlite3 | postgres (default: DB_DRIVER or sqlite3)
  -db      SQLite path or postgres URL (default: DB_DSN or profit.db)
           Use ":memory:" for in-memory database
  -redis   Redis address for the vesting cache (default: REDIS_ADDR)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close cache and database connections
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/profit.db"

  # Run against postgres with a shared redis cache
  ./server -driver=postgres -db="postgres://ledger@localhost/ledger?sslmode=disable" -redis=localhost:6379

SEE ALSO:
  - config/config.go: Environment keys
  - app/app.go: Dependency wiring
  - api/server.go: Router configuration
*/
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

	"github.com/warp/profit-ledger/api"
	"github.com/warp/profit-ledger/app"
	"github.com/warp/profit-ledger/config"
	"github.com/warp/profit-ledger/logging"
	"go.uber.org/zap"
)

func main() {
	// Flags
	envFile := flag.String("env", ".env", "dotenv file")
	port := flag.Int("port", 0, "HTTP server port")
	driver := flag.String("driver", "", "database driver (sqlite3, postgres)")
	dsn := flag.String("db", "", "SQLite database path or postgres URL")
	redisAddr := flag.String("redis", "", "Redis address for the vesting cache")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *driver != "" {
		cfg.DB.Driver = *driver
	}
	if *dsn != "" {
		cfg.DB.DSN = *dsn
	}
	if *redisAddr != "" {
		cfg.RedisAddr = *redisAddr
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize storage, cache and services
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	// Create router
	router := api.NewRouter(a.Handler())

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("api", fmt.Sprintf("http://localhost:%d/api", cfg.Port)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
