/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load .env, parse flags/env (config.Load)
  2. Build logger
  3. Open SQLite store
  4. Create tracker with a clock in the configured zone
  5. Configure HTTP router
  6. Start server with graceful shutdown

FLAGS (env fallback):
  --port             HABITS_PORT             (default 3333)
  --db               HABITS_DB               (default habits.db, ":memory:" allowed)
  --timezone         HABITS_TZ               (default Local)
  --log-level        HABITS_LOG_LEVEL        (default info)
  --log-file         HABITS_LOG_FILE
  --allowed-origins  HABITS_ALLOWED_ORIGINS
  --env-file         HABITS_ENV_FILE         (default .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM stop accepting connections, wait up to 30s for active
  requests, close the database.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/habit-engine/api"
	"github.com/warp/habit-engine/config"
	"github.com/warp/habit-engine/logger"
	"github.com/warp/habit-engine/store/sqlite"
	"github.com/warp/habit-engine/tracker"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	t := tracker.New(store, tracker.NewClock(loc), log.WithPrefix("tracker"))
	handler := api.NewHandler(t, store, log.WithPrefix("http"))
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "db", cfg.DB, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
