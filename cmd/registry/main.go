// Command registry serves the Plot Registry API from a local SQLite database.
// It stands in for the production registry during development and tests.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/loteamento/internal/config"
	"github.com/vbonduro/loteamento/internal/db"
	"github.com/vbonduro/loteamento/internal/logging"
	"github.com/vbonduro/loteamento/internal/metrics"
	"github.com/vbonduro/loteamento/internal/registryapi"
	"github.com/vbonduro/loteamento/internal/seed"
	"github.com/vbonduro/loteamento/internal/store"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New("registry", cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	blocks := store.NewBlockStore(database)

	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(ctx, cfg.SeedFile, blocks, logger); err != nil {
			logger.Error("failed to seed database", "file", cfg.SeedFile, "error", err)
			return
		}
	}

	h := registryapi.NewHandler(logger, blocks, registryapi.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Metrics:   metrics.New(),
	})
	srv := &http.Server{
		Addr:              cfg.RegistryListenAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("registry listening", "addr", cfg.RegistryListenAddr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
