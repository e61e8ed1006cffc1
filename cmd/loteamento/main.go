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
	"github.com/vbonduro/loteamento/internal/logging"
	"github.com/vbonduro/loteamento/internal/metrics"
	"github.com/vbonduro/loteamento/internal/registry"
	"github.com/vbonduro/loteamento/internal/session"
	"github.com/vbonduro/loteamento/internal/web"
	"github.com/vbonduro/loteamento/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New("loteamento", cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := registry.NewClient(cfg.RegistryURL).WithObserver(m)
	sessions := session.NewManager(client, cfg.SessionTTL, logger)
	server := web.NewServer(sessions, templates.FS, m, logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr, "registry", cfg.RegistryURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
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
