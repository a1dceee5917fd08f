package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"jobassist/internal/bootstrap"
	"jobassist/internal/session"
	"jobassist/internal/shared/config"
	"jobassist/internal/shared/server"
	"jobassist/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Configure(cfg.Env, cfg.LogFormat); err != nil {
		log.Printf("telemetry: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	if s, err := app.Sessions.Restore(ctx); err == nil {
		telemetry.Info("api.session_restored", map[string]any{"conversation_id": s.ID()})
	} else if !errors.Is(err, session.ErrNoActiveSession) {
		telemetry.Warn("api.session_restore_failed", map[string]any{"error": err})
	}

	addr := server.Addr(cfg.Port)
	srv := &http.Server{Addr: addr, Handler: app.Router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting API server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
