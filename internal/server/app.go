package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Fireworks/internal/firework"
	"Fireworks/internal/game"
)

type AppConfig struct {
	TuningPath string
	Overrides  TuningOverrides
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		TuningPath: "configs/fireworks.json",
	}
}

func resolveTuning(cfg AppConfig) firework.Tuning {
	tuning := firework.DefaultTuning()
	loaded, err := LoadTuning(cfg.TuningPath, tuning)
	if err != nil {
		log.Printf("tuning: %v (using defaults)", err)
	} else {
		tuning = loaded
	}
	overridden, err := cfg.Overrides.apply(tuning)
	if err != nil {
		log.Printf("tuning overrides: %v (ignored)", err)
		return tuning
	}
	return overridden
}

// StartApp serves the relay until SIGINT or SIGTERM.
func StartApp(addr string, cfg AppConfig) {
	tuning := resolveTuning(cfg)
	hub := game.NewHub(tuning)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	// Periodic cleanup of empty rooms (every 60 seconds)
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hub.CleanupEmptyRooms()
			}
		}
	}()

	peony := tuning.For(firework.Peony)
	log.Printf("starting web server on %s (peony %d particles, %.1fs life)", addr, peony.Count, peony.LifeSpan)

	srv := &http.Server{Addr: addr, Handler: NewHandler(hub)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
	hub.Close()
	log.Printf("server stopped")
}
