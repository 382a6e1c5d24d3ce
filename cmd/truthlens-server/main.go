package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"

	"github.com/use-agent/truthlens/api"
	"github.com/use-agent/truthlens/cache"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/llm"
	"github.com/use-agent/truthlens/search"
	"github.com/use-agent/truthlens/verify"
	"github.com/use-agent/truthlens/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	config.InitLogger(cfg.Log, os.Stdout)
	slog.Info("truthlens server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"model", cfg.LLM.Model,
		"search", cfg.Search.Provider,
	)

	// ── 3. Verification pipeline ────────────────────────────────────
	searcher, err := search.New(cfg.Search)
	if err != nil {
		slog.Error("failed to initialise search provider", "error", err)
		os.Exit(1)
	}
	verifier := verify.New(llm.NewClient(cfg.LLM), searcher, verify.Options{
		PassThreshold:     cfg.Verify.PassThreshold,
		DuplicateDistance: cfg.Verify.DuplicateDistance,
	})

	// ── 4. Cache and webhook ────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge)
	defer cc.Stop()

	notifier := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)
	if notifier != nil {
		slog.Info("webhook delivery enabled", "url", cfg.Webhook.URL)
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Checker:   verifier,
		Cache:     cc,
		Notifier:  notifier,
		StartTime: time.Now(),
	})

	// The extension popup posts from its own origin.
	handler := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})(router)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("truthlens server stopped")
}
