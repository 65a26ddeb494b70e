package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ujjwal16295/book-ai/internal/catalog"
	"github.com/ujjwal16295/book-ai/internal/config"
	"github.com/ujjwal16295/book-ai/internal/httpserver"
	"github.com/ujjwal16295/book-ai/internal/logging"
	"github.com/ujjwal16295/book-ai/internal/speech"
	"github.com/ujjwal16295/book-ai/internal/summarize"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Debug)

	client := catalog.NewClient(cfg.GoogleBooksAPIKey, cfg.SuggestMaxResults)
	if cfg.CatalogCachePath != "" {
		cache, err := catalog.NewCache(cfg.CatalogCachePath, 24*time.Hour)
		if err != nil {
			logging.Error("catalog cache unavailable, continuing without", "path", cfg.CatalogCachePath, "err", err)
		} else {
			defer cache.Close()
			client = client.WithCache(cache)
		}
	}

	deps := httpserver.Deps{
		Suggestions: client,
		Details:     client,
		Generator:   summarize.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModelID),
		Voice:       cfg.DeepgramVoice,
	}
	if cfg.DeepgramAPIKey != "" {
		deps.NewEngine = func(sink speech.FrameSink) speech.Engine {
			return speech.NewDeepgramEngine(cfg.DeepgramAPIKey, cfg.DeepgramVoice, sink)
		}
	}

	srv := httpserver.New(deps)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logging.Info("server listening", "addr", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logging.Error("server error", "err", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logging.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error("graceful shutdown failed", "err", err)
		_ = server.Close()
	}
}
