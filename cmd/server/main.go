package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartdocs/internal/answer"
	"smartdocs/internal/api"
	"smartdocs/internal/chunker"
	"smartdocs/internal/config"
	"smartdocs/internal/embed"
	"smartdocs/internal/extract"
	"smartdocs/internal/pipeline"
	"smartdocs/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Error("failed to open store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, err := embed.NewProvider(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedDims)
	if err != nil {
		log.Error("failed to create embedding provider", "error", err)
		os.Exit(1)
	}

	answerer, err := answer.NewClient(cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.ChatModel, cfg.ContextCharBudget)
	if err != nil {
		log.Error("failed to create answer client", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(
		extract.New(),
		embedder,
		st,
		log,
		chunker.Config{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		cfg.EmbedBatch,
	)

	srv := api.NewServer(p, answerer, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting smartdocs", "port", cfg.Port, "store", cfg.StorePath)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
