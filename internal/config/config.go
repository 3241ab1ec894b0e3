package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	// Optional API key protecting the /api routes. Empty disables auth.
	APIKey string

	// SQLite store location.
	StorePath string

	// Embedding provider (OpenAI-compatible endpoint).
	EmbedBaseURL string
	EmbedAPIKey  string
	EmbedModel   string
	EmbedDims    int // 0 = learn from the first response
	EmbedBatch   int

	// Chat provider for answer generation.
	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string

	// Upload limits
	MaxFileBytes int64

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopK              int
	ContextCharBudget int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("SMARTDOCS_API_KEY"),

		StorePath: envOr("STORE_PATH", "smartdocs.db"),

		EmbedBaseURL: envOr("EMBED_BASE_URL", "https://api.jina.ai/v1"),
		EmbedAPIKey:  os.Getenv("EMBED_API_KEY"),
		EmbedModel:   envOr("EMBED_MODEL", "jina-embeddings-v3"),
		EmbedDims:    envInt("EMBED_DIMS", 0),
		EmbedBatch:   envInt("EMBED_BATCH", 64),

		ChatBaseURL: envOr("CHAT_BASE_URL", "https://openrouter.ai/api/v1"),
		ChatAPIKey:  os.Getenv("CHAT_API_KEY"),
		ChatModel:   envOr("CHAT_MODEL", "google/gemma-2-9b-it:free"),

		MaxFileBytes: envInt64("MAX_FILE_BYTES", 25*1024*1024), // 25MiB per file

		ChunkSize:    envInt("CHUNK_SIZE", 800),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		TopK:              envInt("TOP_K", 4),
		ContextCharBudget: envInt("CONTEXT_CHAR_BUDGET", 8000),
	}

	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 64
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 25 * 1024 * 1024
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap <= 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 4
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.ContextCharBudget <= 0 {
		cfg.ContextCharBudget = 8000
	}

	return cfg
}

func (c Config) Validate() error {
	if c.EmbedAPIKey == "" {
		return fmt.Errorf("EMBED_API_KEY is required")
	}
	if c.ChatAPIKey == "" {
		return fmt.Errorf("CHAT_API_KEY is required")
	}
	if c.StorePath == "" {
		return fmt.Errorf("STORE_PATH must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
