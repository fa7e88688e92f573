package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port        int
	DataDir     string
	CacheDBPath string
	APIKey      string
	LogLevel    string
	// LLM
	AnthropicAPIKey string
	AnthropicModel  string
	LLMMaxTokens    int
	// Embeddings
	OllamaBaseURL    string
	EmbeddingModel   string
	EmbeddingDim     int
	EmbeddingEnabled bool
	// Selection tuning
	MinRelevance       float64
	MaxContextItems    int
	RecencyWindowDays  int
	TaskSimThreshold   float64
	MemorySimThreshold float64
	MaxTaskResults     int
	MaxMemoryResults   int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               envInt("PORT", 8820),
		DataDir:            envStr("ARLO_DATA_DIR", "/data/arlo"),
		CacheDBPath:        envStr("EMBEDDING_CACHE_PATH", "/data/arlo/embeddings.db"),
		APIKey:             envStr("ARLO_API_KEY", ""),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey:    envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     envStr("ANTHROPIC_MODEL", ""),
		LLMMaxTokens:       envInt("LLM_MAX_TOKENS", 4096),
		OllamaBaseURL:      envStr("OLLAMA_BASE_URL", "http://localhost:11434"),
		EmbeddingModel:     envStr("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDim:       envInt("EMBEDDING_DIM", 768),
		EmbeddingEnabled:   envBool("EMBEDDING_ENABLED", true),
		MinRelevance:       envFloat("MIN_RELEVANCE", 0.1),
		MaxContextItems:    envInt("MAX_CONTEXT_ITEMS", 10),
		RecencyWindowDays:  envInt("RECENCY_WINDOW_DAYS", 7),
		TaskSimThreshold:   envFloat("TASK_SIM_THRESHOLD", 0.7),
		MemorySimThreshold: envFloat("MEMORY_SIM_THRESHOLD", 0.7),
		MaxTaskResults:     envInt("MAX_TASK_RESULTS", 10),
		MaxMemoryResults:   envInt("MAX_MEMORY_RESULTS", 15),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("ARLO_DATA_DIR must not be empty")
	}
	if c.EmbeddingEnabled {
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL must not be empty")
		}
		if c.CacheDBPath == "" {
			return fmt.Errorf("EMBEDDING_CACHE_PATH must not be empty")
		}
		if c.EmbeddingDim < 1 {
			return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
		}
	}
	if c.MinRelevance < 0 || c.MinRelevance > 1 {
		return fmt.Errorf("MIN_RELEVANCE must be in [0, 1], got %f", c.MinRelevance)
	}
	if c.MaxContextItems < 1 {
		return fmt.Errorf("MAX_CONTEXT_ITEMS must be positive, got %d", c.MaxContextItems)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
