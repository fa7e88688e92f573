// Arlo MCP adapter: exposes the project-assistant tool set over the Model
// Context Protocol (stdio transport) so MCP-speaking agents can create tasks,
// save memories, and search project context directly.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/arlohq/arlo/internal/config"
	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/mcpserver"
	"github.com/arlohq/arlo/internal/search"
	"github.com/arlohq/arlo/internal/store"
	"github.com/arlohq/arlo/internal/tasks"
	"github.com/arlohq/arlo/internal/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Logs go to stderr: stdout is the MCP stdio transport.
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := store.NewDataDir(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}

	taskStore := store.NewTaskStore(data)
	memoryStore := store.NewMemoryStore(data)

	// Embeddings are optional here too; the MCP tools work with keyword
	// scoring when Ollama or the cache is unavailable.
	var embedder embedding.Embedder
	if cfg.EmbeddingEnabled {
		db, err := store.Open(cfg.CacheDBPath)
		if err != nil {
			logger.Warn("embedding cache unavailable, continuing without embeddings", "error", err)
		} else {
			defer db.Close()
			ollamaClient := embedding.NewOllamaClient(cfg.OllamaBaseURL, cfg.EmbeddingModel)
			embedder = embedding.NewCachedEmbedder(ollamaClient, store.NewEmbeddingCacheStore(db), cfg.EmbeddingModel, cfg.EmbeddingDim, logger)
		}
	}

	matcher, err := intent.NewCategoryMatcher()
	if err != nil {
		return fmt.Errorf("load category table: %w", err)
	}

	scorer := search.NewScorer()
	taskSvc := tasks.NewService(taskStore, embedder, logger)
	kb := consolidate.NewKnowledgeBase(memoryStore, embedder, logger)

	registry := tools.NewRegistry(
		tools.NewCreateTaskTool(taskSvc),
		tools.NewUpdateTaskTool(taskSvc),
		tools.NewChangeTaskStatusTool(taskSvc),
		tools.NewCreateMemoryTool(memoryStore, matcher, embedder),
		tools.NewAddToKnowledgeBaseTool(kb),
		tools.NewSearchContextTool(taskStore, memoryStore, search.NewSelector(scorer, cfg.MinRelevance, cfg.MaxContextItems)),
	)

	s := mcpserver.New(registry)
	logger.Info("arlo mcp server starting", "data_dir", cfg.DataDir)
	return server.ServeStdio(s)
}
