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

	"github.com/arlohq/arlo/internal/api"
	"github.com/arlohq/arlo/internal/chat"
	"github.com/arlohq/arlo/internal/config"
	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/insight"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/llm"
	"github.com/arlohq/arlo/internal/search"
	"github.com/arlohq/arlo/internal/store"
	"github.com/arlohq/arlo/internal/tasks"
	"github.com/arlohq/arlo/internal/tools"
)

func main() {
	// Logger
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flat-file data root
	data, err := store.NewDataDir(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open data directory", "error", err)
		os.Exit(1)
	}

	// Stores
	taskStore := store.NewTaskStore(data)
	memoryStore := store.NewMemoryStore(data)
	chatStore := store.NewChatStore(data)
	sessionStore := store.NewSessionStore(data)

	// Embeddings (optional subsystem: everything degrades to keyword scoring)
	var (
		db           *store.DB
		ollamaClient *embedding.OllamaClient
		embedder     embedding.Embedder
	)
	if cfg.EmbeddingEnabled {
		db, err = store.Open(cfg.CacheDBPath)
		if err != nil {
			logger.Error("failed to open embedding cache", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ollamaClient = embedding.NewOllamaClient(cfg.OllamaBaseURL, cfg.EmbeddingModel)
		if err := ollamaClient.HealthCheck(); err != nil {
			logger.Warn("ollama not available at startup, embeddings degrade to keyword scoring", "error", err)
		}
		embCacheStore := store.NewEmbeddingCacheStore(db)
		embedder = embedding.NewCachedEmbedder(ollamaClient, embCacheStore, cfg.EmbeddingModel, cfg.EmbeddingDim, logger)
	}

	// LLM
	if cfg.AnthropicAPIKey == "" {
		logger.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llmClient := llm.NewAnthropicClient(llm.Config{
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.LLMMaxTokens,
	})

	// Categories
	matcher, err := intent.NewCategoryMatcher()
	if err != nil {
		logger.Error("failed to load category table", "error", err)
		os.Exit(1)
	}

	// Pipeline services
	scorer := search.NewScorer()
	selector := search.NewHierarchicalSelector(scorer, cfg.MinRelevance, cfg.MaxContextItems, cfg.RecencyWindowDays)
	classifier := intent.NewClassifier(llmClient, logger)
	extractor := insight.NewExtractor(llmClient, matcher, logger)
	engine := consolidate.NewEngine(memoryStore, llmClient, matcher, embedder, logger)
	kb := consolidate.NewKnowledgeBase(memoryStore, embedder, logger)
	taskSvc := tasks.NewService(taskStore, embedder, logger)
	sessions := chat.NewSessions(sessionStore, taskStore, chatStore, extractor, engine, logger)

	// Tool registry
	registry := tools.NewRegistry(
		tools.NewCreateTaskTool(taskSvc),
		tools.NewUpdateTaskTool(taskSvc),
		tools.NewChangeTaskStatusTool(taskSvc),
		tools.NewCreateMemoryTool(memoryStore, matcher, embedder),
		tools.NewAddToKnowledgeBaseTool(kb),
		tools.NewSearchContextTool(taskStore, memoryStore, search.NewSelector(scorer, cfg.MinRelevance, cfg.MaxContextItems)),
	)

	orchestrator := chat.NewOrchestrator(chat.OrchestratorDeps{
		Tasks:      taskStore,
		Memories:   memoryStore,
		Chat:       chatStore,
		Sessions:   sessions,
		LLM:        llmClient,
		Classifier: classifier,
		Extractor:  extractor,
		Engine:     engine,
		Registry:   registry,
		Embedder:   embedder,
		Selector:   selector,
		Ranking: chat.RankingConfig{
			TaskSimThreshold:   cfg.TaskSimThreshold,
			MemorySimThreshold: cfg.MemorySimThreshold,
			MaxTaskResults:     cfg.MaxTaskResults,
			MaxMemoryResults:   cfg.MaxMemoryResults,
		},
		Logger: logger,
	})

	// Router
	router := api.NewRouter(api.RouterDeps{
		DB:            db,
		Ollama:        ollamaClient,
		Memories:      memoryStore,
		Tasks:         taskSvc,
		Orchestrator:  orchestrator,
		Sessions:      sessions,
		KnowledgeBase: kb,
		Matcher:       matcher,
		Embedder:      embedder,
		APIKey:        cfg.APIKey,
		Logger:        logger,
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("arlo server starting", "addr", addr, "data_dir", cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
