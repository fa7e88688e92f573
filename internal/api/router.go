package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/arlohq/arlo/internal/chat"
	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/store"
	"github.com/arlohq/arlo/internal/tasks"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	DB            *store.DB
	Ollama        *embedding.OllamaClient
	Memories      *store.MemoryStore
	Tasks         *tasks.Service
	Orchestrator  *chat.Orchestrator
	Sessions      *chat.Sessions
	KnowledgeBase *consolidate.KnowledgeBase
	Matcher       *intent.CategoryMatcher
	Embedder      embedding.Embedder
	APIKey        string
	Logger        *slog.Logger
}

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(d.Logger))
	r.Use(Recovery(d.Logger))

	healthH := NewHealthHandler(d.DB, d.Ollama)
	chatH := NewChatHandler(d.Orchestrator, d.Sessions)
	taskH := NewTaskHandler(d.Tasks)
	memoryH := NewMemoryHandler(d.Memories, d.KnowledgeBase, d.Matcher, d.Embedder)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(d.APIKey))

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Post("/chat", chatH.Chat)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", chatH.CreateSession)
				r.Post("/{sessionID}/complete", chatH.CompleteSession)
				r.Get("/{sessionID}/task-context", chatH.TaskContext)
				r.Put("/{sessionID}/task-context", chatH.SetTaskContext)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskH.List)
				r.Post("/", taskH.Create)
				r.Get("/{taskID}", taskH.Get)
				r.Patch("/{taskID}", taskH.Update)
				r.Post("/{taskID}/status", taskH.ChangeStatus)
				r.Delete("/{taskID}", taskH.Delete)
			})

			r.Route("/memories", func(r chi.Router) {
				r.Get("/", memoryH.List)
				r.Post("/", memoryH.Create)
				r.Get("/categories", memoryH.Categories)
				r.Get("/{memoryID}", memoryH.Get)
				r.Delete("/{memoryID}", memoryH.Delete)
			})

			r.Route("/knowledge", func(r chi.Router) {
				r.Post("/", memoryH.AddKnowledge)
				r.Get("/{category}", memoryH.GetKnowledge)
			})
		})
	})

	return r
}
