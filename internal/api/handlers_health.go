package api

import (
	"net/http"

	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/store"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db     *store.DB
	ollama *embedding.OllamaClient
}

func NewHealthHandler(db *store.DB, ollama *embedding.OllamaClient) *HealthHandler {
	return &HealthHandler{db: db, ollama: ollama}
}

// Health handles GET /health. Embedding dependencies are optional: when
// disabled they report "disabled" rather than failing the check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["cache_db"] = "down: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["cache_db"] = "ok"
		}
	} else {
		checks["cache_db"] = "disabled"
	}

	if h.ollama != nil {
		if err := h.ollama.HealthCheck(); err != nil {
			// Embeddings are best-effort; a down Ollama degrades search but
			// does not take the service down.
			checks["ollama"] = "down: " + err.Error()
		} else {
			checks["ollama"] = "ok"
		}
	} else {
		checks["ollama"] = "disabled"
	}

	writeJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
