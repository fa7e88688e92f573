package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/privacy"
	"github.com/arlohq/arlo/internal/store"
)

// MemoryHandler handles memory CRUD and knowledge-base requests.
type MemoryHandler struct {
	memories *store.MemoryStore
	kb       *consolidate.KnowledgeBase
	matcher  *intent.CategoryMatcher
	embedder embedding.Embedder
}

func NewMemoryHandler(memories *store.MemoryStore, kb *consolidate.KnowledgeBase, matcher *intent.CategoryMatcher, embedder embedding.Embedder) *MemoryHandler {
	return &MemoryHandler{memories: memories, kb: kb, matcher: matcher, embedder: embedder}
}

// List handles GET /projects/{projectID}/memories?category=...
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	category := r.URL.Query().Get("category")

	var (
		mems []*models.Memory
		err  error
	)
	if category != "" {
		mems, err = h.memories.LoadByCategory(projectID, category)
	} else {
		mems, err = h.memories.Load(projectID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if mems == nil {
		mems = []*models.Memory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": mems})
}

type createMemoryRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Type     models.MemoryType `json:"type"`
}

// Create handles POST /projects/{projectID}/memories
func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req createMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if privacy.HasOnlyPrivateContent(req.Content) {
		writeError(w, http.StatusBadRequest, "content is entirely private")
		return
	}
	content := privacy.StripPrivateTags(req.Content)
	if content == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	memType := req.Type
	if memType == "" {
		memType = models.MemoryTypeNote
	}
	if !memType.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid memory type")
		return
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" || !h.matcher.IsKnown(category) {
		category, _ = h.matcher.Match(content)
	}

	now := time.Now().Unix()
	mem := &models.Memory{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Title:     req.Title,
		Content:   content,
		Category:  category,
		Type:      memType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if h.embedder != nil {
		mem.Embedding = h.embedder.EmbedOrNil(mem.Title + " " + mem.Content)
	}
	if err := h.memories.Upsert(projectID, mem); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, mem)
}

// Get handles GET /projects/{projectID}/memories/{memoryID}
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	memoryID := chi.URLParam(r, "memoryID")

	mem, err := h.memories.GetByID(projectID, memoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if mem == nil {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

// Delete handles DELETE /projects/{projectID}/memories/{memoryID}
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	memoryID := chi.URLParam(r, "memoryID")

	removed, err := h.memories.Delete(projectID, memoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /projects/{projectID}/memories/categories
func (h *MemoryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	cats, err := h.memories.Categories(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

type knowledgeRequest struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// AddKnowledge handles POST /projects/{projectID}/knowledge
func (h *MemoryHandler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req knowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	if privacy.HasOnlyPrivateContent(req.Content) {
		writeError(w, http.StatusBadRequest, "content is entirely private")
		return
	}

	doc, err := h.kb.AddEntry(projectID, req.Category, req.Title, privacy.StripPrivateTags(req.Content))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetKnowledge handles GET /projects/{projectID}/knowledge/{category}
func (h *MemoryHandler) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	category := chi.URLParam(r, "category")

	doc, err := h.kb.Document(projectID, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "no knowledge document for category")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
