package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/arlohq/arlo/internal/store"
)

// Embedder is the provider contract the rest of the system depends on.
// EmbedOrNil never fails: a nil vector means "no embedding available" and
// callers degrade to keyword scoring.
type Embedder interface {
	EmbedOrNil(text string) []float32
}

// CachedEmbedder wraps an OllamaClient with content-hash caching via SQLite.
type CachedEmbedder struct {
	client *OllamaClient
	cache  *store.EmbeddingCacheStore
	model  string
	dim    int
	logger *slog.Logger
}

func NewCachedEmbedder(client *OllamaClient, cache *store.EmbeddingCacheStore, model string, dim int, logger *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		client: client,
		cache:  cache,
		model:  model,
		dim:    dim,
		logger: logger,
	}
}

// Embed returns the embedding for text, using cache when available.
func (e *CachedEmbedder) Embed(text string) ([]float32, error) {
	hash := ContentHash(text)

	entry, err := e.cache.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry != nil {
		return BytesToFloat32(entry.Embedding), nil
	}

	vec, err := e.client.Embed(text)
	if err != nil {
		return nil, err
	}

	cacheEntry := &store.EmbeddingCacheEntry{
		ContentHash: hash,
		Embedding:   Float32ToBytes(vec),
		Dimension:   e.dim,
		Model:       e.model,
	}
	if err := e.cache.Put(cacheEntry); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}

	return vec, nil
}

// EmbedOrNil returns the embedding for text, or nil on any failure. Embedding
// is best-effort: downstream scoring works without vectors.
func (e *CachedEmbedder) EmbedOrNil(text string) []float32 {
	if text == "" {
		return nil
	}
	vec, err := e.Embed(text)
	if err != nil {
		e.logger.Debug("embedding unavailable", "error", err)
		return nil
	}
	return vec
}

// EmbedBatch embeds several texts, consulting the cache per item. Failed items
// come back as nil vectors.
func (e *CachedEmbedder) EmbedBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if t == "" {
			continue
		}
		entry, err := e.cache.Get(ContentHash(t))
		if err == nil && entry != nil {
			out[i] = BytesToFloat32(entry.Embedding)
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out
	}

	vecs, err := e.client.EmbedBatch(missing)
	if err != nil {
		e.logger.Debug("batch embedding unavailable", "count", len(missing), "error", err)
		return out
	}

	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		entry := &store.EmbeddingCacheEntry{
			ContentHash: ContentHash(missing[j]),
			Embedding:   Float32ToBytes(vec),
			Dimension:   e.dim,
			Model:       e.model,
		}
		if err := e.cache.Put(entry); err != nil {
			e.logger.Warn("embedding cache write failed", "error", err)
		}
	}

	return out
}

// ContentHash computes a SHA-256 hash of text content.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

// Float32ToBytes converts a float32 slice to a byte slice (little-endian).
func Float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToFloat32 converts a byte slice (little-endian) back to a float32 slice.
func BytesToFloat32(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
