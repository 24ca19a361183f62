package index

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/planwise/plan-advisor/internal/model"
)

// MemoryIndex is the in-process fallback backend. Contents vanish on exit;
// callers surface that through Ephemeral.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]model.EmbeddingDocument
}

// NewMemory creates an empty MemoryIndex.
func NewMemory() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]model.EmbeddingDocument)}
}

func (m *MemoryIndex) Upsert(_ context.Context, docs []model.EmbeddingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			return eris.New("memory index: document with empty ID")
		}
		m.docs[doc.ID] = doc
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, vector []float32, filter Filter, k int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.docs) == 0 {
		return nil, eris.Wrap(model.ErrEmptyIndex, "memory index: search")
	}

	var results []SearchResult
	for _, doc := range m.docs {
		if !filter.Match(doc) {
			continue
		}
		results = append(results, SearchResult{Document: doc, Score: similarity(vector, doc.Vector)})
	}
	return topK(results, k), nil
}

func (m *MemoryIndex) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{Documents: len(m.docs), Providers: make(map[string]int)}
	for _, doc := range m.docs {
		stats.Providers[doc.Metadata.Provider]++
	}
	return stats, nil
}

func (m *MemoryIndex) Ephemeral() bool { return true }

func (m *MemoryIndex) Close() error { return nil }
