// Package index stores embedding documents and serves similarity search over
// them. Three backends share one contract: SQLite for the single-machine
// default, Postgres for shared deployments, and an in-memory fallback used
// when neither can be opened.
package index

import (
	"context"

	"github.com/planwise/plan-advisor/internal/model"
)

// Filter narrows a search to a subset of documents. Zero value matches all.
type Filter struct {
	Provider string
}

// Match reports whether the document passes the filter.
func (f Filter) Match(doc model.EmbeddingDocument) bool {
	return f.Provider == "" || equalFold(doc.Metadata.Provider, f.Provider)
}

// SearchResult pairs a document with its similarity score in [0, 1].
type SearchResult struct {
	Document model.EmbeddingDocument
	Score    float64
}

// Stats summarizes index contents.
type Stats struct {
	Documents int            `json:"documents"`
	Providers map[string]int `json:"providers"`
}

// Index is the vector store contract. Upsert is idempotent on document ID,
// so re-ingesting a provider replaces its vectors instead of duplicating.
type Index interface {
	Upsert(ctx context.Context, docs []model.EmbeddingDocument) error
	Search(ctx context.Context, vector []float32, filter Filter, k int) ([]SearchResult, error)
	Stats(ctx context.Context) (Stats, error)
	// Ephemeral reports whether contents are lost on process exit.
	Ephemeral() bool
	Close() error
}
