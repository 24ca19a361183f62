package model

// DocumentMetadata is the filterable metadata stored with each document.
type DocumentMetadata struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// EmbeddingDocument is the unit stored in the vector index: one per plan.
// The full plan rides along so retrieval hands ranked stages a complete
// entity without a second lookup. Vector length is constant across the
// index's lifetime.
type EmbeddingDocument struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Vector   []float32        `json:"vector"`
	Metadata DocumentMetadata `json:"metadata"`
	Plan     ProcessedPlan    `json:"plan"`
}

// NewEmbeddingDocument builds the document for a plan with its vector.
func NewEmbeddingDocument(plan ProcessedPlan, vector []float32) EmbeddingDocument {
	return EmbeddingDocument{
		ID:     plan.DocumentID(),
		Text:   plan.EmbeddingText(),
		Vector: vector,
		Metadata: DocumentMetadata{
			Provider: plan.Provider,
			Name:     plan.Name,
		},
		Plan: plan,
	}
}
