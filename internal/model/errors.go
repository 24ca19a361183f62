package model

import "github.com/rotisserie/eris"

// Stage error taxonomy. Each pipeline stage wraps its causes around one of
// these sentinels so callers can classify failures with errors.Is.
var (
	ErrFetch      = eris.New("fetch failed")
	ErrExtraction = eris.New("extraction produced no valid records")
	ErrEmbedding  = eris.New("embedding failed")
	ErrIndex      = eris.New("vector index failure")
	ErrParse      = eris.New("intent parse failed")
	ErrRank       = eris.New("ranking failed")
	ErrGeneration = eris.New("response generation failed")

	// ErrEmptyIndex is terminal for a query: retrieval against an index with
	// zero documents cannot produce an answer.
	ErrEmptyIndex = eris.New("vector index is empty")

	// ErrNoData is terminal for ingestion: no fresh fetch succeeded and no
	// cache exists for the provider.
	ErrNoData = eris.New("no fresh data and no cache for provider")
)
