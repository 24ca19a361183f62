// Package fetch retrieves raw plan pages from provider sites. A dynamic-render
// strategy (Firecrawl) is tried first; a static HTTP GET is the fallback for
// pages that do not need JavaScript.
package fetch

import (
	"context"

	"github.com/planwise/plan-advisor/internal/model"
)

// Fetcher retrieves the plan page for a single provider.
type Fetcher interface {
	Fetch(ctx context.Context, provider model.ProviderConfig) (*model.RawPage, error)
	Name() string
}
