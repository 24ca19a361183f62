package fetch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
)

// Chain tries fetchers in priority order, returning the first page with
// non-empty content. It fails with model.ErrFetch only when every strategy
// errors or returns an empty page.
type Chain struct {
	fetchers []Fetcher
}

// NewChain creates a Chain. Fetchers are tried in order.
func NewChain(fetchers ...Fetcher) *Chain {
	return &Chain{fetchers: fetchers}
}

// Fetch tries each fetcher in order for the provider's plan page.
func (c *Chain) Fetch(ctx context.Context, provider model.ProviderConfig) (*model.RawPage, error) {
	var lastErr error
	for _, f := range c.fetchers {
		page, err := f.Fetch(ctx, provider)
		if err == nil && page != nil && page.HTML != "" {
			zap.L().Debug("fetch: page retrieved",
				zap.String("fetcher", f.Name()),
				zap.String("provider", provider.Name),
				zap.Int("bytes", len(page.HTML)),
			)
			return page, nil
		}
		if err == nil {
			err = eris.Errorf("%s: empty page for %s", f.Name(), provider.URL)
		}
		zap.L().Warn("fetch: strategy failed, trying next",
			zap.String("fetcher", f.Name()),
			zap.String("provider", provider.Name),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = eris.Errorf("no fetchers configured")
	}
	return nil, eris.Wrapf(model.ErrFetch, "fetch %s: %v", provider.Name, lastErr)
}

// Name implements Fetcher so a Chain can nest inside another Chain.
func (c *Chain) Name() string { return "chain" }
