// Package extract turns raw page markup into plan records. Strategies are
// tried in order — structured CSS selectors, then regex vocabulary matching,
// then a static known-plans table — until one yields at least one valid
// record. Partial extraction is success; only zero valid records from every
// strategy is a failure.
package extract

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
)

// Strategy is one way of pulling plan records out of a page. Implementations
// are pure: no shared state, no network.
type Strategy interface {
	Name() string
	Extract(page *model.RawPage) []model.RawPlanRecord
}

// Extractor applies strategies in order until one yields a valid record.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an Extractor with the given strategies, tried in order.
func NewExtractor(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract runs the strategy ladder against the page. Records missing a name
// or price text are dropped with a logged warning, not a hard failure.
func (e *Extractor) Extract(page *model.RawPage) ([]model.RawPlanRecord, error) {
	for _, s := range e.strategies {
		records := s.Extract(page)
		valid := records[:0:0]
		for _, r := range records {
			if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.PriceText) == "" {
				zap.L().Warn("extraction warning: dropping incomplete record",
					zap.String("strategy", s.Name()),
					zap.String("provider", page.Provider),
					zap.String("name", r.Name),
					zap.String("price_text", r.PriceText),
				)
				continue
			}
			valid = append(valid, r)
		}
		if len(valid) > 0 {
			zap.L().Info("extraction complete",
				zap.String("strategy", s.Name()),
				zap.String("provider", page.Provider),
				zap.Int("records", len(valid)),
			)
			return valid, nil
		}
	}
	return nil, eris.Wrapf(model.ErrExtraction, "extract %s from %s", page.Provider, page.URL)
}
