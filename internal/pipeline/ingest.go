// Package pipeline wires the stages together: ingestion (fetch, extract,
// normalize, embed, index) and advising (parse intent, retrieve, rank,
// generate). Each stage may degrade to a fallback; only losing both the live
// path and the cached one fails a provider.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/planwise/plan-advisor/internal/index"
	"github.com/planwise/plan-advisor/internal/model"
)

// IngestState tracks where a provider's ingestion run is.
type IngestState string

const (
	StateIdle        IngestState = "idle"
	StateFetching    IngestState = "fetching"
	StateExtracting  IngestState = "extracting"
	StateNormalizing IngestState = "normalizing"
	StateEmbedding   IngestState = "embedding"
	StateIndexed     IngestState = "indexed"
	StateDegraded    IngestState = "degraded"
	StateFailed      IngestState = "failed"
)

// IngestResult summarizes one provider's ingestion run.
type IngestResult struct {
	Provider  string      `json:"provider"`
	State     IngestState `json:"state"`
	Plans     int         `json:"plans"`
	Indexed   int         `json:"indexed"`
	FromCache bool        `json:"from_cache"`
	Degraded  bool        `json:"degraded"`
	Err       error       `json:"-"`
}

// Fetcher fetches a provider's plan page.
type Fetcher interface {
	Fetch(ctx context.Context, provider model.ProviderConfig) (*model.RawPage, error)
}

// Extractor pulls raw plan records out of a page.
type Extractor interface {
	Extract(page *model.RawPage) ([]model.RawPlanRecord, error)
}

// Normalizer validates raw records into plans.
type Normalizer interface {
	Normalize(records []model.RawPlanRecord) ([]model.ProcessedPlan, error)
}

// PlanCache stores the last good normalized plans per provider.
type PlanCache interface {
	Save(provider string, plans []model.ProcessedPlan) error
	Load(provider string) ([]model.ProcessedPlan, bool, error)
}

// Embedder builds embedding documents for plans.
type Embedder interface {
	EmbedPlans(ctx context.Context, plans []model.ProcessedPlan) ([]model.EmbeddingDocument, error)
}

// IngestOptions tunes an ingestion run.
type IngestOptions struct {
	// Force refetches even when the cache is fresh.
	Force bool
	// MaxConcurrent bounds providers ingested in parallel.
	MaxConcurrent int
	// ProviderTimeout bounds one provider's run end to end.
	ProviderTimeout time.Duration
}

// Ingestor runs the ingestion pipeline.
type Ingestor struct {
	fetcher    Fetcher
	extractor  Extractor
	normalizer Normalizer
	cache      PlanCache
	embedder   Embedder
	idx        index.Index
}

// NewIngestor creates an Ingestor.
func NewIngestor(fetcher Fetcher, extractor Extractor, normalizer Normalizer, cache PlanCache, embedder Embedder, idx index.Index) *Ingestor {
	return &Ingestor{
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		cache:      cache,
		embedder:   embedder,
		idx:        idx,
	}
}

// IngestProvider runs the full pipeline for one provider. A fresh cache
// short-circuits fetching unless forced; a dead page falls back to the cache
// even when stale, marking the run degraded. The result always carries the
// terminal state; Err is set only on total failure.
func (ing *Ingestor) IngestProvider(ctx context.Context, provider model.ProviderConfig, opts IngestOptions) IngestResult {
	res := IngestResult{Provider: provider.Name, State: StateIdle}
	log := zap.L().With(zap.String("provider", provider.Name))

	plans, fromCache, degraded, err := ing.gatherPlans(ctx, provider, opts, &res, log)
	if err != nil {
		res.State = StateFailed
		res.Err = err
		log.Error("ingestion failed", zap.Error(err))
		return res
	}
	res.Plans = len(plans)
	res.FromCache = fromCache
	res.Degraded = degraded

	res.State = StateEmbedding
	docs, err := ing.embedder.EmbedPlans(ctx, plans)
	if len(docs) == 0 {
		res.State = StateFailed
		res.Err = eris.Wrapf(model.ErrNoData, "ingest %s: no documents produced", provider.Name)
		log.Error("ingestion failed", zap.Error(res.Err))
		return res
	}
	if err != nil {
		res.Degraded = true
		log.Warn("partial embedding", zap.Error(err))
	}

	if err := ing.idx.Upsert(ctx, docs); err != nil {
		res.State = StateFailed
		res.Err = eris.Wrapf(err, "ingest %s: index upsert", provider.Name)
		log.Error("ingestion failed", zap.Error(res.Err))
		return res
	}
	res.Indexed = len(docs)

	if res.Degraded {
		res.State = StateDegraded
	} else {
		res.State = StateIndexed
	}
	log.Info("provider ingested",
		zap.String("state", string(res.State)),
		zap.Int("plans", res.Plans),
		zap.Int("indexed", res.Indexed),
		zap.Bool("from_cache", res.FromCache),
	)
	return res
}

// gatherPlans produces normalized plans, preferring the live page and
// falling back to the cache.
func (ing *Ingestor) gatherPlans(ctx context.Context, provider model.ProviderConfig, opts IngestOptions, res *IngestResult, log *zap.Logger) ([]model.ProcessedPlan, bool, bool, error) {
	if !opts.Force {
		if cached, stale, err := ing.cache.Load(provider.Name); err == nil && !stale && len(cached) > 0 {
			log.Debug("using fresh cache", zap.Int("plans", len(cached)))
			return cached, true, false, nil
		}
	}

	plans, liveErr := ing.livePlans(ctx, provider, res)
	if liveErr == nil {
		if err := ing.cache.Save(provider.Name, plans); err != nil {
			log.Warn("cache save failed", zap.Error(err))
		}
		return plans, false, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, false, eris.Wrapf(ctx.Err(), "ingest %s", provider.Name)
	}
	log.Warn("live ingestion failed, trying cache", zap.Error(liveErr))

	cached, stale, cacheErr := ing.cache.Load(provider.Name)
	if cacheErr != nil || len(cached) == 0 {
		return nil, false, false, eris.Wrapf(liveErr, "ingest %s: no cache to fall back on", provider.Name)
	}
	if stale {
		log.Warn("falling back to stale cache", zap.Int("plans", len(cached)))
	}
	return cached, true, true, nil
}

func (ing *Ingestor) livePlans(ctx context.Context, provider model.ProviderConfig, res *IngestResult) ([]model.ProcessedPlan, error) {
	res.State = StateFetching
	page, err := ing.fetcher.Fetch(ctx, provider)
	if err != nil {
		return nil, err
	}

	res.State = StateExtracting
	records, err := ing.extractor.Extract(page)
	if err != nil {
		return nil, err
	}

	res.State = StateNormalizing
	return ing.normalizer.Normalize(records)
}

// IngestAll ingests every provider, bounded by MaxConcurrent. It returns
// each provider's result; the error is non-nil only when every provider
// failed.
func (ing *Ingestor) IngestAll(ctx context.Context, providers []model.ProviderConfig, opts IngestOptions) ([]IngestResult, error) {
	if len(providers) == 0 {
		return nil, eris.Wrap(model.ErrNoData, "ingest: no providers configured")
	}
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = 3
	}

	results := make([]IngestResult, len(providers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, provider := range providers {
		g.Go(func() error {
			runCtx := gctx
			if opts.ProviderTimeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(gctx, opts.ProviderTimeout)
				defer cancel()
			}
			results[i] = ing.IngestProvider(runCtx, provider, opts)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if r.State == StateFailed {
			failed++
		}
	}
	if failed == len(results) {
		return results, eris.Wrap(model.ErrNoData, "ingest: all providers failed")
	}
	return results, nil
}
