package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/embed"
	"github.com/planwise/plan-advisor/internal/extract"
	"github.com/planwise/plan-advisor/internal/fetch"
	"github.com/planwise/plan-advisor/internal/index"
	"github.com/planwise/plan-advisor/internal/intent"
	"github.com/planwise/plan-advisor/internal/normalize"
	"github.com/planwise/plan-advisor/internal/pipeline"
	"github.com/planwise/plan-advisor/internal/planner"
	"github.com/planwise/plan-advisor/internal/respond"
	anthropicpkg "github.com/planwise/plan-advisor/pkg/anthropic"
	"github.com/planwise/plan-advisor/pkg/firecrawl"
)

// advisorEnv holds everything the ingest/ask/serve/status commands need.
type advisorEnv struct {
	Index    index.Index
	Ingestor *pipeline.Ingestor
	Advisor  *pipeline.Advisor
}

// Close releases resources held by the environment.
func (e *advisorEnv) Close() {
	if e.Index != nil {
		_ = e.Index.Close()
	}
}

// initEnv opens the index and wires the ingestion and query pipelines.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*advisorEnv, error) {
	idx, err := index.Open(ctx, index.Options{
		Driver:      cfg.Index.Driver,
		Path:        cfg.Index.Path,
		DatabaseURL: cfg.Index.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(embed.Config{
		APIKey:            cfg.Embeddings.Key,
		BaseURL:           cfg.Embeddings.BaseURL,
		Model:             cfg.Embeddings.Model,
		BatchSize:         cfg.Embeddings.BatchSize,
		RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
		RequestTimeout:    time.Duration(cfg.Embeddings.TimeoutSecs) * time.Second,
	})
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	env := &advisorEnv{
		Index:    idx,
		Ingestor: pipeline.NewIngestor(buildFetcher(), buildExtractor(), normalize.NewNormalizer(), buildCache(), embedder, idx),
		Advisor: pipeline.NewAdvisor(
			intent.NewParser(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
			planner.New(embedder, idx, anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.Query.TopK),
			respond.NewGenerator(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
		),
	}
	return env, nil
}

// buildFetcher assembles the fetch chain: dynamic rendering first when a
// Firecrawl key is configured, plain HTTP as the fallback.
func buildFetcher() *fetch.Chain {
	var fetchers []fetch.Fetcher
	if cfg.Firecrawl.Key != "" {
		client := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		fetchers = append(fetchers, fetch.NewDynamicFetcher(client, time.Duration(cfg.Firecrawl.TimeoutSecs)*time.Second))
	} else {
		zap.L().Debug("PLANADVISOR_FIRECRAWL_KEY not set, dynamic rendering disabled")
	}
	fetchers = append(fetchers, fetch.NewStaticFetcher())
	return fetch.NewChain(fetchers...)
}

// buildExtractor assembles the strategy ladder: configured CSS selector maps,
// then vocabulary patterns, then the static known-plans table.
func buildExtractor() *extract.Extractor {
	maps := make(map[string]extract.SelectorMap)
	for _, p := range cfg.Providers {
		if p.SelectorMapPath == "" {
			continue
		}
		m, err := extract.LoadSelectorMap(p.SelectorMapPath)
		if err != nil {
			zap.L().Warn("skipping selector map",
				zap.String("provider", p.Name),
				zap.Error(err),
			)
			continue
		}
		maps[p.Name] = m
	}
	return extract.NewExtractor(
		extract.NewSelectorStrategy(maps),
		extract.NewPatternStrategy(),
		extract.NewKnownPlansStrategy(),
	)
}

func buildCache() *normalize.Cache {
	return normalize.NewCache(cfg.Cache.Dir, time.Duration(cfg.Cache.FreshnessHours)*time.Hour)
}

func ingestOptions(force bool) pipeline.IngestOptions {
	return pipeline.IngestOptions{
		Force:           force,
		MaxConcurrent:   cfg.Ingest.MaxConcurrentProviders,
		ProviderTimeout: time.Duration(cfg.Ingest.ProviderTimeoutSecs) * time.Second,
	}
}

func requireProviders() error {
	if len(cfg.Providers) == 0 {
		return eris.New("no providers configured; add a providers list to config.yaml")
	}
	return nil
}
