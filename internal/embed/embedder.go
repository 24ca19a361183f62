// Package embed turns plan documents into vectors via an OpenAI-compatible
// embeddings API. Requests are batched and rate limited; a failed batch does
// not discard the batches that already succeeded.
package embed

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/planwise/plan-advisor/internal/model"
	"github.com/planwise/plan-advisor/internal/resilience"
)

// Embedder generates vectors for texts. Implemented over langchaingo for
// production and faked in tests.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Config tunes the batch embedder.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	BatchSize         int
	RequestsPerSecond float64
	RequestTimeout    time.Duration
}

// BatchEmbedder embeds plan documents in fixed-size batches with retry and
// client-side rate limiting. Every call to the API carries its own deadline
// so a hung endpoint cannot stall a query or an ingestion run.
type BatchEmbedder struct {
	embedder       Embedder
	batchSize      int
	limiter        *rate.Limiter
	retry          resilience.RetryConfig
	requestTimeout time.Duration
}

// New creates a BatchEmbedder backed by the configured OpenAI-compatible API.
func New(cfg Config) (*BatchEmbedder, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "embed: create client")
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, eris.Wrap(err, "embed: create embedder")
	}
	return NewWithEmbedder(langchainEmbedder{embedder}, cfg), nil
}

const defaultRequestTimeout = 30 * time.Second

// NewWithEmbedder creates a BatchEmbedder over an existing Embedder.
func NewWithEmbedder(e Embedder, cfg Config) *BatchEmbedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("embeddings", "embed_texts")
	// A timed-out attempt gets its own fresh deadline on retry.
	retry.ShouldRetry = func(err error) bool {
		return errors.Is(err, context.DeadlineExceeded) || resilience.IsTransient(err)
	}

	return &BatchEmbedder{
		embedder:       e,
		batchSize:      batchSize,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		retry:          retry,
		requestTimeout: timeout,
	}
}

// EmbedPlans builds embedding documents for the plans. Batches that fail
// after retries are skipped; the documents from successful batches are
// returned alongside an ErrEmbedding-wrapped error describing the loss.
// Only a total loss returns zero documents.
func (b *BatchEmbedder) EmbedPlans(ctx context.Context, plans []model.ProcessedPlan) ([]model.EmbeddingDocument, error) {
	var (
		docs   []model.EmbeddingDocument
		failed int
	)
	for start := 0; start < len(plans); start += b.batchSize {
		end := start + b.batchSize
		if end > len(plans) {
			end = len(plans)
		}
		batch := plans[start:end]

		vectors, err := b.embedBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return docs, eris.Wrap(ctx.Err(), "embed: canceled")
			}
			failed += len(batch)
			zap.L().Warn("embedding batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}
		for i, plan := range batch {
			docs = append(docs, model.NewEmbeddingDocument(plan, vectors[i]))
		}
	}

	if failed > 0 {
		return docs, eris.Wrapf(model.ErrEmbedding, "embed: %d of %d plans failed", failed, len(plans))
	}
	return docs, nil
}

// EmbedQuery embeds a single search string.
func (b *BatchEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.embedTexts(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrap(err, "embed: query")
	}
	return vectors[0], nil
}

func (b *BatchEmbedder) embedBatch(ctx context.Context, batch []model.ProcessedPlan) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, plan := range batch {
		texts[i] = plan.EmbeddingText()
	}
	return b.embedTexts(ctx, texts)
}

func (b *BatchEmbedder) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.DoVal(ctx, b.retry, func(ctx context.Context) ([][]float32, error) {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
		defer cancel()
		vectors, err := b.embedder.EmbedTexts(callCtx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, eris.Errorf("embed: got %d vectors for %d texts", len(vectors), len(texts))
		}
		return vectors, nil
	})
}

// langchainEmbedder adapts embeddings.Embedder to the local interface.
type langchainEmbedder struct {
	inner embeddings.Embedder
}

func (l langchainEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return l.inner.EmbedDocuments(ctx, texts)
}
