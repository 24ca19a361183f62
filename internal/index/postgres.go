package index

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/planwise/plan-advisor/internal/model"
)

// Pool is the subset of pgxpool.Pool the index uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresIndex implements Index over a pgx connection pool.
type PostgresIndex struct {
	pool Pool
}

// NewPostgres creates a PostgresIndex with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresIndex, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres index: ping")
	}
	return &PostgresIndex{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plan_documents (
	id         TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	plan       JSONB NOT NULL,
	vector     BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_plan_documents_provider ON plan_documents(provider);
`

// Migrate creates the schema if it does not exist.
func (p *PostgresIndex) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres index: migrate")
}

const upsertDocument = `
INSERT INTO plan_documents (id, provider, name, body, plan, vector, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	provider = EXCLUDED.provider,
	name = EXCLUDED.name,
	body = EXCLUDED.body,
	plan = EXCLUDED.plan,
	vector = EXCLUDED.vector,
	updated_at = EXCLUDED.updated_at`

func (p *PostgresIndex) Upsert(ctx context.Context, docs []model.EmbeddingDocument) error {
	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID == "" {
			return eris.New("postgres index: document with empty ID")
		}
		planJSON, err := json.Marshal(doc.Plan)
		if err != nil {
			return eris.Wrapf(err, "postgres index: marshal plan %s", doc.ID)
		}
		if _, err := p.pool.Exec(ctx, upsertDocument,
			doc.ID, doc.Metadata.Provider, doc.Metadata.Name, doc.Text,
			planJSON, encodeVector(doc.Vector), now,
		); err != nil {
			return eris.Wrapf(err, "postgres index: upsert %s", doc.ID)
		}
	}
	return nil
}

func (p *PostgresIndex) Search(ctx context.Context, vector []float32, filter Filter, k int) ([]SearchResult, error) {
	query := `SELECT id, provider, name, body, plan, vector FROM plan_documents`
	var args []any
	if filter.Provider != "" {
		query += ` WHERE lower(provider) = lower($1)`
		args = append(args, filter.Provider)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: search")
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			doc      model.EmbeddingDocument
			planJSON []byte
			blob     []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Metadata.Provider, &doc.Metadata.Name, &doc.Text, &planJSON, &blob); err != nil {
			return nil, eris.Wrap(err, "postgres index: scan document")
		}
		if err := json.Unmarshal(planJSON, &doc.Plan); err != nil {
			return nil, eris.Wrapf(err, "postgres index: decode plan %s", doc.ID)
		}
		if doc.Vector, err = decodeVector(blob); err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Document: doc, Score: similarity(vector, doc.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres index: iterate documents")
	}

	if len(results) == 0 {
		var n int
		if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM plan_documents`).Scan(&n); err != nil {
			return nil, eris.Wrap(err, "postgres index: count")
		}
		if n == 0 {
			return nil, eris.Wrap(model.ErrEmptyIndex, "postgres index: search")
		}
	}
	return topK(results, k), nil
}

func (p *PostgresIndex) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Providers: make(map[string]int)}
	rows, err := p.pool.Query(ctx, `SELECT provider, COUNT(*) FROM plan_documents GROUP BY provider`)
	if err != nil {
		return Stats{}, eris.Wrap(err, "postgres index: stats")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			provider string
			n        int
		)
		if err := rows.Scan(&provider, &n); err != nil {
			return Stats{}, eris.Wrap(err, "postgres index: scan stats")
		}
		stats.Providers[provider] = n
		stats.Documents += n
	}
	return stats, eris.Wrap(rows.Err(), "postgres index: iterate stats")
}

func (p *PostgresIndex) Ephemeral() bool { return false }

func (p *PostgresIndex) Close() error {
	p.pool.Close()
	return nil
}
