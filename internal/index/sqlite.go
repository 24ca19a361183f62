package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/planwise/plan-advisor/internal/model"
)

// SQLiteIndex implements Index using modernc.org/sqlite. Vectors are stored
// as little-endian float32 BLOBs; similarity is computed in process, which is
// fine at plan-catalog scale.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLite opens a SQLite index at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite index: exec %s", pragma)
		}
	}
	return &SQLiteIndex{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS plan_documents (
	id         TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	plan       TEXT NOT NULL,
	vector     BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plan_documents_provider ON plan_documents(provider);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteIndex) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite index: migrate")
}

func (s *SQLiteIndex) Upsert(ctx context.Context, docs []model.EmbeddingDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite index: begin upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plan_documents (id, provider, name, body, plan, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			name = excluded.name,
			body = excluded.body,
			plan = excluded.plan,
			vector = excluded.vector,
			updated_at = excluded.updated_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite index: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID == "" {
			return eris.New("sqlite index: document with empty ID")
		}
		planJSON, err := json.Marshal(doc.Plan)
		if err != nil {
			return eris.Wrapf(err, "sqlite index: marshal plan %s", doc.ID)
		}
		if _, err := stmt.ExecContext(ctx,
			doc.ID, doc.Metadata.Provider, doc.Metadata.Name, doc.Text,
			string(planJSON), encodeVector(doc.Vector), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite index: upsert %s", doc.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite index: commit upsert")
}

func (s *SQLiteIndex) Search(ctx context.Context, vector []float32, filter Filter, k int) ([]SearchResult, error) {
	query := `SELECT id, provider, name, body, plan, vector FROM plan_documents`
	var args []any
	if filter.Provider != "" {
		query += ` WHERE provider = ? COLLATE NOCASE`
		args = append(args, filter.Provider)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: search")
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			doc      model.EmbeddingDocument
			planJSON string
			blob     []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Metadata.Provider, &doc.Metadata.Name, &doc.Text, &planJSON, &blob); err != nil {
			return nil, eris.Wrap(err, "sqlite index: scan document")
		}
		if err := json.Unmarshal([]byte(planJSON), &doc.Plan); err != nil {
			return nil, eris.Wrapf(err, "sqlite index: decode plan %s", doc.ID)
		}
		if doc.Vector, err = decodeVector(blob); err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Document: doc, Score: similarity(vector, doc.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite index: iterate documents")
	}

	if len(results) == 0 {
		if empty, err := s.empty(ctx); err != nil {
			return nil, err
		} else if empty {
			return nil, eris.Wrap(model.ErrEmptyIndex, "sqlite index: search")
		}
	}
	return topK(results, k), nil
}

func (s *SQLiteIndex) empty(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plan_documents`).Scan(&n); err != nil {
		return false, eris.Wrap(err, "sqlite index: count")
	}
	return n == 0, nil
}

func (s *SQLiteIndex) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Providers: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx, `SELECT provider, COUNT(*) FROM plan_documents GROUP BY provider`)
	if err != nil {
		return Stats{}, eris.Wrap(err, "sqlite index: stats")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			provider string
			n        int
		)
		if err := rows.Scan(&provider, &n); err != nil {
			return Stats{}, eris.Wrap(err, "sqlite index: scan stats")
		}
		stats.Providers[provider] = n
		stats.Documents += n
	}
	return stats, eris.Wrap(rows.Err(), "sqlite index: iterate stats")
}

func (s *SQLiteIndex) Ephemeral() bool { return false }

func (s *SQLiteIndex) Close() error { return s.db.Close() }
