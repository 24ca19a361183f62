package index

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string // "sqlite", "postgres", or "memory"
	Path        string // sqlite file path
	DatabaseURL string // postgres connection string
}

// Open opens the configured backend and runs its migration. When the durable
// backend cannot be opened, it falls back to an in-memory index so a query
// session can still proceed, and logs the downgrade.
func Open(ctx context.Context, opts Options) (Index, error) {
	idx, err := open(ctx, opts)
	if err == nil {
		return idx, nil
	}
	zap.L().Warn("durable index unavailable, falling back to in-memory",
		zap.String("driver", opts.Driver),
		zap.Error(err),
	)
	return NewMemory(), nil
}

func open(ctx context.Context, opts Options) (Index, error) {
	switch opts.Driver {
	case "memory":
		return NewMemory(), nil
	case "", "sqlite":
		path := opts.Path
		if path == "" {
			path = "plan_index.db"
		}
		s, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := NewPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := p.Migrate(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	default:
		return nil, eris.Errorf("index: unknown driver %q", opts.Driver)
	}
}
