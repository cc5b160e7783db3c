// Package storage opens the ledger store backends and the event sinks that sit next
// to them.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolvault/internal/events"
	"poolvault/internal/ledger"
	"poolvault/internal/storage/postgres"
	"poolvault/internal/storage/sqlite"
)

const (
	KindMemory   = "memory"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Kind         string
	SQLitePath   string
	PostgresDSN  string
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// Backend is an opened store. Events is nil when the backend keeps no event log.
type Backend struct {
	Store  ledger.Store
	Events events.Sink
}

// Open opens the backend named by opts.Kind. Only the Postgres connection is retried.
func Open(ctx context.Context, opts Options) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Kind {
	case KindMemory:
		return Backend{Store: ledger.NewMemoryStore()}, nil
	case KindSQLite, "":
		store, err := sqlite.Open(ctx, opts.SQLitePath, logger)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Store: store, Events: store}, nil
	case KindPostgres:
		store, err := postgres.NewStore(ctx, opts.PostgresDSN)
		if err != nil {
			return Backend{}, err
		}
		attempt := 0
		err = withRetry(ctx, opts.MaxRetries, opts.RetryBackoff, func(ctx context.Context) error {
			attempt++
			if err := store.Ping(ctx); err != nil {
				logger.Warn("postgres not reachable", zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
			return nil
		})
		if err == nil {
			err = store.Migrate(ctx)
		}
		if err != nil {
			store.Close()
			return Backend{}, fmt.Errorf("postgres: %w", err)
		}
		logger.Info("postgres store opened")
		return Backend{Store: store, Events: store}, nil
	default:
		return Backend{}, fmt.Errorf("unknown store %q", opts.Kind)
	}
}
