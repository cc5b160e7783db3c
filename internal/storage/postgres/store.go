// Package postgres is a shared ledger store on Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

// Store provides Postgres persistence for accounts and program events. Updates run as
// SERIALIZABLE transactions; conflicting updates fail with a serialization error.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Migrate creates the tables the store needs.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			address    TEXT PRIMARY KEY,
			owner      TEXT NOT NULL,
			data       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS accounts_owner_idx ON accounts (owner);
		CREATE TABLE IF NOT EXISTS program_events (
			id         UUID PRIMARY KEY,
			tx_id      UUID NOT NULL,
			program    TEXT NOT NULL,
			event_idx  INTEGER NOT NULL,
			name       TEXT NOT NULL,
			data       TEXT NOT NULL,
			decoded    JSONB,
			emitted_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS program_events_tx_idx ON program_events (tx_id);
	`)
	return err
}

func (s *Store) View(ctx context.Context, fn func(ledger.Reader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback(ctx)
	return fn(&pgTx{tx: tx})
}

func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IsSerializationFailure reports whether err is a serialization conflict with a
// concurrent update. The caller may resubmit the instruction.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// PutEvents inserts event records. Records already stored are ignored.
func (s *Store) PutEvents(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		decoded, err := json.Marshal(r.Decoded)
		if err != nil {
			return fmt.Errorf("marshal decoded %s: %w", r.Name, err)
		}
		batch.Queue(`
			INSERT INTO program_events (
				id, tx_id, program, event_idx, name, data, decoded, emitted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`,
			r.ID,
			r.TxID,
			r.Program,
			int32(r.Index),
			r.Name,
			r.Data,
			decoded,
			r.EmittedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Events returns the stored event records of txID in emission order, or every record
// when txID is empty.
func (s *Store) Events(ctx context.Context, txID string) ([]model.EventRecord, error) {
	query := `
		SELECT id::text, tx_id::text, program, event_idx, name, data, emitted_at
		FROM program_events`
	var args []any
	if txID != "" {
		query += ` WHERE tx_id = $1`
		args = append(args, txID)
	}
	query += ` ORDER BY emitted_at, tx_id, event_idx`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		var (
			r         model.EventRecord
			idx       int32
			emittedAt time.Time
		)
		if err := rows.Scan(&r.ID, &r.TxID, &r.Program, &idx, &r.Name, &r.Data, &emittedAt); err != nil {
			return nil, err
		}
		r.Index = uint32(idx)
		r.EmittedAt = emittedAt.UTC().Format(time.RFC3339Nano)
		out = append(out, r)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, address solana.PublicKey) (ledger.Account, bool, error) {
	var (
		owner string
		data  []byte
	)
	row := t.tx.QueryRow(ctx, `SELECT owner, data FROM accounts WHERE address = $1`, address.String())
	if err := row.Scan(&owner, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, false, nil
		}
		return ledger.Account{}, false, fmt.Errorf("get %s: %w", address, err)
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("account %s owner: %w", address, err)
	}
	return ledger.Account{Address: address, Owner: ownerKey, Data: data}, true, nil
}

func (t *pgTx) Put(ctx context.Context, account ledger.Account) error {
	data := account.Data
	if data == nil {
		data = []byte{}
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (address, owner, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (address) DO UPDATE
		SET owner = EXCLUDED.owner, data = EXCLUDED.data, updated_at = now()
	`, account.Address.String(), account.Owner.String(), data)
	if err != nil {
		return fmt.Errorf("put %s: %w", account.Address, err)
	}
	return nil
}
