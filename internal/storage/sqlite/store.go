// Package sqlite is a single-file ledger store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

// Store persists accounts and event records in one SQLite database. Updates are
// serialized over a single connection.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open opens (or creates) the database at path and runs migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			address TEXT PRIMARY KEY,
			owner   TEXT NOT NULL,
			data    BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner)`,

		`CREATE TABLE IF NOT EXISTS program_events (
			id         TEXT PRIMARY KEY,
			tx_id      TEXT NOT NULL,
			program    TEXT NOT NULL,
			event_idx  INTEGER NOT NULL,
			name       TEXT NOT NULL,
			data       TEXT NOT NULL,
			decoded    TEXT,
			emitted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tx ON program_events(tx_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) View(ctx context.Context, fn func(ledger.Reader) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()
	return fn(&sqlTx{tx: tx})
}

func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PutEvents appends event records. Records already stored are ignored.
func (s *Store) PutEvents(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range records {
		decoded, err := json.Marshal(r.Decoded)
		if err != nil {
			return fmt.Errorf("marshal decoded %s: %w", r.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO program_events
			(id, tx_id, program, event_idx, name, data, decoded, emitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.TxID, r.Program, r.Index, r.Name, r.Data, string(decoded), r.EmittedAt,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Events returns the stored event records of txID in emission order, or every record
// when txID is empty.
func (s *Store) Events(ctx context.Context, txID string) ([]model.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, tx_id, program, event_idx, name, data, emitted_at FROM program_events`
	var args []any
	if txID != "" {
		query += ` WHERE tx_id = ?`
		args = append(args, txID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		var r model.EventRecord
		if err := rows.Scan(&r.ID, &r.TxID, &r.Program, &r.Index, &r.Name, &r.Data, &r.EmittedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Get(ctx context.Context, address solana.PublicKey) (ledger.Account, bool, error) {
	var owner string
	var data []byte
	err := t.tx.QueryRowContext(ctx, `SELECT owner, data FROM accounts WHERE address = ?`, address.String()).Scan(&owner, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("get %s: %w", address, err)
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("account %s owner: %w", address, err)
	}
	return ledger.Account{Address: address, Owner: ownerKey, Data: data}, true, nil
}

func (t *sqlTx) Put(ctx context.Context, account ledger.Account) error {
	data := account.Data
	if data == nil {
		data = []byte{}
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO accounts (address, owner, data) VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET owner = excluded.owner, data = excluded.data`,
		account.Address.String(), account.Owner.String(), data,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", account.Address, err)
	}
	return nil
}
