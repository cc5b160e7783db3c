package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolvault/internal/events"
	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, Options{Kind: KindMemory})
	require.NoError(t, err)
	assert.IsType(t, &ledger.MemoryStore{}, mem.Store)
	assert.Nil(t, mem.Events)

	lite, err := Open(ctx, Options{Kind: KindSQLite, SQLitePath: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	defer lite.Store.Close()
	assert.NotNil(t, lite.Events)

	_, err = Open(ctx, Options{Kind: "etcd"})
	require.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestJsonlRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJsonlStorage(path)
	program := solana.MustPublicKeyFromBase58("69Qd1B33Uo7PR2JzfC7finFDaccts85pdpoCSMYbNf8K")
	depositor := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	emitter := events.NewEmitter(program, nil, sink)
	txID := uuid.New()
	emitter.Emit(context.Background(), txID, model.PoolDeposit{Amount: 100, Depositor: depositor, PoolID: 0})
	emitter.Emit(context.Background(), uuid.New(), model.PoolDeposit{Amount: 5, Depositor: depositor, PoolID: 1})

	records, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, txID.String(), records[0].TxID)
	assert.Equal(t, model.EventPoolDeposit, records[0].Name)

	evt, err := events.Decode(records[0])
	require.NoError(t, err)
	assert.Equal(t, model.PoolDeposit{Amount: 100, Depositor: depositor, PoolID: 0}, evt)
}

func TestReadEventsMissingFile(t *testing.T) {
	_, err := ReadEvents(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}
