package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolvault/internal/events"
	"poolvault/internal/ledger"
	"poolvault/internal/model"
	"poolvault/internal/pool"
	"poolvault/internal/storage/sqlite"
	"poolvault/internal/token"
)

var programID = solana.MustPublicKeyFromBase58("69Qd1B33Uo7PR2JzfC7finFDaccts85pdpoCSMYbNf8K")

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return pk.PublicKey()
}

func TestUpdateCommitsAndRollsBack(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	addr, owner := newKey(t), newKey(t)

	err := store.Update(ctx, func(tx ledger.Tx) error {
		require.NoError(t, tx.Put(ctx, ledger.Account{Address: addr, Owner: owner, Data: []byte{1, 2, 3}}))
		got, ok, err := tx.Get(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{1, 2, 3}, got.Data)
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Update(ctx, func(tx ledger.Tx) error {
		require.NoError(t, tx.Put(ctx, ledger.Account{Address: addr, Owner: owner, Data: []byte{9}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.View(ctx, func(r ledger.Reader) error {
		got, ok, err := r.Get(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, owner, got.Owner)
		assert.Equal(t, []byte{1, 2, 3}, got.Data)

		_, ok, err = r.Get(ctx, newKey(t))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestDepositSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := sqlite.Open(ctx, path, nil)
	require.NoError(t, err)

	tokens := token.NewProgram(solana.TokenProgramID, nil)
	program, err := pool.NewProgram(
		pool.Config{ProgramID: programID, Registry: prometheus.NewRegistry()},
		store,
		tokens,
		events.NewEmitter(programID, nil, store),
	)
	require.NoError(t, err)

	asset, depositor := newKey(t), newKey(t)
	funded, err := tokens.ApplyGenesis(ctx, store, []token.GenesisMint{{
		Address:   asset,
		Authority: newKey(t),
		Decimals:  6,
		Holdings:  []token.GenesisHolding{{Owner: depositor, Amount: 1000}},
	}})
	require.NoError(t, err)

	require.NoError(t, program.InitializeRegistry(ctx, newKey(t)))
	created, err := program.CreatePool(ctx, newKey(t), asset)
	require.NoError(t, err)

	res, err := program.Deposit(ctx, pool.DepositRequest{
		PoolID:    created.Pool.ID,
		Depositor: depositor,
		Amount:    100,
		Source:    funded[0].Address,
	})
	require.NoError(t, err)

	_, err = program.Deposit(ctx, pool.DepositRequest{
		PoolID:    created.Pool.ID,
		Depositor: depositor,
		Amount:    5000,
		Source:    funded[0].Address,
	})
	require.ErrorIs(t, err, token.ErrInsufficientFunds)

	records, err := store.Events(ctx, res.TxID.String())
	require.NoError(t, err)
	require.Len(t, records, 1)
	evt, err := events.Decode(records[0])
	require.NoError(t, err)
	assert.Equal(t, model.PoolDeposit{Amount: 100, Depositor: depositor, PoolID: 0}, evt)

	all, err := store.Events(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.Close())
	reopened, err := sqlite.Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.View(ctx, func(r ledger.Reader) error {
		vault, ok, err := tokens.Account(ctx, r, res.Vault)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(100), vault.Amount)

		receipt, ok, err := tokens.Account(ctx, r, res.Receipt)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(100), receipt.Amount)

		source, _, err := tokens.Account(ctx, r, funded[0].Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(900), source.Amount)
		return nil
	})
	require.NoError(t, err)
}

func TestPutEventsIgnoresDuplicates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	record, err := events.Encode(programID, uuid.New(), 0, model.PoolCreated{ID: 3, Creator: newKey(t), Asset: newKey(t)}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.PutEvents(ctx, []model.EventRecord{record}))
	require.NoError(t, store.PutEvents(ctx, []model.EventRecord{record}))

	got, err := store.Events(ctx, record.TxID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, record.Data, got[0].Data)
}
