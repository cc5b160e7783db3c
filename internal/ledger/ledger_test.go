package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgram = solana.MustPublicKeyFromBase58("69Qd1B33Uo7PR2JzfC7finFDaccts85pdpoCSMYbNf8K")
	otherOwner  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return pk.PublicKey()
}

func TestMemoryStoreUpdateCommitsOrDiscards(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	addr := newKey(t)

	err := store.Update(ctx, func(tx Tx) error {
		return tx.Put(ctx, Account{Address: addr, Owner: testProgram, Data: []byte{1}})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Update(ctx, func(tx Tx) error {
		if err := tx.Put(ctx, Account{Address: addr, Owner: testProgram, Data: []byte{2}}); err != nil {
			return err
		}
		got, ok, err := tx.Get(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{2}, got.Data, "tx reads its own writes")
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(r Reader) error {
		got, ok, err := r.Get(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{1}, got.Data)
		return nil
	}))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	addr := newKey(t)
	data := []byte{1, 2, 3}

	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		return tx.Put(ctx, Account{Address: addr, Owner: testProgram, Data: data})
	}))
	data[0] = 9

	require.NoError(t, store.View(ctx, func(r Reader) error {
		got, _, err := r.Get(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got.Data)
		got.Data[1] = 9
		return nil
	}))
	require.NoError(t, store.View(ctx, func(r Reader) error {
		got, _, _ := r.Get(ctx, addr)
		assert.Equal(t, []byte{1, 2, 3}, got.Data)
		return nil
	}))
}

func TestUpdateHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewMemoryStore().Update(ctx, func(Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInvocationAuthorize(t *testing.T) {
	ctx := context.Background()
	signer := newKey(t)
	stranger := newKey(t)

	_, err := Execute(ctx, NewMemoryStore(), testProgram, []solana.PublicKey{signer}, func(inv *Invocation) error {
		auth, err := inv.Authorize(signer)
		require.NoError(t, err)
		assert.True(t, auth.Permits(inv, signer))
		assert.False(t, auth.Permits(inv, stranger))

		_, err = inv.Authorize(stranger)
		assert.ErrorIs(t, err, ErrMissingSignature)

		assert.False(t, Authorization{}.Permits(inv, solana.PublicKey{}))
		return nil
	})
	require.NoError(t, err)
}

func TestAuthorizationDoesNotOutliveInvocation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	signer := newKey(t)

	var leaked Authorization
	var first *Invocation
	_, err := Execute(ctx, store, testProgram, []solana.PublicKey{signer}, func(inv *Invocation) error {
		var err error
		leaked, err = inv.Authorize(signer)
		first = inv
		return err
	})
	require.NoError(t, err)
	assert.False(t, leaked.Permits(first, signer))

	_, err = Execute(ctx, store, testProgram, nil, func(inv *Invocation) error {
		assert.False(t, leaked.Permits(inv, signer))
		return nil
	})
	require.NoError(t, err)

	_, _, err = first.Get(ctx, signer)
	assert.ErrorIs(t, err, ErrInvocationClosed)
}

func TestSignWithSeedsUsesInvokingProgram(t *testing.T) {
	ctx := context.Background()
	seed := []byte("mint_authority")
	want, bump, err := FindProgramAddress(testProgram, seed)
	require.NoError(t, err)
	foreign, _, err := FindProgramAddress(otherOwner, seed)
	require.NoError(t, err)

	_, err = Execute(ctx, NewMemoryStore(), testProgram, nil, func(inv *Invocation) error {
		auth, err := inv.SignWithSeeds(seed, []byte{bump})
		require.NoError(t, err)
		assert.Equal(t, want, auth.Key())
		assert.True(t, auth.Permits(inv, want))
		assert.False(t, auth.Permits(inv, foreign))
		return nil
	})
	require.NoError(t, err)
}

func TestInvocationPutKeepsOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	addr := newKey(t)

	_, err := Execute(ctx, store, testProgram, nil, func(inv *Invocation) error {
		return inv.Put(ctx, Account{Address: addr, Owner: testProgram, Data: []byte{1}})
	})
	require.NoError(t, err)

	_, err = Execute(ctx, store, otherOwner, nil, func(inv *Invocation) error {
		return inv.Put(ctx, Account{Address: addr, Owner: otherOwner, Data: []byte{2}})
	})
	assert.ErrorIs(t, err, ErrAccountOwner)
}

func TestU64SeedIsLittleEndian(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, U64Seed(1))
	assert.Equal(t, []byte{0, 1, 0, 0, 0, 0, 0, 0}, U64Seed(256))
}
