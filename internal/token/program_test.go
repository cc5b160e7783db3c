package token

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolvault/internal/ledger"
)

var callerProgram = solana.MustPublicKeyFromBase58("69Qd1B33Uo7PR2JzfC7finFDaccts85pdpoCSMYbNf8K")

type fixture struct {
	store     *ledger.MemoryStore
	tokens    *Program
	mint      solana.PublicKey
	authority solana.PublicKey
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return pk.PublicKey()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     ledger.NewMemoryStore(),
		tokens:    NewProgram(solana.TokenProgramID, nil),
		mint:      newKey(t),
		authority: newKey(t),
	}
	f.exec(t, []solana.PublicKey{f.mint}, func(ctx context.Context, inv *ledger.Invocation) error {
		auth, err := inv.Authorize(f.mint)
		require.NoError(t, err)
		return f.tokens.InitializeMint(ctx, inv, auth, f.mint, f.authority, 6)
	})
	return f
}

func (f *fixture) exec(t *testing.T, signers []solana.PublicKey, fn func(context.Context, *ledger.Invocation) error) {
	t.Helper()
	require.NoError(t, f.try(signers, fn))
}

func (f *fixture) try(signers []solana.PublicKey, fn func(context.Context, *ledger.Invocation) error) error {
	ctx := context.Background()
	_, err := ledger.Execute(ctx, f.store, callerProgram, signers, func(inv *ledger.Invocation) error {
		return fn(ctx, inv)
	})
	return err
}

// fund creates owner's associated holding and mints amount into it.
func (f *fixture) fund(t *testing.T, owner solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	var holding solana.PublicKey
	f.exec(t, []solana.PublicKey{f.authority}, func(ctx context.Context, inv *ledger.Invocation) error {
		var err error
		holding, _, err = f.tokens.CreateAssociatedAccount(ctx, inv, owner, f.mint)
		if err != nil {
			return err
		}
		auth, err := inv.Authorize(f.authority)
		if err != nil {
			return err
		}
		return f.tokens.MintTo(ctx, inv, auth, f.mint, holding, amount)
	})
	return holding
}

func (f *fixture) balance(t *testing.T, holding solana.PublicKey) uint64 {
	t.Helper()
	var amount uint64
	require.NoError(t, f.store.View(context.Background(), func(r ledger.Reader) error {
		acct, ok, err := f.tokens.Account(context.Background(), r, holding)
		require.True(t, ok)
		amount = acct.Amount
		return err
	}))
	return amount
}

func TestAssociatedAddressMatchesCanonicalDerivation(t *testing.T) {
	owner := newKey(t)
	mint := newKey(t)
	tokens := NewProgram(solana.TokenProgramID, nil)

	got, err := tokens.AssociatedAddress(owner, mint)
	require.NoError(t, err)
	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInitializeMintRequiresAddressSignature(t *testing.T) {
	f := newFixture(t)
	other := newKey(t)

	err := f.try([]solana.PublicKey{f.authority}, func(ctx context.Context, inv *ledger.Invocation) error {
		auth, _ := inv.Authorize(f.authority)
		return f.tokens.InitializeMint(ctx, inv, auth, other, f.authority, 0)
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = f.try([]solana.PublicKey{f.mint}, func(ctx context.Context, inv *ledger.Invocation) error {
		auth, _ := inv.Authorize(f.mint)
		return f.tokens.InitializeMint(ctx, inv, auth, f.mint, f.authority, 0)
	})
	assert.ErrorIs(t, err, ErrAlreadyInUse)
}

func TestCreateAssociatedAccountIsIdempotent(t *testing.T) {
	f := newFixture(t)
	owner := newKey(t)
	holding := f.fund(t, owner, 50)

	f.exec(t, nil, func(ctx context.Context, inv *ledger.Invocation) error {
		again, created, err := f.tokens.CreateAssociatedAccount(ctx, inv, owner, f.mint)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, holding, again)
		return nil
	})
	assert.Equal(t, uint64(50), f.balance(t, holding))

	err := f.try(nil, func(ctx context.Context, inv *ledger.Invocation) error {
		_, _, err := f.tokens.CreateAssociatedAccount(ctx, inv, owner, newKey(t))
		return err
	})
	assert.ErrorIs(t, err, ErrMintNotFound)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	alice, bob := newKey(t), newKey(t)
	aliceHolding := f.fund(t, alice, 100)
	bobHolding := f.fund(t, bob, 0)

	t.Run("moves balance", func(t *testing.T) {
		f.exec(t, []solana.PublicKey{alice}, func(ctx context.Context, inv *ledger.Invocation) error {
			auth, err := inv.Authorize(alice)
			require.NoError(t, err)
			return f.tokens.Transfer(ctx, inv, auth, aliceHolding, bobHolding, 40)
		})
		assert.Equal(t, uint64(60), f.balance(t, aliceHolding))
		assert.Equal(t, uint64(40), f.balance(t, bobHolding))
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		err := f.try([]solana.PublicKey{bob}, func(ctx context.Context, inv *ledger.Invocation) error {
			auth, _ := inv.Authorize(bob)
			return f.tokens.Transfer(ctx, inv, auth, aliceHolding, bobHolding, 1)
		})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects overdraft", func(t *testing.T) {
		err := f.try([]solana.PublicKey{alice}, func(ctx context.Context, inv *ledger.Invocation) error {
			auth, _ := inv.Authorize(alice)
			return f.tokens.Transfer(ctx, inv, auth, aliceHolding, bobHolding, 61)
		})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, uint64(60), f.balance(t, aliceHolding))
	})

	t.Run("rejects missing destination", func(t *testing.T) {
		err := f.try([]solana.PublicKey{alice}, func(ctx context.Context, inv *ledger.Invocation) error {
			auth, _ := inv.Authorize(alice)
			return f.tokens.Transfer(ctx, inv, auth, aliceHolding, newKey(t), 1)
		})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestMintToRequiresMintAuthority(t *testing.T) {
	f := newFixture(t)
	owner := newKey(t)
	holding := f.fund(t, owner, 10)

	err := f.try([]solana.PublicKey{owner}, func(ctx context.Context, inv *ledger.Invocation) error {
		auth, _ := inv.Authorize(owner)
		return f.tokens.MintTo(ctx, inv, auth, f.mint, holding, 5)
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(10), f.balance(t, holding))

	require.NoError(t, f.store.View(context.Background(), func(r ledger.Reader) error {
		mint, ok, err := f.tokens.Mint(context.Background(), r, f.mint)
		require.True(t, ok)
		assert.Equal(t, uint64(10), mint.Supply)
		return err
	}))
}

func TestMintToRejectsForeignHolding(t *testing.T) {
	f := newFixture(t)
	g := newFixture(t)
	g.store = f.store
	g.exec(t, []solana.PublicKey{g.mint}, func(ctx context.Context, inv *ledger.Invocation) error {
		auth, _ := inv.Authorize(g.mint)
		return g.tokens.InitializeMint(ctx, inv, auth, g.mint, g.authority, 0)
	})
	owner := newKey(t)
	foreign := g.fund(t, owner, 0)

	err := f.try([]solana.PublicKey{f.authority}, func(ctx context.Context, inv *ledger.Invocation) error {
		auth, _ := inv.Authorize(f.authority)
		return f.tokens.MintTo(ctx, inv, auth, f.mint, foreign, 1)
	})
	assert.ErrorIs(t, err, ErrMintMismatch)
}

func TestFormatAndParseAmount(t *testing.T) {
	assert.Equal(t, "1.500000", FormatAmount(1_500_000, 6))
	assert.Equal(t, "42", FormatAmount(42, 0))

	raw, err := ParseAmount("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), raw)

	_, err = ParseAmount("0.0000001", 6)
	assert.Error(t, err)
	_, err = ParseAmount("-1", 6)
	assert.Error(t, err)
	_, err = ParseAmount("abc", 6)
	assert.Error(t, err)
}

func TestApplyGenesis(t *testing.T) {
	store := ledger.NewMemoryStore()
	tokens := NewProgram(solana.TokenProgramID, nil)
	mint, authority := newKey(t), newKey(t)
	alice, bob := newKey(t), newKey(t)

	funded, err := tokens.ApplyGenesis(context.Background(), store, []GenesisMint{{
		Address:   mint,
		Authority: authority,
		Decimals:  9,
		Holdings: []GenesisHolding{
			{Owner: alice, Amount: 500},
			{Owner: bob, Amount: 25},
		},
	}})
	require.NoError(t, err)
	require.Len(t, funded, 2)

	err = store.View(context.Background(), func(r ledger.Reader) error {
		m, ok, err := tokens.Mint(context.Background(), r, mint)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(525), m.Supply)
		assert.Equal(t, uint8(9), m.Decimals)

		h, ok, err := tokens.Account(context.Background(), r, funded[0].Address)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, alice, h.Owner)
		assert.Equal(t, uint64(500), h.Amount)
		return nil
	})
	require.NoError(t, err)

	_, err = tokens.ApplyGenesis(context.Background(), store, []GenesisMint{{Address: mint, Authority: authority}})
	require.ErrorIs(t, err, ErrAlreadyInUse)
}
