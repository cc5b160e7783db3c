// Package token implements the token program the pool program consumes for asset
// transfers and receipt minting.
package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
)

var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrMintNotFound      = errors.New("mint not found")
	ErrAlreadyInUse      = errors.New("account already in use")
	ErrInvalidAccount    = errors.New("account is not a token program account")
	ErrUnauthorized      = errors.New("authority did not sign")
	ErrMintMismatch      = errors.New("account not associated with this mint")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("operation overflowed")
)

// Program is the token program bound to its on-ledger identity.
type Program struct {
	id     solana.PublicKey
	logger *zap.Logger
}

func NewProgram(id solana.PublicKey, logger *zap.Logger) *Program {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{id: id, logger: logger}
}

// ID returns the program identity that owns mints and holdings.
func (p *Program) ID() solana.PublicKey { return p.id }

// AssociatedAddress returns the canonical holding address of owner for mint.
func (p *Program) AssociatedAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], p.id[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated address: %w", err)
	}
	return addr, nil
}

// Mint loads a mint. The bool is false when no account exists at address.
func (p *Program) Mint(ctx context.Context, r ledger.Reader, address solana.PublicKey) (model.Mint, bool, error) {
	acct, ok, err := p.load(ctx, r, address)
	if err != nil || !ok {
		return model.Mint{}, ok, err
	}
	mint, err := model.UnmarshalMint(acct.Data)
	if err != nil {
		return model.Mint{}, false, fmt.Errorf("mint %s: %w", address, ErrInvalidAccount)
	}
	return mint, true, nil
}

// Account loads a holding. The bool is false when no account exists at address.
func (p *Program) Account(ctx context.Context, r ledger.Reader, address solana.PublicKey) (model.TokenAccount, bool, error) {
	acct, ok, err := p.load(ctx, r, address)
	if err != nil || !ok {
		return model.TokenAccount{}, ok, err
	}
	holding, err := model.UnmarshalTokenAccount(acct.Data)
	if err != nil {
		return model.TokenAccount{}, false, fmt.Errorf("holding %s: %w", address, ErrInvalidAccount)
	}
	return holding, true, nil
}

// InitializeMint creates a mint at address. auth must be the address itself, so only the
// holder of that key (or the program deriving it) can claim it.
func (p *Program) InitializeMint(
	ctx context.Context,
	inv *ledger.Invocation,
	auth ledger.Authorization,
	address solana.PublicKey,
	mintAuthority solana.PublicKey,
	decimals uint8,
) error {
	if !auth.Permits(inv, address) {
		return fmt.Errorf("initialize mint %s: %w", address, ErrUnauthorized)
	}
	if _, exists, err := inv.Get(ctx, address); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("initialize mint %s: %w", address, ErrAlreadyInUse)
	}

	mint := model.Mint{MintAuthority: mintAuthority, Decimals: decimals, IsInitialized: true}
	if err := p.store(ctx, inv, address, mint); err != nil {
		return err
	}
	p.logger.Debug("mint initialized",
		zap.Stringer("mint", address),
		zap.Stringer("authority", mintAuthority),
		zap.Uint8("decimals", decimals),
	)
	return nil
}

// CreateAssociatedAccount returns the associated holding of owner for mint, creating an
// empty one when absent. created reports whether this call created it.
func (p *Program) CreateAssociatedAccount(
	ctx context.Context,
	inv *ledger.Invocation,
	owner solana.PublicKey,
	mint solana.PublicKey,
) (address solana.PublicKey, created bool, err error) {
	address, err = p.AssociatedAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, false, err
	}

	existing, ok, err := p.Account(ctx, inv, address)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	if ok {
		if !existing.Mint.Equals(mint) || !existing.Owner.Equals(owner) {
			return solana.PublicKey{}, false, fmt.Errorf("associated holding %s: %w", address, ErrMintMismatch)
		}
		return address, false, nil
	}

	if _, ok, err := p.Mint(ctx, inv, mint); err != nil {
		return solana.PublicKey{}, false, err
	} else if !ok {
		return solana.PublicKey{}, false, fmt.Errorf("%s: %w", mint, ErrMintNotFound)
	}

	if err := p.store(ctx, inv, address, model.TokenAccount{Mint: mint, Owner: owner}); err != nil {
		return solana.PublicKey{}, false, err
	}
	p.logger.Debug("associated holding created",
		zap.Stringer("holding", address),
		zap.Stringer("owner", owner),
		zap.Stringer("mint", mint),
	)
	return address, true, nil
}

// Transfer moves amount between two holdings of the same mint. auth must be the owner
// of the source holding.
func (p *Program) Transfer(
	ctx context.Context,
	inv *ledger.Invocation,
	auth ledger.Authorization,
	from solana.PublicKey,
	to solana.PublicKey,
	amount uint64,
) error {
	src, err := p.mustAccount(ctx, inv, from)
	if err != nil {
		return err
	}
	if !auth.Permits(inv, src.Owner) {
		return fmt.Errorf("transfer from %s: %w", from, ErrUnauthorized)
	}
	dst, err := p.mustAccount(ctx, inv, to)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("transfer to %s: %w", to, ErrMintMismatch)
	}
	if src.Amount < amount {
		return fmt.Errorf("transfer %d from %s (balance %d): %w", amount, from, src.Amount, ErrInsufficientFunds)
	}
	if from.Equals(to) {
		return nil
	}
	if dst.Amount+amount < dst.Amount {
		return fmt.Errorf("transfer to %s: %w", to, ErrOverflow)
	}

	src.Amount -= amount
	dst.Amount += amount
	if err := p.store(ctx, inv, from, src); err != nil {
		return err
	}
	if err := p.store(ctx, inv, to, dst); err != nil {
		return err
	}
	p.logger.Debug("transfer",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount),
	)
	return nil
}

// MintTo increases the balance of holding to and the mint supply by amount. auth must be
// the mint authority.
func (p *Program) MintTo(
	ctx context.Context,
	inv *ledger.Invocation,
	auth ledger.Authorization,
	mintAddr solana.PublicKey,
	to solana.PublicKey,
	amount uint64,
) error {
	mint, ok, err := p.Mint(ctx, inv, mintAddr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", mintAddr, ErrMintNotFound)
	}
	if !auth.Permits(inv, mint.MintAuthority) {
		return fmt.Errorf("mint to %s: %w", to, ErrUnauthorized)
	}
	dst, err := p.mustAccount(ctx, inv, to)
	if err != nil {
		return err
	}
	if !dst.Mint.Equals(mintAddr) {
		return fmt.Errorf("mint to %s: %w", to, ErrMintMismatch)
	}
	if mint.Supply+amount < mint.Supply || dst.Amount+amount < dst.Amount {
		return fmt.Errorf("mint to %s: %w", to, ErrOverflow)
	}

	mint.Supply += amount
	dst.Amount += amount
	if err := p.store(ctx, inv, mintAddr, mint); err != nil {
		return err
	}
	if err := p.store(ctx, inv, to, dst); err != nil {
		return err
	}
	p.logger.Debug("mint to",
		zap.Stringer("mint", mintAddr),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount),
	)
	return nil
}

func (p *Program) mustAccount(ctx context.Context, r ledger.Reader, address solana.PublicKey) (model.TokenAccount, error) {
	holding, ok, err := p.Account(ctx, r, address)
	if err != nil {
		return model.TokenAccount{}, err
	}
	if !ok {
		return model.TokenAccount{}, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	return holding, nil
}

func (p *Program) load(ctx context.Context, r ledger.Reader, address solana.PublicKey) (ledger.Account, bool, error) {
	acct, ok, err := r.Get(ctx, address)
	if err != nil || !ok {
		return ledger.Account{}, ok, err
	}
	if !acct.Owner.Equals(p.id) {
		return ledger.Account{}, false, fmt.Errorf("%s: %w", address, ErrInvalidAccount)
	}
	return acct, true, nil
}

type accountData interface {
	MarshalAccount() ([]byte, error)
}

func (p *Program) store(ctx context.Context, inv *ledger.Invocation, address solana.PublicKey, v accountData) error {
	data, err := v.MarshalAccount()
	if err != nil {
		return err
	}
	return inv.Put(ctx, ledger.Account{Address: address, Owner: p.id, Data: data})
}
