package pool

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"poolvault/internal/ledger"
	"poolvault/internal/model"
	"poolvault/internal/token"
)

// DepositRequest moves Amount of the pool asset from Source into custody. Receipt and
// Vault are optional; zero values select the derived addresses.
type DepositRequest struct {
	PoolID    uint64
	Depositor solana.PublicKey
	Amount    uint64
	Source    solana.PublicKey
	Receipt   solana.PublicKey
	Vault     solana.PublicKey
}

// DepositResult describes a committed deposit.
type DepositResult struct {
	TxID           uuid.UUID
	PoolID         uint64
	Amount         uint64
	Vault          solana.PublicKey
	Receipt        solana.PublicKey
	ReceiptMint    solana.PublicKey
	ReceiptCreated bool
}

// Deposit takes Amount of the pool asset into the pool vault and mints the same amount
// of receipt tokens to the depositor. Any rejection leaves every balance untouched.
func (p *Program) Deposit(ctx context.Context, req DepositRequest) (DepositResult, error) {
	if req.Depositor.IsZero() {
		return DepositResult{}, ErrMissingSigner
	}

	var out DepositResult
	txID, err := p.execute(ctx, "deposit", []solana.PublicKey{req.Depositor}, func(inv *ledger.Invocation) error {
		res, err := p.deposit(ctx, inv, req)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}
	out.TxID = txID

	p.metrics.depositedAmount.WithLabelValues(strconv.FormatUint(req.PoolID, 10)).Add(float64(req.Amount))
	if out.ReceiptCreated {
		p.metrics.receiptHoldings.Inc()
	}
	p.logger.Info("deposit",
		zap.String("tx_id", txID.String()),
		zap.Uint64("pool_id", req.PoolID),
		zap.Stringer("depositor", req.Depositor),
		zap.Uint64("amount", req.Amount),
		zap.Stringer("receipt", out.Receipt),
	)
	p.events.Emit(ctx, txID, model.PoolDeposit{
		Amount:    req.Amount,
		Depositor: req.Depositor,
		PoolID:    req.PoolID,
	})
	return out, nil
}

type depositAccounts struct {
	pool        model.Pool
	poolAddr    solana.PublicKey
	receiptMint solana.PublicKey
	mintBump    uint8
	receipt     solana.PublicKey

	derivedReceipt solana.PublicKey
}

func (p *Program) deposit(ctx context.Context, inv *ledger.Invocation, req DepositRequest) (DepositResult, error) {
	accts, err := p.validateDeposit(ctx, inv, req)
	if err != nil {
		return DepositResult{}, err
	}

	if err := p.provisionReceiptMint(ctx, inv, accts); err != nil {
		return DepositResult{}, err
	}
	vault, _, err := p.tokens.CreateAssociatedAccount(ctx, inv, accts.poolAddr, accts.pool.Asset)
	if err != nil {
		return DepositResult{}, fmt.Errorf("provision vault: %w", err)
	}
	receipt, created := accts.receipt, false
	if receipt.Equals(accts.derivedReceipt) {
		receipt, created, err = p.tokens.CreateAssociatedAccount(ctx, inv, req.Depositor, accts.receiptMint)
		if err != nil {
			return DepositResult{}, fmt.Errorf("provision receipt holding: %w", err)
		}
	}

	owner, err := inv.Authorize(req.Depositor)
	if err != nil {
		return DepositResult{}, fmt.Errorf("%w: %v", ErrMissingSigner, err)
	}
	if err := p.tokens.Transfer(ctx, inv, owner, req.Source, vault, req.Amount); err != nil {
		return DepositResult{}, fmt.Errorf("transfer to vault: %w", err)
	}

	authority, err := inv.SignWithSeeds(mintAuthoritySeed, []byte{p.mintAuthorityBump})
	if err != nil {
		return DepositResult{}, err
	}
	if err := p.tokens.MintTo(ctx, inv, authority, accts.receiptMint, receipt, req.Amount); err != nil {
		return DepositResult{}, fmt.Errorf("mint receipt: %w", err)
	}

	return DepositResult{
		PoolID:         req.PoolID,
		Amount:         req.Amount,
		Vault:          vault,
		Receipt:        receipt,
		ReceiptMint:    accts.receiptMint,
		ReceiptCreated: created,
	}, nil
}

// validateDeposit checks a request in a fixed order: source ownership, frozen, closed,
// receipt holding, then amount, asset and vault. The first failure wins.
func (p *Program) validateDeposit(ctx context.Context, inv *ledger.Invocation, req DepositRequest) (depositAccounts, error) {
	pool, poolAddr, err := p.loadPool(ctx, inv, req.PoolID)
	if err != nil {
		return depositAccounts{}, err
	}
	receiptMint, bump, err := p.receiptMint(req.PoolID)
	if err != nil {
		return depositAccounts{}, err
	}
	derivedReceipt, err := p.tokens.AssociatedAddress(req.Depositor, receiptMint)
	if err != nil {
		return depositAccounts{}, err
	}
	derivedVault, err := p.tokens.AssociatedAddress(poolAddr, pool.Asset)
	if err != nil {
		return depositAccounts{}, err
	}

	source, ok, err := p.tokens.Account(ctx, inv, req.Source)
	switch {
	case errors.Is(err, token.ErrInvalidAccount):
		return depositAccounts{}, fmt.Errorf("source %s: %w", req.Source, ErrInvalidTokenAccountOwner)
	case err != nil:
		return depositAccounts{}, err
	case !ok:
		return depositAccounts{}, fmt.Errorf("source %s not found: %w", req.Source, ErrInvalidTokenAccountOwner)
	case !source.Owner.Equals(req.Depositor):
		return depositAccounts{}, fmt.Errorf("source %s owned by %s: %w", req.Source, source.Owner, ErrInvalidTokenAccountOwner)
	}

	if pool.IsFrozen {
		return depositAccounts{}, fmt.Errorf("pool %d: %w", req.PoolID, ErrPoolFrozen)
	}
	if pool.IsClosed {
		return depositAccounts{}, fmt.Errorf("pool %d: %w", req.PoolID, ErrPoolClosed)
	}

	receipt := req.Receipt
	if receipt.IsZero() {
		receipt = derivedReceipt
	}
	if err := p.checkReceipt(ctx, inv, receipt, derivedReceipt, receiptMint, req.Depositor); err != nil {
		return depositAccounts{}, err
	}

	if req.Amount == 0 {
		return depositAccounts{}, ErrZeroDepositAmount
	}
	if !source.Mint.Equals(pool.Asset) {
		return depositAccounts{}, fmt.Errorf("source mint %s, pool asset %s: %w", source.Mint, pool.Asset, ErrInvalidDepositAsset)
	}
	if !req.Vault.IsZero() && !req.Vault.Equals(derivedVault) {
		return depositAccounts{}, fmt.Errorf("vault %s, expected %s: %w", req.Vault, derivedVault, ErrInvalidPoolVault)
	}
	if req.Source.Equals(derivedVault) {
		return depositAccounts{}, fmt.Errorf("source %s is the pool vault: %w", req.Source, ErrInvalidPoolVault)
	}

	return depositAccounts{
		pool:        pool,
		poolAddr:    poolAddr,
		receiptMint: receiptMint,
		mintBump:    bump,
		receipt:     receipt,

		derivedReceipt: derivedReceipt,
	}, nil
}

// checkReceipt accepts an existing holding of the receipt mint owned by depositor, or
// the not yet created associated address.
func (p *Program) checkReceipt(
	ctx context.Context,
	r ledger.Reader,
	receipt, derived, receiptMint, depositor solana.PublicKey,
) error {
	holding, ok, err := p.tokens.Account(ctx, r, receipt)
	if errors.Is(err, token.ErrInvalidAccount) {
		return fmt.Errorf("receipt %s: %w", receipt, ErrInvalidAssociatedAccount)
	}
	if err != nil {
		return err
	}
	if !ok {
		if !receipt.Equals(derived) {
			return fmt.Errorf("receipt %s, expected %s: %w", receipt, derived, ErrInvalidAssociatedAccount)
		}
		return nil
	}
	if !holding.Mint.Equals(receiptMint) || !holding.Owner.Equals(depositor) {
		return fmt.Errorf("receipt %s: %w", receipt, ErrInvalidAssociatedAccount)
	}
	return nil
}

// provisionReceiptMint creates the pool's receipt mint on first use, with the decimals
// of the pool asset.
func (p *Program) provisionReceiptMint(ctx context.Context, inv *ledger.Invocation, accts depositAccounts) error {
	if _, ok, err := p.tokens.Mint(ctx, inv, accts.receiptMint); err != nil {
		return err
	} else if ok {
		return nil
	}

	asset, ok, err := p.tokens.Mint(ctx, inv, accts.pool.Asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pool asset %s: %w", accts.pool.Asset, token.ErrMintNotFound)
	}

	auth, err := inv.SignWithSeeds(receiptMintSeed, ledger.U64Seed(accts.pool.ID), []byte{accts.mintBump})
	if err != nil {
		return err
	}
	if err := p.tokens.InitializeMint(ctx, inv, auth, accts.receiptMint, p.mintAuthority, asset.Decimals); err != nil {
		return fmt.Errorf("provision receipt mint: %w", err)
	}
	p.logger.Debug("receipt mint provisioned",
		zap.Uint64("pool_id", accts.pool.ID),
		zap.Stringer("mint", accts.receiptMint),
		zap.Uint8("decimals", asset.Decimals),
	)
	return nil
}
