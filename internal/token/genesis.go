package token

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"poolvault/internal/ledger"
)

// GenesisMint describes a mint to create together with its funded holdings.
type GenesisMint struct {
	Address   solana.PublicKey
	Authority solana.PublicKey
	Decimals  uint8
	Holdings  []GenesisHolding
}

type GenesisHolding struct {
	Owner  solana.PublicKey
	Amount uint64
}

// FundedHolding is a holding created by ApplyGenesis.
type FundedHolding struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// ApplyGenesis creates each mint and mints the listed amounts into associated holdings,
// one atomic invocation per mint. The host vouches for the mint keys and authorities,
// so both are declared as signers.
func (p *Program) ApplyGenesis(ctx context.Context, store ledger.Store, mints []GenesisMint) ([]FundedHolding, error) {
	var funded []FundedHolding
	for _, gm := range mints {
		var batch []FundedHolding
		_, err := ledger.Execute(ctx, store, p.id, []solana.PublicKey{gm.Address, gm.Authority}, func(inv *ledger.Invocation) error {
			batch = batch[:0]
			mintAuth, err := inv.Authorize(gm.Address)
			if err != nil {
				return err
			}
			if err := p.InitializeMint(ctx, inv, mintAuth, gm.Address, gm.Authority, gm.Decimals); err != nil {
				return err
			}
			auth, err := inv.Authorize(gm.Authority)
			if err != nil {
				return err
			}
			for _, h := range gm.Holdings {
				addr, _, err := p.CreateAssociatedAccount(ctx, inv, h.Owner, gm.Address)
				if err != nil {
					return err
				}
				if err := p.MintTo(ctx, inv, auth, gm.Address, addr, h.Amount); err != nil {
					return err
				}
				batch = append(batch, FundedHolding{Address: addr, Mint: gm.Address, Owner: h.Owner, Amount: h.Amount})
			}
			return nil
		})
		if err != nil {
			return funded, fmt.Errorf("genesis mint %s: %w", gm.Address, err)
		}
		funded = append(funded, batch...)
		p.logger.Info("genesis mint applied",
			zap.Stringer("mint", gm.Address),
			zap.Int("holdings", len(gm.Holdings)),
		)
	}
	return funded, nil
}
