package pool

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"poolvault/internal/ledger"
)

var (
	registrySeed      = []byte("state")
	poolSeed          = []byte("pool")
	mintAuthoritySeed = []byte("mint_authority")
	receiptMintSeed   = []byte("receipt_mint")
)

// RegistryAddress is the address of the registry singleton.
func (p *Program) RegistryAddress() solana.PublicKey { return p.registryAddr }

// MintAuthority is the keyless authority that mints every receipt token.
func (p *Program) MintAuthority() solana.PublicKey { return p.mintAuthority }

// PoolAddress derives the address of the pool with id.
func (p *Program) PoolAddress(id uint64) (solana.PublicKey, error) {
	addr, _, err := ledger.FindProgramAddress(p.id, poolSeed, ledger.U64Seed(id))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool %d: %w", id, err)
	}
	return addr, nil
}

// ReceiptMintAddress derives the receipt token mint of the pool with id.
func (p *Program) ReceiptMintAddress(id uint64) (solana.PublicKey, error) {
	addr, _, err := p.receiptMint(id)
	return addr, err
}

// VaultAddress derives the holding that custodies deposits of asset for the pool with id.
func (p *Program) VaultAddress(id uint64, asset solana.PublicKey) (solana.PublicKey, error) {
	poolAddr, err := p.PoolAddress(id)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return p.tokens.AssociatedAddress(poolAddr, asset)
}

// ReceiptAddress derives the associated receipt holding of depositor for the pool with id.
func (p *Program) ReceiptAddress(id uint64, depositor solana.PublicKey) (solana.PublicKey, error) {
	mint, err := p.ReceiptMintAddress(id)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return p.tokens.AssociatedAddress(depositor, mint)
}

func (p *Program) receiptMint(id uint64) (solana.PublicKey, uint8, error) {
	addr, bump, err := ledger.FindProgramAddress(p.id, receiptMintSeed, ledger.U64Seed(id))
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive receipt mint %d: %w", id, err)
	}
	return addr, bump, nil
}
