package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"poolvault/internal/config"
	"poolvault/internal/ledger"
	"poolvault/internal/token"
)

func newGenesisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Seed the ledger with mints and funded holdings from a YAML file",
		RunE:  runWithApp(runGenesis),
	}
	cmd.Flags().String("file", "genesis.yaml", "genesis YAML file")
	return cmd
}

func runGenesis(ctx context.Context, cmd *cobra.Command, a *app) error {
	path, _ := cmd.Flags().GetString("file")
	g, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}
	mints, err := g.TokenMints()
	if err != nil {
		return err
	}

	funded, err := a.tokens.ApplyGenesis(ctx, a.backend.Store, mints)
	if err != nil {
		return err
	}

	decimals := make(map[solana.PublicKey]uint8, len(mints))
	for _, m := range mints {
		decimals[m.Address] = m.Decimals
	}
	out := make([]map[string]any, 0, len(funded))
	for _, h := range funded {
		out = append(out, map[string]any{
			"holding": h.Address.String(),
			"mint":    h.Mint.String(),
			"owner":   h.Owner.String(),
			"amount":  token.FormatAmount(h.Amount, decimals[h.Mint]),
		})
	}
	return printJSON(cmd, out)
}

func assetDecimals(ctx context.Context, a *app, mint solana.PublicKey) (uint8, error) {
	var decimals uint8
	err := a.backend.Store.View(ctx, func(r ledger.Reader) error {
		m, ok, err := a.tokens.Mint(ctx, r, mint)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", mint, token.ErrMintNotFound)
		}
		decimals = m.Decimals
		return nil
	})
	return decimals, err
}
