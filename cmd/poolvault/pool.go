package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Create or inspect pools",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pool for an asset",
		RunE:  runWithApp(runPoolCreate),
	}
	createCmd.Flags().String("creator", "", "signing creator identity")
	createCmd.Flags().String("asset", "", "asset mint accepted by the pool")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print a pool record and its derived accounts",
		RunE:  runWithApp(runPoolShow),
	}
	showCmd.Flags().Uint64("id", 0, "pool id")

	cmd.AddCommand(createCmd, showCmd)
	return cmd
}

func runPoolCreate(ctx context.Context, cmd *cobra.Command, a *app) error {
	creator, err := keyFlag(cmd, "creator", true)
	if err != nil {
		return err
	}
	asset, err := keyFlag(cmd, "asset", true)
	if err != nil {
		return err
	}

	created, err := a.program.CreatePool(ctx, creator, asset)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"tx_id":   created.TxID.String(),
		"address": created.Address.String(),
		"pool":    created.Pool,
	})
}

func runPoolShow(ctx context.Context, cmd *cobra.Command, a *app) error {
	id, _ := cmd.Flags().GetUint64("id")
	p, err := a.program.Pool(ctx, id)
	if err != nil {
		return err
	}
	addr, err := a.program.PoolAddress(id)
	if err != nil {
		return err
	}
	receiptMint, err := a.program.ReceiptMintAddress(id)
	if err != nil {
		return err
	}
	vault, err := a.program.VaultAddress(id, p.Asset)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"address":      addr.String(),
		"pool":         p,
		"receipt_mint": receiptMint.String(),
		"vault":        vault.String(),
	})
}
