package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolvault/internal/pool"
	"poolvault/internal/token"
)

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit the pool asset and receive receipt tokens",
		RunE:  runWithApp(runDeposit),
	}
	cmd.Flags().Uint64("pool", 0, "pool id")
	cmd.Flags().String("depositor", "", "signing depositor identity")
	cmd.Flags().String("amount", "", "amount in display units of the asset")
	cmd.Flags().String("source", "", "depositor holding of the pool asset (default: associated holding)")
	cmd.Flags().String("receipt", "", "receipt holding (default: associated holding)")
	cmd.Flags().String("vault", "", "expected pool vault (default: derived)")
	return cmd
}

func runDeposit(ctx context.Context, cmd *cobra.Command, a *app) error {
	poolID, _ := cmd.Flags().GetUint64("pool")
	depositor, err := keyFlag(cmd, "depositor", true)
	if err != nil {
		return err
	}
	source, err := keyFlag(cmd, "source", false)
	if err != nil {
		return err
	}
	receipt, err := keyFlag(cmd, "receipt", false)
	if err != nil {
		return err
	}
	vault, err := keyFlag(cmd, "vault", false)
	if err != nil {
		return err
	}
	rawAmount, _ := cmd.Flags().GetString("amount")
	if rawAmount == "" {
		return errors.New("--amount is required")
	}

	p, err := a.program.Pool(ctx, poolID)
	if err != nil {
		return err
	}
	if source.IsZero() {
		if source, err = a.tokens.AssociatedAddress(depositor, p.Asset); err != nil {
			return err
		}
	}
	decimals, err := assetDecimals(ctx, a, p.Asset)
	if err != nil {
		return err
	}
	amount, err := token.ParseAmount(rawAmount, decimals)
	if err != nil {
		return err
	}

	res, err := a.program.Deposit(ctx, pool.DepositRequest{
		PoolID:    poolID,
		Depositor: depositor,
		Amount:    amount,
		Source:    source,
		Receipt:   receipt,
		Vault:     vault,
	})
	if err != nil {
		if pool.Temporary(err) {
			a.logger.Info("pool is frozen; deposit may succeed once it is unfrozen", zap.Uint64("pool_id", poolID))
		}
		return err
	}
	return printJSON(cmd, map[string]any{
		"tx_id":           res.TxID.String(),
		"pool_id":         res.PoolID,
		"amount":          token.FormatAmount(res.Amount, decimals),
		"amount_raw":      res.Amount,
		"vault":           res.Vault.String(),
		"receipt":         res.Receipt.String(),
		"receipt_mint":    res.ReceiptMint.String(),
		"receipt_created": res.ReceiptCreated,
	})
}
