package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolvault/internal/config"
	"poolvault/internal/events"
	"poolvault/internal/ledger"
	"poolvault/internal/model"
	"poolvault/internal/storage"
	"poolvault/internal/token"
)

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print a token holding",
		RunE:  runWithApp(runBalance),
	}
	cmd.Flags().String("account", "", "holding address")
	return cmd
}

func runBalance(ctx context.Context, cmd *cobra.Command, a *app) error {
	addr, err := keyFlag(cmd, "account", true)
	if err != nil {
		return err
	}

	var (
		holding  model.TokenAccount
		decimals uint8
	)
	err = a.backend.Store.View(ctx, func(r ledger.Reader) error {
		h, ok, err := a.tokens.Account(ctx, r, addr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", addr, token.ErrAccountNotFound)
		}
		m, _, err := a.tokens.Mint(ctx, r, h.Mint)
		if err != nil {
			return err
		}
		holding, decimals = h, m.Decimals
		return nil
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"account":    addr.String(),
		"mint":       holding.Mint.String(),
		"owner":      holding.Owner.String(),
		"amount":     token.FormatAmount(holding.Amount, decimals),
		"amount_raw": holding.Amount,
	})
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Decode an event log JSONL file",
		RunE:  runEvents,
	}
	cmd.Flags().String("in", "", "input event JSONL")
	return cmd
}

// runEvents works on a file alone and does not open a store.
func runEvents(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		return errors.New("input path is required")
	}
	records, err := storage.ReadEvents(in)
	if err != nil {
		return err
	}

	out := make([]model.EventRecord, 0, len(records))
	for _, record := range records {
		evt, err := events.Decode(record)
		if err != nil {
			return fmt.Errorf("event %s: %w", record.ID, err)
		}
		record.Decoded = evt
		out = append(out, record)
	}
	logger.Debug("events decoded", zap.String("in", in), zap.Int("count", len(out)))
	return printJSON(cmd, out)
}
