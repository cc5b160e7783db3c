package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Initialize or inspect the pool registry",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the registry singleton",
		RunE:  runWithApp(runRegistryInit),
	}
	initCmd.Flags().String("authority", "", "signing authority paying for the registry")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the registry state",
		RunE:  runWithApp(runRegistryShow),
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func runRegistryInit(ctx context.Context, cmd *cobra.Command, a *app) error {
	authority, err := keyFlag(cmd, "authority", true)
	if err != nil {
		return err
	}
	if err := a.program.InitializeRegistry(ctx, authority); err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"registry":     a.program.RegistryAddress().String(),
		"next_pool_id": 0,
	})
}

func runRegistryShow(ctx context.Context, cmd *cobra.Command, a *app) error {
	reg, err := a.program.Registry(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"registry":     a.program.RegistryAddress().String(),
		"next_pool_id": reg.NextPoolID,
	})
}
