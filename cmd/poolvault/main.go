package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolvault/internal/config"
	"poolvault/internal/events"
	"poolvault/internal/pool"
	"poolvault/internal/storage"
	"poolvault/internal/token"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "poolvault",
		Short:        "Pooled custodial vault program host",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("store", "sqlite", "ledger store (sqlite, postgres, memory)")
	flags.String("sqlite-path", "./data/poolvault.db", "SQLite database path")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("program-id", config.DefaultProgramID, "pool program identity")
	flags.String("events-out", "", "optional JSONL file receiving emitted events")
	flags.String("metrics-out", "", "optional Prometheus textfile written when the command exits")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Int("max-retries", 5, "maximum Postgres connection attempts after the first")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial connection retry backoff")

	root.AddCommand(
		newRegistryCmd(),
		newPoolCmd(),
		newDepositCmd(),
		newGenesisCmd(),
		newBalanceCmd(),
		newEventsCmd(),
	)
	return root
}

// app is the wired program host shared by every command.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	backend storage.Backend
	metrics *prometheus.Registry
	tokens  *token.Program
	program *pool.Program
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}

	backend, err := storage.Open(ctx, storage.Options{
		Kind:         cfg.Store,
		SQLitePath:   cfg.SQLitePath,
		PostgresDSN:  cfg.PostgresDSN,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sinks := []events.Sink{events.NewLogSink(logger)}
	if backend.Events != nil {
		sinks = append(sinks, backend.Events)
	}
	if cfg.EventsOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.EventsOut))
	}

	metrics := prometheus.NewRegistry()
	tokens := token.NewProgram(solana.TokenProgramID, logger)
	program, err := pool.NewProgram(
		pool.Config{ProgramID: programID, Registry: metrics, Logger: logger},
		backend.Store,
		tokens,
		events.NewEmitter(programID, logger, sinks...),
	)
	if err != nil {
		backend.Store.Close()
		return nil, err
	}

	logger.Debug("program host ready",
		zap.String("store", cfg.Store),
		zap.Stringer("program", programID),
		zap.Stringer("registry", program.RegistryAddress()),
	)
	return &app{cfg: cfg, logger: logger, backend: backend, metrics: metrics, tokens: tokens, program: program}, nil
}

func (a *app) Close() {
	if a.cfg.MetricsOut != "" {
		if err := writeMetrics(a.cfg.MetricsOut, a.metrics); err != nil {
			a.logger.Warn("write metrics", zap.String("path", a.cfg.MetricsOut), zap.Error(err))
		}
	}
	if err := a.backend.Store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// runWithApp wires the host for a command and tears it down afterwards.
func runWithApp(fn func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a)
	}
}

// writeMetrics dumps the registry in the node_exporter textfile format.
func writeMetrics(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	return prometheus.WriteToTextfile(path, g)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keyFlag(cmd *cobra.Command, name string, required bool) (solana.PublicKey, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		if required {
			return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
		}
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return key, nil
}
