package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fundingScope/internal/chain"
	"fundingScope/internal/config"
	"fundingScope/internal/contracts"
	"fundingScope/internal/decoder"
	"fundingScope/internal/metrics"
	"fundingScope/internal/replay"
	"fundingScope/internal/storage"
	"fundingScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "fundingscope",
		Short:        "Receipt decoder and replay tool for the project funding contracts",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay contract activity over a block range into enriched steps",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("rpc", "", "RPC URL")
	replayCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	replayCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	addRegistryFlags(replayCmd.Flags())
	replayCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	replayCmd.Flags().String("out", "./data/steps.jsonl", "output steps JSONL path")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for step storage")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	addRPCFlags(replayCmd.Flags())
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)
	root.AddCommand(newReceiptCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newReadCmd())
	root.AddCommand(newAggregateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRegistryFlags(flags *pflag.FlagSet) {
	flags.StringSlice("contract", nil, "contract as name=address[@artifact.json] (repeatable)")
	flags.StringSlice("hero-events", nil, "extra event names to mark as hero events")
}

func addRPCFlags(flags *pflag.FlagSet) {
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Int("concurrency", 4, "parallel receipt fetches")
	flags.Bool("infer-hooks", true, "annotate steps whose events cross into another contract")
	flags.Bool("resolve-functions", true, "look up each transaction to name the called function")
}

func runReplay(cmd *cobra.Command, _ []string) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	registry, err := newRegistry(cfg.Contracts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Serve(cfg.MetricsAddr, logger)

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sinks := storage.MultiSink{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	replayer := replay.NewReplayer(replay.Options{
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		Concurrency:      cfg.Concurrency,
		ResolveFunctions: cfg.ResolveFunctions,
		InferHooks:       cfg.InferHooks,
	}, chainClient, registry, newHeroSet(cfg.HeroEvents), logger)

	runner := replay.NewRunner(replay.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, replayer, sinks, logger)

	logger.Info("replay start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("contracts", registry.Len()),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newRegistry(specs []contracts.Spec) (*contracts.Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --contract is required")
	}
	return contracts.NewRegistry(specs)
}

func newHeroSet(extra []string) decoder.HeroSet {
	return decoder.DefaultHeroSet().With(extra...)
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

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
