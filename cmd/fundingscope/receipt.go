package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundingScope/internal/chain"
	"fundingScope/internal/config"
	"fundingScope/internal/replay"
	"fundingScope/internal/storage"
)

func newReceiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt [tx-hash...]",
		Short: "Decode the receipts of specific transactions into enriched steps",
		RunE:  runReceipt,
	}

	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().StringSlice("tx", nil, "transaction hashes (comma-separated)")
	addRegistryFlags(cmd.Flags())
	cmd.Flags().String("out", "", "append steps to this JSONL path instead of printing them")
	addRPCFlags(cmd.Flags())
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runReceipt(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReceipt(cfgFile, cmd.Flags())
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

	hashes, err := replay.ParseTxHashes(append(cfg.TxHashes, args...))
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		return fmt.Errorf("at least one transaction hash is required")
	}

	registry, err := newRegistry(cfg.Contracts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	replayer := replay.NewReplayer(replay.Options{
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		Concurrency:      cfg.Concurrency,
		ResolveFunctions: cfg.ResolveFunctions,
		InferHooks:       cfg.InferHooks,
	}, chainClient, registry, newHeroSet(cfg.HeroEvents), logger)

	logger.Info("receipt replay start",
		zap.String("rpc", cfg.RPCURL),
		zap.Int("transactions", len(hashes)),
		zap.Int("contracts", registry.Len()),
	)

	steps, err := replayer.ReplayTransactions(ctx, hashes)
	if err != nil {
		return err
	}

	if cfg.Out != "" {
		if err := storage.NewJsonlStorage(cfg.Out).PutSteps(ctx, steps); err != nil {
			return err
		}
		logger.Info("receipt replay complete", zap.Int("steps", len(steps)), zap.String("out", cfg.Out))
		return nil
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(steps)
}
