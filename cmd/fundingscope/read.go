package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundingScope/internal/chain"
	"fundingScope/internal/config"
	"fundingScope/internal/contracts"
	"fundingScope/internal/format"
	"fundingScope/internal/model"
)

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Call a view function on a registered contract and print formatted outputs",
		RunE:  runRead,
	}

	cmd.Flags().String("rpc", "", "RPC URL")
	addRegistryFlags(cmd.Flags())
	cmd.Flags().String("target", "", "registered contract to call (e.g. SolvencyConsumer)")
	cmd.Flags().String("method", "", "view function name")
	cmd.Flags().StringSlice("arg", nil, "function arguments in declaration order")
	cmd.Flags().Uint64("block", 0, "block number to read at, 0 means latest")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}

func runRead(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRead(cfgFile, cmd.Flags())
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
	if cfg.Method == "" {
		return fmt.Errorf("method is required")
	}

	registry, err := newRegistry(cfg.Contracts)
	if err != nil {
		return err
	}
	name, err := model.ParseContractName(cfg.Contract)
	if err != nil {
		return err
	}
	entry, ok := registry.Entry(name)
	if !ok {
		return fmt.Errorf("contract %s is not registered", name)
	}
	method, ok := entry.ABI.Methods[cfg.Method]
	if !ok {
		return fmt.Errorf("%s has no method %s", name, cfg.Method)
	}
	callArgs, err := contracts.ParseArgs(method, cfg.Args)
	if err != nil {
		return err
	}

	var block *big.Int
	if cfg.Block > 0 {
		block = new(big.Int).SetUint64(cfg.Block)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	logger.Debug("read contract",
		zap.String("contract", string(name)),
		zap.String("address", entry.Address.Hex()),
		zap.String("method", method.Sig),
		zap.Uint64("block", cfg.Block),
	)

	values, err := chainClient.ReadContract(ctx, entry.Address, entry.ABI, method.Name, block, callArgs...)
	if err != nil {
		return err
	}

	outputs := make(model.Args, 0, len(values))
	for i, value := range values {
		key := fmt.Sprintf("out%d", i)
		if i < len(method.Outputs) && method.Outputs[i].Name != "" {
			key = method.Outputs[i].Name
		}
		outputs = append(outputs, model.Arg{Key: key, Value: format.FormatArg(key, value)})
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(outputs)
}
