package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundingScope/internal/config"
	"fundingScope/internal/contracts"
	"fundingScope/internal/decoder"
	"fundingScope/internal/metrics"
	"fundingScope/internal/model"
	"fundingScope/internal/replay"
	"fundingScope/internal/storage"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a raw logs JSONL file into enriched steps without an RPC connection",
		RunE:  runDecode,
	}

	cmd.Flags().String("in", "", "input raw logs JSONL")
	cmd.Flags().String("out", "./data/steps.jsonl", "output steps JSONL")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	addRegistryFlags(cmd.Flags())
	cmd.Flags().Bool("infer-hooks", true, "annotate steps whose events cross into another contract")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	registry, err := newRegistry(cfg.Contracts)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.OpenWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.OpenWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("contracts", registry.Len()),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	records := make([]model.LogRecord, 0, 1024)
	var total, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{Error: err.Error()})
			continue
		}
		if len(record.Topics) == 0 {
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, fmt.Errorf("missing topic0")))
			continue
		}
		if record.Removed {
			continue
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	steps := decodeRecords(registry, newHeroSet(cfg.HeroEvents), records, cfg.InferHooks)
	var events int
	for _, step := range steps {
		if err := outWriter.Write(step); err != nil {
			return err
		}
		metrics.StepsWritten.Inc()
		events += len(step.Events)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("steps", len(steps)),
		zap.Int("events", events),
		zap.Int("failed", failed),
	)

	return nil
}

func decodeRecords(registry *contracts.Registry, heroes decoder.HeroSet, records []model.LogRecord, inferHooks bool) []model.EnrichedStep {
	dec := decoder.NewDecoder(registry.Entries(), heroes)
	return replay.StepsFromRecords(dec, records, inferHooks)
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeError {
	return model.DecodeError{
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       err.Error(),
	}
}

func writeDecodeError(writer *storage.Writer, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
