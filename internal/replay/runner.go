package replay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"fundingScope/internal/metrics"
	"fundingScope/internal/model"
	"fundingScope/internal/storage"
)

// RunConfig holds the block-range settings of a replay.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
}

// Runner replays every registered-contract transaction in a block range
// and writes the resulting steps to a sink.
type Runner struct {
	cfg        RunConfig
	replayer   *Replayer
	addresses  []common.Address
	sink       storage.StepSink
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner on top of a Replayer.
func NewRunner(cfg RunConfig, replayer *Replayer, sink storage.StepSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	var addresses []common.Address
	if replayer != nil && replayer.registry != nil {
		addresses = replayer.registry.Addresses()
	}
	return &Runner{
		cfg:        cfg,
		replayer:   replayer,
		addresses:  addresses,
		sink:       sink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.replayer == nil || r.replayer.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.addresses) == 0 {
		return fmt.Errorf("at least one contract is required")
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.replayer.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	var cursor Checkpoint
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok {
		if next, resumed := cp.ResumeFrom(from); resumed {
			cursor, from = cp, next
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			if log.Removed || r.isDuplicate(log) {
				continue
			}
			records = append(records, buildLogRecord(log))
		}

		steps := make([]model.EnrichedStep, 0)
		lastTx := ""
		for _, group := range groupByTransaction(records) {
			built, err := r.replayer.BuildStep(ctx, common.HexToHash(group.TxHash), group.BlockNumber, group.Logs)
			if err != nil {
				return err
			}
			lastTx = group.TxHash
			if len(built.Events) == 0 {
				continue
			}
			steps = append(steps, built)
		}

		if err := r.sink.PutSteps(ctx, steps); err != nil {
			return fmt.Errorf("store steps: %w", err)
		}
		metrics.StepsWritten.Add(float64(len(steps)))
		metrics.LastReplayedBlock.Set(float64(blockRange.To))

		cursor = cursor.Advance(blockRange.To, lastTx, len(steps))
		if err := r.checkpoint.Save(cursor); err != nil {
			return err
		}

		r.logger.Info("batch complete",
			zap.Int("logs", len(records)),
			zap.Int("steps", len(steps)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	opts := r.replayer.opts
	err := withRetry(ctx, "filter_logs", opts.MaxRetries, opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.replayer.chain.FilterLogs(ctx, fromBlock, toBlock, r.addresses)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
