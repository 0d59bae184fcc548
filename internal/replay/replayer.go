package replay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fundingScope/internal/contracts"
	"fundingScope/internal/decoder"
	"fundingScope/internal/metrics"
	"fundingScope/internal/model"
	"fundingScope/internal/step"
)

const defaultConcurrency = 4

// Chain is the subset of the chain client a replay needs.
type Chain interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, error)
}

// Options tunes how transactions are turned into steps.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// Concurrency bounds parallel receipt fetches in ReplayTransactions.
	Concurrency int
	// ResolveFunctions looks up each transaction to fill the step's fn.
	ResolveFunctions bool
	InferHooks       bool
}

// Replayer turns transactions into enriched steps.
type Replayer struct {
	opts     Options
	chain    Chain
	registry *contracts.Registry
	decoder  *decoder.Decoder
	logger   *zap.Logger
}

// NewReplayer builds a Replayer for the contracts in registry.
func NewReplayer(opts Options, chainClient Chain, registry *contracts.Registry, heroes decoder.HeroSet, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Replayer{
		opts:     opts,
		chain:    chainClient,
		registry: registry,
		decoder:  decoder.NewDecoder(registry.Entries(), heroes),
		logger:   logger,
	}
}

// ReplayTransactions fetches each receipt and returns one step per hash,
// in input order. Transactions without protocol events still produce a
// step with an empty event list.
func (r *Replayer) ReplayTransactions(ctx context.Context, hashes []common.Hash) ([]model.EnrichedStep, error) {
	if r.chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}

	steps := make([]model.EnrichedStep, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, hash := range hashes {
		i, hash := i, hash
		g.Go(func() error {
			built, err := r.replayReceipt(gctx, hash)
			if err != nil {
				return fmt.Errorf("replay %s: %w", hash.Hex(), err)
			}
			steps[i] = built
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *Replayer) replayReceipt(ctx context.Context, hash common.Hash) (model.EnrichedStep, error) {
	var receipt *types.Receipt
	err := withRetry(ctx, "receipt", r.opts.MaxRetries, r.opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		receipt, err = r.chain.TransactionReceipt(ctx, hash)
		if err != nil {
			r.logger.Warn("receipt fetch failed", zap.Error(err), zap.String("tx_hash", hash.Hex()))
		}
		return err
	})
	if err != nil {
		return model.EnrichedStep{}, fmt.Errorf("fetch receipt: %w", err)
	}

	var blockNumber uint64
	if receipt.BlockNumber != nil {
		blockNumber = receipt.BlockNumber.Uint64()
	}

	built, err := r.BuildStep(ctx, hash, blockNumber, LogRecordsFromReceipt(receipt))
	if err != nil {
		return model.EnrichedStep{}, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		if built.Data == nil {
			built.Data = make(map[string]interface{})
		}
		built.Data["status"] = "reverted"
	}
	return built, nil
}

// BuildStep decodes the logs of one transaction and assembles its step.
func (r *Replayer) BuildStep(ctx context.Context, hash common.Hash, blockNumber uint64, logs []model.LogRecord) (model.EnrichedStep, error) {
	events, stats := r.decoder.Decode(logs)
	recordStats(events, stats)

	source, fn, err := r.resolveSource(ctx, hash)
	if err != nil {
		return model.EnrichedStep{}, err
	}
	if source == "" {
		source = step.SourceFromEvents(events)
	}

	var ts uint64
	if blockNumber > 0 {
		ts, err = r.blockTimestamp(ctx, blockNumber)
		if err != nil {
			return model.EnrichedStep{}, fmt.Errorf("block timestamp %d: %w", blockNumber, err)
		}
	}

	r.logger.Debug("step built",
		zap.String("tx_hash", hash.Hex()),
		zap.String("source", string(source)),
		zap.String("fn", fn),
		zap.Int("logs", stats.Logs),
		zap.Int("decoded", stats.Decoded),
	)

	return step.Assemble(step.Input{
		Hash:           hash.Hex(),
		SourceContract: source,
		Fn:             fn,
		Events:         events,
		BlockNumber:    blockNumber,
		Timestamp:      ts,
		InferHook:      r.opts.InferHooks,
	}), nil
}

// resolveSource finds the registered contract the transaction called and
// the function name from its input.
func (r *Replayer) resolveSource(ctx context.Context, hash common.Hash) (model.ContractName, string, error) {
	if !r.opts.ResolveFunctions {
		return "", "", nil
	}

	var tx *types.Transaction
	err := withRetry(ctx, "transaction", r.opts.MaxRetries, r.opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		tx, err = r.chain.TransactionByHash(ctx, hash)
		if err != nil {
			r.logger.Warn("transaction fetch failed", zap.Error(err), zap.String("tx_hash", hash.Hex()))
		}
		return err
	})
	if err != nil {
		return "", "", fmt.Errorf("fetch transaction: %w", err)
	}
	if tx == nil || tx.To() == nil {
		return "", "", nil
	}

	entry, ok := r.registry.EntryByAddress(*tx.To())
	if !ok {
		return "", "", nil
	}
	return entry.Name, decoder.MethodName(entry.ABI, tx.Data()), nil
}

func (r *Replayer) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, "block_timestamp", r.opts.MaxRetries, r.opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func recordStats(events []model.DecodedEvent, stats decoder.Stats) {
	metrics.LogsProcessed.Add(float64(stats.Logs))
	metrics.LogsDropped.Add(float64(stats.Dropped))
	for _, event := range events {
		metrics.EventsDecoded.WithLabelValues(string(event.Contract), strconv.FormatBool(event.IsHero)).Inc()
	}
}
