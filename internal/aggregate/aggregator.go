package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"fundingScope/internal/model"
)

// CountSink persists window counts. *postgres.Store implements it.
type CountSink interface {
	UpsertEventWindowCounts(ctx context.Context, counts []model.EventWindowCount) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator buckets step events into per-window counts.
type Aggregator struct {
	cfg          Config
	sink         CountSink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink CountSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over a step JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	maxTs := startTs
	var total, skipped, failed int
	var seq uint64

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var step model.EnrichedStep
		if err := json.Unmarshal(line, &step); err != nil {
			failed++
			a.logger.Warn("decode step", zap.Error(err))
			continue
		}

		if step.Timestamp == 0 || step.Timestamp <= startTs {
			skipped++
			continue
		}
		seq++

		windowStart := windowStart(step.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		for _, event := range step.Events {
			key := accumulatorKey(event, windowStart)
			acc := a.accumulators[key]
			if acc == nil {
				acc = NewAccumulator(event, windowStart, windowEnd)
				a.accumulators[key] = acc
			}
			acc.AddEvent(step, event, seq)
		}

		if step.Timestamp > maxTs {
			maxTs = step.Timestamp
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	// Steps may arrive in any timestamp order, so a window is only complete
	// once the whole input has been read.
	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	counted := len(keys)
	for start := 0; start < len(keys); start += a.cfg.BatchSize {
		end := start + a.cfg.BatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := make([]model.EventWindowCount, 0, end-start)
		for _, key := range keys[start:end] {
			batch = append(batch, a.accumulators[key].Count(a.cfg.WindowSeconds))
		}
		if err := a.sink.UpsertEventWindowCounts(ctx, batch); err != nil {
			return err
		}
	}
	a.accumulators = make(map[string]*Accumulator)

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", counted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

// accumulatorKey sorts by contract, event, then window start.
func accumulatorKey(event model.DecodedEvent, windowStart uint64) string {
	return fmt.Sprintf("%s/%s/%020d", event.Contract, event.Event, windowStart)
}
