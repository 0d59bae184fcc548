package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fundingScope/internal/model"
)

type recordingSink struct {
	counts []model.EventWindowCount
	calls  int
}

func (r *recordingSink) UpsertEventWindowCounts(_ context.Context, counts []model.EventWindowCount) error {
	r.calls++
	r.counts = append(r.counts, counts...)
	return nil
}

func writeSteps(t *testing.T, steps ...model.EnrichedStep) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steps.jsonl")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer file.Close()
	for _, step := range steps {
		line, err := json.Marshal(step)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return path
}

func fundingEvent(name string, hero bool) model.DecodedEvent {
	return model.DecodedEvent{Contract: model.TokenizedFundingEngine, Event: name, IsHero: hero}
}

func findCount(counts []model.EventWindowCount, event string, start int64) (model.EventWindowCount, bool) {
	for _, count := range counts {
		if count.EventName == event && count.WindowStart.Unix() == start {
			return count, true
		}
	}
	return model.EventWindowCount{}, false
}

func TestAggregatorCountsPerWindow(t *testing.T) {
	input := writeSteps(t,
		model.EnrichedStep{Hash: "0x1", BlockNumber: 10, Timestamp: 3605, Events: []model.DecodedEvent{
			fundingEvent("FundingRoundCreated", true),
			fundingEvent("Transfer", false),
			fundingEvent("Transfer", false),
		}},
		model.EnrichedStep{Hash: "0x2", BlockNumber: 12, Timestamp: 3700, Events: []model.DecodedEvent{
			fundingEvent("Transfer", false),
		}},
		model.EnrichedStep{Hash: "0x3", BlockNumber: 20, Timestamp: 7300, Events: []model.DecodedEvent{
			fundingEvent("Transfer", false),
		}},
		model.EnrichedStep{Hash: "0x4", Events: []model.DecodedEvent{fundingEvent("Transfer", false)}},
	)

	sink := &recordingSink{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	agg := NewAggregator(Config{WindowSeconds: 3600, StateStore: state}, sink, nil)
	if err := agg.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.counts) != 3 {
		t.Fatalf("expected 3 window counts, got %d", len(sink.counts))
	}

	transfers, ok := findCount(sink.counts, "Transfer", 3600)
	if !ok {
		t.Fatalf("missing first Transfer window")
	}
	if transfers.EventCount != 3 || transfers.StepCount != 2 || transfers.HeroCount != 0 {
		t.Fatalf("unexpected Transfer counts: %+v", transfers)
	}
	if transfers.FirstBlock != 10 || transfers.LastBlock != 12 {
		t.Fatalf("unexpected block span: %d-%d", transfers.FirstBlock, transfers.LastBlock)
	}
	if transfers.WindowEnd.Unix() != 7200 || transfers.WindowSizeSecs != 3600 {
		t.Fatalf("unexpected window: %+v", transfers)
	}

	rounds, ok := findCount(sink.counts, "FundingRoundCreated", 3600)
	if !ok || rounds.HeroCount != 1 || rounds.EventCount != 1 {
		t.Fatalf("unexpected FundingRoundCreated counts: %+v", rounds)
	}

	if later, ok := findCount(sink.counts, "Transfer", 7200); !ok || later.EventCount != 1 {
		t.Fatalf("unexpected second Transfer window: %+v", later)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 7300 {
		t.Fatalf("unexpected state: last=%d ok=%v err=%v", last, ok, err)
	}
}

func TestAggregatorResumesFromState(t *testing.T) {
	input := writeSteps(t,
		model.EnrichedStep{Timestamp: 100, Events: []model.DecodedEvent{fundingEvent("Invested", false)}},
		model.EnrichedStep{Timestamp: 200, Events: []model.DecodedEvent{fundingEvent("Invested", false)}},
	)

	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	if err := state.Save(context.Background(), 150); err != nil {
		t.Fatalf("save state: %v", err)
	}

	sink := &recordingSink{}
	if err := NewAggregator(Config{WindowSeconds: 60, StateStore: state}, sink, nil).Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.counts) != 1 || sink.counts[0].EventCount != 1 || sink.counts[0].WindowStart.Unix() != 180 {
		t.Fatalf("unexpected counts: %+v", sink.counts)
	}
}

func TestAggregatorValidatesConfig(t *testing.T) {
	if err := NewAggregator(Config{WindowSeconds: 60}, nil, nil).Run(context.Background(), "unused"); err == nil {
		t.Fatalf("expected error for nil sink")
	}
	if err := NewAggregator(Config{}, &recordingSink{}, nil).Run(context.Background(), "unused"); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestFileStateStoreMissingFile(t *testing.T) {
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "missing.json")}
	if _, ok, err := state.Load(context.Background()); ok || err != nil {
		t.Fatalf("expected empty state, ok=%v err=%v", ok, err)
	}
}

func TestFileStateStoreRejectsOtherWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	hourly := &FileStateStore{Path: path, WindowSeconds: 3600}
	if err := hourly.Save(context.Background(), 42); err != nil {
		t.Fatalf("save: %v", err)
	}

	if last, ok, err := hourly.Load(context.Background()); err != nil || !ok || last != 42 {
		t.Fatalf("unexpected state: last=%d ok=%v err=%v", last, ok, err)
	}

	daily := &FileStateStore{Path: path, WindowSeconds: 86400}
	if _, _, err := daily.Load(context.Background()); err == nil {
		t.Fatalf("expected error for mismatched window")
	}
}

type memoryBackend map[string]uint64

func (m memoryBackend) LoadState(_ context.Context, name string) (uint64, bool, error) {
	last, ok := m[name]
	return last, ok, nil
}

func (m memoryBackend) SaveState(_ context.Context, name string, last uint64) error {
	m[name] = last
	return nil
}

func TestAggregatorSavesDBState(t *testing.T) {
	input := writeSteps(t,
		model.EnrichedStep{Timestamp: 90, Events: []model.DecodedEvent{fundingEvent("TrancheReleased", true)}},
	)

	backend := memoryBackend{}
	state := &DBStateStore{Store: backend, Name: "aggregator:60"}
	sink := &recordingSink{}
	if err := NewAggregator(Config{WindowSeconds: 60, StateStore: state}, sink, nil).Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}
	if backend["aggregator:60"] != 90 {
		t.Fatalf("unexpected saved state: %v", backend)
	}
	if len(sink.counts) != 1 || sink.counts[0].HeroCount != 1 {
		t.Fatalf("unexpected counts: %+v", sink.counts)
	}
}

func TestAggregatorMergesOutOfOrderSteps(t *testing.T) {
	transfer := []model.DecodedEvent{fundingEvent("Transfer", false)}
	input := writeSteps(t,
		model.EnrichedStep{Hash: "0x1", BlockNumber: 5, Timestamp: 3605, Events: transfer},
		model.EnrichedStep{Hash: "0x2", BlockNumber: 6, Timestamp: 3610, Events: transfer},
		model.EnrichedStep{Hash: "0x3", BlockNumber: 9, Timestamp: 7300, Events: transfer},
		model.EnrichedStep{Hash: "0x4", BlockNumber: 4, Timestamp: 3620, Events: transfer},
	)

	sink := &recordingSink{}
	if err := NewAggregator(Config{WindowSeconds: 3600, BatchSize: 1}, sink, nil).Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.counts) != 2 {
		t.Fatalf("expected one row per window, got %d: %+v", len(sink.counts), sink.counts)
	}
	if sink.calls != 2 {
		t.Fatalf("expected 2 batches of 1, got %d", sink.calls)
	}

	early, ok := findCount(sink.counts, "Transfer", 3600)
	if !ok || early.EventCount != 3 || early.StepCount != 3 {
		t.Fatalf("unexpected early window: %+v", early)
	}
	if early.FirstBlock != 4 || early.LastBlock != 6 {
		t.Fatalf("unexpected block span: %d-%d", early.FirstBlock, early.LastBlock)
	}
	if sink.counts[0].WindowStart.Unix() != 3600 || sink.counts[1].WindowStart.Unix() != 7200 {
		t.Fatalf("expected rows ordered by window start")
	}
}
