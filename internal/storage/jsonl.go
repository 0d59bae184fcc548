package storage

import (
	"context"
	"sync"

	"fundingScope/internal/model"
)

// JsonlStorage appends enriched steps to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutSteps appends a batch of steps as JSON lines.
func (s *JsonlStorage) PutSteps(_ context.Context, steps []model.EnrichedStep) error {
	if len(steps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := OpenWriter(s.path, true)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if err := w.Write(step); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// MultiSink fans steps out to several sinks in order.
type MultiSink []StepSink

// PutSteps writes to every sink, stopping at the first error.
func (m MultiSink) PutSteps(ctx context.Context, steps []model.EnrichedStep) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutSteps(ctx, steps); err != nil {
			return err
		}
	}
	return nil
}
