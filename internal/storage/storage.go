package storage

import (
	"context"

	"fundingScope/internal/model"
)

// StepSink receives enriched steps produced by a replay.
type StepSink interface {
	PutSteps(ctx context.Context, steps []model.EnrichedStep) error
}
