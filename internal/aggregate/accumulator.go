package aggregate

import (
	"time"

	"fundingScope/internal/model"
)

// Accumulator holds counts for one contract event in one window.
type Accumulator struct {
	Contract    model.ContractName
	EventName   string
	WindowStart uint64
	WindowEnd   uint64
	EventCount  uint64
	HeroCount   uint64
	StepCount   uint64
	FirstBlock  uint64
	LastBlock   uint64

	lastStep uint64
}

func NewAccumulator(event model.DecodedEvent, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Contract:    event.Contract,
		EventName:   event.Event,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
}

// AddEvent counts one occurrence of the event. seq identifies the step it
// came from so repeated events within one step count the step once.
func (a *Accumulator) AddEvent(step model.EnrichedStep, event model.DecodedEvent, seq uint64) {
	a.EventCount++
	if event.IsHero {
		a.HeroCount++
	}
	if seq != a.lastStep {
		a.StepCount++
		a.lastStep = seq
	}

	if step.BlockNumber == 0 {
		return
	}
	if a.FirstBlock == 0 || step.BlockNumber < a.FirstBlock {
		a.FirstBlock = step.BlockNumber
	}
	if step.BlockNumber > a.LastBlock {
		a.LastBlock = step.BlockNumber
	}
}

// Count converts the accumulator into a storable row.
func (a *Accumulator) Count(windowSeconds uint64) model.EventWindowCount {
	return model.EventWindowCount{
		Contract:       a.Contract,
		EventName:      a.EventName,
		WindowSizeSecs: int64(windowSeconds),
		WindowStart:    time.Unix(int64(a.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(a.WindowEnd), 0).UTC(),
		EventCount:     a.EventCount,
		HeroCount:      a.HeroCount,
		StepCount:      a.StepCount,
		FirstBlock:     a.FirstBlock,
		LastBlock:      a.LastBlock,
	}
}
