// Package step assembles decoded receipt events into renderable steps.
package step

import (
	"fmt"

	"fundingScope/internal/model"
)

// Input carries everything a step is built from.
type Input struct {
	Label          string
	Hash           string
	SourceContract model.ContractName
	Fn             string
	Events         []model.DecodedEvent
	Hook           *model.CrossContractHook
	Data           map[string]interface{}
	BlockNumber    uint64
	Timestamp      uint64

	// InferHook derives a hook from the events when Hook is nil.
	InferHook bool
}

// Assemble builds an EnrichedStep. The event list is copied as is.
func Assemble(in Input) model.EnrichedStep {
	events := make([]model.DecodedEvent, len(in.Events))
	copy(events, in.Events)

	hook := in.Hook
	if hook == nil && in.InferHook {
		hook = InferHook(in.SourceContract, events)
	}

	label := in.Label
	if label == "" {
		label = DefaultLabel(in.SourceContract, in.Fn)
	}

	return model.EnrichedStep{
		Step:              label,
		Hash:              in.Hash,
		SourceContract:    in.SourceContract,
		Fn:                in.Fn,
		Events:            events,
		CrossContractHook: hook,
		Data:              in.Data,
		BlockNumber:       in.BlockNumber,
		Timestamp:         in.Timestamp,
	}
}

// InferHook reports the first event emitted by a contract other than source.
func InferHook(source model.ContractName, events []model.DecodedEvent) *model.CrossContractHook {
	for _, event := range events {
		if event.Contract == source || event.Contract == "" {
			continue
		}
		return &model.CrossContractHook{
			From:   source,
			To:     event.Contract,
			Reason: fmt.Sprintf("%s emitted by %s", event.Event, event.Contract.Label()),
		}
	}
	return nil
}

// DefaultLabel names a step after its contract and function.
func DefaultLabel(source model.ContractName, fn string) string {
	if fn == "" {
		return source.Label()
	}
	return fmt.Sprintf("%s.%s", source.Label(), fn)
}

// SourceFromEvents picks the contract of the first event, used when the
// transaction target is not a registered contract.
func SourceFromEvents(events []model.DecodedEvent) model.ContractName {
	if len(events) == 0 {
		return ""
	}
	return events[0].Contract
}
