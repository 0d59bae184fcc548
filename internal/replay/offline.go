package replay

import (
	"fundingScope/internal/decoder"
	"fundingScope/internal/model"
	"fundingScope/internal/step"
)

// StepsFromRecords builds steps from already fetched log records without a
// chain connection. The source contract comes from the first decoded event
// and the timestamp from the records. Transactions with no decoded event
// produce no step. Writing the steps, and counting them, is up to the caller.
func StepsFromRecords(dec *decoder.Decoder, records []model.LogRecord, inferHooks bool) []model.EnrichedStep {
	steps := make([]model.EnrichedStep, 0)
	for _, group := range groupByTransaction(records) {
		events, stats := dec.Decode(group.Logs)
		recordStats(events, stats)
		if len(events) == 0 {
			continue
		}

		var ts uint64
		for _, record := range group.Logs {
			if record.Timestamp > ts {
				ts = record.Timestamp
			}
		}

		steps = append(steps, step.Assemble(step.Input{
			Hash:           group.TxHash,
			SourceContract: step.SourceFromEvents(events),
			Events:         events,
			BlockNumber:    group.BlockNumber,
			Timestamp:      ts,
			InferHook:      inferHooks,
		}))
	}
	return steps
}
