package decoder

import "fundingScope/internal/model"

// Stats summarizes one decode pass.
type Stats struct {
	Logs    int
	Decoded int
	Dropped int
}

// Decoder decodes receipt logs against a fixed, ordered set of ABI entries.
// It holds no mutable state and is safe for concurrent use.
type Decoder struct {
	attempts []attempt
	heroes   HeroSet
}

// NewDecoder builds a decoder. Entry order is match priority.
func NewDecoder(entries []AbiEntry, heroes HeroSet) *Decoder {
	return &Decoder{
		attempts: attemptsFor(entries),
		heroes:   heroes,
	}
}

// Decode returns one event per decodable log, in log order.
func (d *Decoder) Decode(logs []model.LogRecord) ([]model.DecodedEvent, Stats) {
	stats := Stats{Logs: len(logs)}
	events := make([]model.DecodedEvent, 0, len(logs))
	if len(d.attempts) == 0 {
		stats.Dropped = len(logs)
		return events, stats
	}

	for _, log := range logs {
		event, ok := matchAttempts(log, d.attempts, d.heroes)
		if !ok {
			stats.Dropped++
			continue
		}
		events = append(events, event)
		stats.Decoded++
	}
	return events, stats
}

// DecodeReceiptEvents decodes logs against entries using the default hero set.
// Logs no entry can decode are dropped; the result keeps input order.
func DecodeReceiptEvents(logs []model.LogRecord, entries []AbiEntry) []model.DecodedEvent {
	events, _ := NewDecoder(entries, DefaultHeroSet()).Decode(logs)
	return events
}
