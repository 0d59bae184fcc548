package decoder

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"fundingScope/internal/format"
	"fundingScope/internal/model"
)

const (
	// UnknownEventName is used when a matched event carries no name.
	UnknownEventName = "UnknownEvent"

	suppressedField = "projectId"
)

// attempt is one candidate interpretation of a log: an address predicate
// and a fallible decoder bound to a single ABI entry.
type attempt struct {
	contract model.ContractName
	accepts  func(log model.LogRecord) bool
	decode   func(log model.LogRecord) (string, model.Args, error)
}

func newAttempt(entry AbiEntry) attempt {
	address := entry.Address.Hex()
	parsed := entry.ABI
	return attempt{
		contract: entry.Name,
		accepts: func(log model.LogRecord) bool {
			return strings.EqualFold(strings.TrimSpace(log.Address), address)
		},
		decode: func(log model.LogRecord) (string, model.Args, error) {
			return decodeLog(parsed, log)
		},
	}
}

func attemptsFor(entries []AbiEntry) []attempt {
	attempts := make([]attempt, 0, len(entries))
	for _, entry := range entries {
		attempts = append(attempts, newAttempt(entry))
	}
	return attempts
}

// Match returns the decoded event for the first entry whose address equals
// the log address and whose ABI decodes the log.
func Match(log model.LogRecord, entries []AbiEntry, heroes HeroSet) (model.DecodedEvent, bool) {
	return matchAttempts(log, attemptsFor(entries), heroes)
}

func matchAttempts(log model.LogRecord, attempts []attempt, heroes HeroSet) (model.DecodedEvent, bool) {
	for _, candidate := range attempts {
		if !candidate.accepts(log) {
			continue
		}
		name, args, err := candidate.decode(log)
		if err != nil {
			continue
		}
		return model.DecodedEvent{
			Contract: candidate.contract,
			Event:    name,
			Args:     args,
			IsHero:   heroes.IsHero(name),
		}, true
	}
	return model.DecodedEvent{}, false
}

func decodeLog(parsed *abi.ABI, log model.LogRecord) (string, model.Args, error) {
	if parsed == nil {
		return "", nil, fmt.Errorf("abi is nil")
	}
	if len(log.Topics) == 0 {
		return "", nil, fmt.Errorf("missing topic0")
	}

	topics, err := parseTopicHashes(log.Topics)
	if err != nil {
		return "", nil, err
	}
	event, err := parsed.EventByID(topics[0])
	if err != nil {
		return "", nil, err
	}

	inputs := namedArguments(event.Inputs)
	indexed := indexedArguments(inputs)
	if len(topics)-1 != len(indexed) {
		return "", nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(topics))
	}

	values := make(map[string]interface{}, len(inputs))
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(values, indexed, topics[1:]); err != nil {
			return "", nil, fmt.Errorf("parse topics: %w", err)
		}
	}

	data, err := decodeData(log.Data)
	if err != nil {
		return "", nil, err
	}
	if err := inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return "", nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	args := make(model.Args, 0, len(inputs))
	for _, input := range inputs {
		if input.Name == suppressedField {
			continue
		}
		args = append(args, model.Arg{
			Key:   input.Name,
			Value: format.FormatArg(input.Name, values[input.Name]),
		})
	}

	return eventName(event), args, nil
}

func eventName(event *abi.Event) string {
	if event.RawName != "" {
		return event.RawName
	}
	if event.Name != "" {
		return event.Name
	}
	return UnknownEventName
}
