package model

// CrossContractHook annotates a step whose effects crossed into another contract.
type CrossContractHook struct {
	From   ContractName `json:"from"`
	To     ContractName `json:"to"`
	Reason string       `json:"reason"`
}

// EnrichedStep is one rendered step of a protocol replay.
type EnrichedStep struct {
	Step              string                 `json:"step"`
	Hash              string                 `json:"hash,omitempty"`
	SourceContract    ContractName           `json:"sourceContract"`
	Fn                string                 `json:"fn"`
	Events            []DecodedEvent         `json:"events"`
	CrossContractHook *CrossContractHook     `json:"crossContractHook,omitempty"`
	Data              map[string]interface{} `json:"data,omitempty"`
	BlockNumber       uint64                 `json:"block_number,omitempty"`
	Timestamp         uint64                 `json:"timestamp,omitempty"`
}

// HeroCount returns the number of hero events in the step.
func (s EnrichedStep) HeroCount() int {
	count := 0
	for _, event := range s.Events {
		if event.IsHero {
			count++
		}
	}
	return count
}
