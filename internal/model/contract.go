package model

import (
	"fmt"
	"strings"
)

// ContractName identifies one of the protocol contracts.
type ContractName string

const (
	WorkflowEngine         ContractName = "WorkflowEngine"
	SolvencyConsumer       ContractName = "SolvencyConsumer"
	MilestoneConsumer      ContractName = "MilestoneConsumer"
	TokenizedFundingEngine ContractName = "TokenizedFundingEngine"
	ReserveVerifier        ContractName = "ReserveVerifier"
)

// ContractNames lists every known contract in display order.
var ContractNames = []ContractName{
	WorkflowEngine,
	SolvencyConsumer,
	MilestoneConsumer,
	TokenizedFundingEngine,
	ReserveVerifier,
}

var contractLabels = map[ContractName]string{
	WorkflowEngine:         "Workflow Engine",
	SolvencyConsumer:       "Solvency Oracle",
	MilestoneConsumer:      "Milestone Verifier",
	TokenizedFundingEngine: "Funding Engine",
	ReserveVerifier:        "Reserve Verifier",
}

var contractColors = map[ContractName]string{
	WorkflowEngine:         "#6366f1",
	SolvencyConsumer:       "#f59e0b",
	MilestoneConsumer:      "#10b981",
	TokenizedFundingEngine: "#3b82f6",
	ReserveVerifier:        "#ec4899",
}

// ParseContractName resolves a contract name case-insensitively.
func ParseContractName(input string) (ContractName, error) {
	input = strings.TrimSpace(input)
	for _, name := range ContractNames {
		if strings.EqualFold(string(name), input) {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown contract: %s", input)
}

// Label is the human-readable contract label.
func (c ContractName) Label() string {
	if label, ok := contractLabels[c]; ok {
		return label
	}
	return string(c)
}

// Color is the display color used by renderers.
func (c ContractName) Color() string {
	if color, ok := contractColors[c]; ok {
		return color
	}
	return "#9ca3af"
}
