package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"fundingScope/internal/model"
)

const workflowEngineABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": true, "internalType": "bytes32", "name": "workflowId", "type": "bytes32"},
      {"indexed": false, "internalType": "string", "name": "action", "type": "string"}
    ],
    "name": "WorkflowTriggered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "workflowId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "receiver", "type": "address"},
      {"indexed": false, "internalType": "bytes32", "name": "reportHash", "type": "bytes32"}
    ],
    "name": "ReportDelivered",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"internalType": "string", "name": "action", "type": "string"}
    ],
    "name": "triggerWorkflow",
    "outputs": [{"internalType": "bytes32", "name": "workflowId", "type": "bytes32"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const solvencyConsumerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "score", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "riskLevel", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "timestamp", "type": "uint256"}
    ],
    "name": "SolvencyUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "riskLevel", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "score", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "reason", "type": "string"}
    ],
    "name": "RiskAlertTriggered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "RescueFundingTriggered",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"internalType": "bytes", "name": "report", "type": "bytes"}
    ],
    "name": "onReport",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "projectId", "type": "uint256"}],
    "name": "getSolvency",
    "outputs": [
      {"internalType": "uint256", "name": "score", "type": "uint256"},
      {"internalType": "uint8", "name": "riskLevel", "type": "uint8"},
      {"internalType": "uint256", "name": "updatedAt", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const milestoneConsumerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "milestoneId", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "evidenceHash", "type": "bytes32"}
    ],
    "name": "MilestoneSubmitted",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "milestoneId", "type": "uint256"},
      {"indexed": false, "internalType": "uint16", "name": "progressBps", "type": "uint16"}
    ],
    "name": "MilestoneApproved",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "milestoneId", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "reason", "type": "string"}
    ],
    "name": "MilestoneRejected",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"internalType": "uint256", "name": "milestoneId", "type": "uint256"},
      {"internalType": "bytes", "name": "report", "type": "bytes"}
    ],
    "name": "onReport",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"internalType": "uint256", "name": "milestoneId", "type": "uint256"}
    ],
    "name": "getMilestone",
    "outputs": [
      {"internalType": "bool", "name": "approved", "type": "bool"},
      {"internalType": "uint16", "name": "progressBps", "type": "uint16"},
      {"internalType": "bytes32", "name": "evidenceHash", "type": "bytes32"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const fundingEngineABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "targetAmount", "type": "uint256"}
    ],
    "name": "FundingRoundCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "investor", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Invested",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "trancheIndex", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "milestoneId", "type": "uint256"}
    ],
    "name": "TrancheReleased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"internalType": "uint256", "name": "targetAmount", "type": "uint256"},
      {"internalType": "uint16[]", "name": "trancheBps", "type": "uint16[]"}
    ],
    "name": "createFundingRound",
    "outputs": [{"internalType": "uint256", "name": "roundId", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "roundId", "type": "uint256"}],
    "name": "invest",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "roundId", "type": "uint256"},
      {"internalType": "uint256", "name": "milestoneId", "type": "uint256"}
    ],
    "name": "releaseTranche",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "roundId", "type": "uint256"}],
    "name": "getRound",
    "outputs": [
      {"internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"internalType": "uint256", "name": "targetAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "raisedAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "releasedAmount", "type": "uint256"},
      {"internalType": "uint8", "name": "tranchesReleased", "type": "uint8"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const reserveVerifierABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": false, "internalType": "bytes32", "name": "messageId", "type": "bytes32"}
    ],
    "name": "ReserveCheckRequested",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "projectId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "reserves", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "liabilities", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "status", "type": "uint8"}
    ],
    "name": "ReservesVerified",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "projectId", "type": "uint256"}],
    "name": "requestReserveCheck",
    "outputs": [{"internalType": "bytes32", "name": "messageId", "type": "bytes32"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "projectId", "type": "uint256"}],
    "name": "latestReserves",
    "outputs": [
      {"internalType": "uint256", "name": "reserves", "type": "uint256"},
      {"internalType": "uint256", "name": "liabilities", "type": "uint256"},
      {"internalType": "uint8", "name": "status", "type": "uint8"},
      {"internalType": "uint256", "name": "checkedAt", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var embeddedABIJSON = map[model.ContractName]string{
	model.WorkflowEngine:         workflowEngineABIJSON,
	model.SolvencyConsumer:       solvencyConsumerABIJSON,
	model.MilestoneConsumer:      milestoneConsumerABIJSON,
	model.TokenizedFundingEngine: fundingEngineABIJSON,
	model.ReserveVerifier:        reserveVerifierABIJSON,
}

var (
	embeddedABIs     map[model.ContractName]*abi.ABI
	embeddedABIsOnce sync.Once
	embeddedABIsErr  error
)

// EmbeddedABI returns the built-in ABI for a protocol contract.
func EmbeddedABI(name model.ContractName) (*abi.ABI, error) {
	embeddedABIsOnce.Do(func() {
		embeddedABIs = make(map[model.ContractName]*abi.ABI, len(embeddedABIJSON))
		for contract, raw := range embeddedABIJSON {
			parsed, err := abi.JSON(strings.NewReader(raw))
			if err != nil {
				embeddedABIsErr = fmt.Errorf("parse %s abi: %w", contract, err)
				return
			}
			embeddedABIs[contract] = &parsed
		}
	})
	if embeddedABIsErr != nil {
		return nil, embeddedABIsErr
	}
	parsed, ok := embeddedABIs[name]
	if !ok {
		return nil, fmt.Errorf("no embedded abi for %s", name)
	}
	return parsed, nil
}
