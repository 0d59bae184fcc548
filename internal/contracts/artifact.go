package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

type artifactFile struct {
	ABI json.RawMessage `json:"abi"`
}

// LoadArtifact reads an ABI from a build artifact on disk.
func LoadArtifact(path string) (*abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	parsed, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// ParseArtifact accepts a Hardhat/Foundry artifact ({"abi": [...]}) or a bare ABI array.
func ParseArtifact(data []byte) (*abi.ABI, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty artifact")
	}

	raw := data
	if data[0] != '[' {
		var artifact artifactFile
		if err := json.Unmarshal(data, &artifact); err != nil {
			return nil, fmt.Errorf("parse artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return nil, fmt.Errorf("artifact has no abi field")
		}
		raw = artifact.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &parsed, nil
}
