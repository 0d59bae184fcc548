package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"fundingScope/internal/decoder"
	"fundingScope/internal/model"
)

// Spec describes one deployed contract: its name, address and an optional
// artifact path. Without an artifact the embedded ABI is used.
type Spec struct {
	Name     string
	Address  string
	Artifact string
}

// ParseSpec parses "name=address" or "name=address@artifact".
func ParseSpec(input string) (Spec, error) {
	parts := strings.SplitN(strings.TrimSpace(input), "=", 2)
	if len(parts) != 2 {
		return Spec{}, fmt.Errorf("invalid contract spec: %s", input)
	}
	spec := Spec{Name: strings.TrimSpace(parts[0])}
	target := strings.TrimSpace(parts[1])
	if idx := strings.Index(target, "@"); idx >= 0 {
		spec.Artifact = strings.TrimSpace(target[idx+1:])
		target = strings.TrimSpace(target[:idx])
	}
	spec.Address = target
	if spec.Name == "" || spec.Address == "" {
		return Spec{}, fmt.Errorf("invalid contract spec: %s", input)
	}
	return spec, nil
}

// Registry holds the ABI entries for one deployment, in match-priority order.
type Registry struct {
	entries   []decoder.AbiEntry
	byName    map[model.ContractName]int
	byAddress map[common.Address]int
}

// NewRegistry resolves specs into ABI entries.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{
		entries:   make([]decoder.AbiEntry, 0, len(specs)),
		byName:    make(map[model.ContractName]int, len(specs)),
		byAddress: make(map[common.Address]int, len(specs)),
	}

	for _, spec := range specs {
		name, err := model.ParseContractName(spec.Name)
		if err != nil {
			return nil, err
		}
		if !common.IsHexAddress(spec.Address) {
			return nil, fmt.Errorf("invalid address for %s: %s", name, spec.Address)
		}
		address := common.HexToAddress(spec.Address)

		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("duplicate contract: %s", name)
		}
		if _, ok := r.byAddress[address]; ok {
			return nil, fmt.Errorf("duplicate address: %s", address.Hex())
		}

		entry := decoder.AbiEntry{Name: name, Address: address}
		if spec.Artifact != "" {
			entry.ABI, err = LoadArtifact(spec.Artifact)
		} else {
			entry.ABI, err = EmbeddedABI(name)
		}
		if err != nil {
			return nil, fmt.Errorf("load abi for %s: %w", name, err)
		}

		r.byName[name] = len(r.entries)
		r.byAddress[address] = len(r.entries)
		r.entries = append(r.entries, entry)
	}

	return r, nil
}

// Entries returns a copy of the entries in priority order.
func (r *Registry) Entries() []decoder.AbiEntry {
	out := make([]decoder.AbiEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Addresses returns the registered contract addresses in priority order.
func (r *Registry) Addresses() []common.Address {
	out := make([]common.Address, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Address)
	}
	return out
}

// Entry looks up an entry by contract name.
func (r *Registry) Entry(name model.ContractName) (decoder.AbiEntry, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return decoder.AbiEntry{}, false
	}
	return r.entries[idx], true
}

// EntryByAddress looks up an entry by deployed address.
func (r *Registry) EntryByAddress(address common.Address) (decoder.AbiEntry, bool) {
	idx, ok := r.byAddress[address]
	if !ok {
		return decoder.AbiEntry{}, false
	}
	return r.entries[idx], true
}

// Len returns the number of registered contracts.
func (r *Registry) Len() int {
	return len(r.entries)
}
