package decoder

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"fundingScope/internal/model"
)

// AbiEntry pairs a deployed contract address with the ABI used to decode its logs.
type AbiEntry struct {
	Name    model.ContractName
	ABI     *abi.ABI
	Address common.Address
}
