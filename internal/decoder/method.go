package decoder

import "github.com/ethereum/go-ethereum/accounts/abi"

// MethodName resolves the function called by transaction input, or "" if
// the selector is not part of parsed.
func MethodName(parsed *abi.ABI, input []byte) string {
	if parsed == nil || len(input) < 4 {
		return ""
	}
	method, err := parsed.MethodById(input[:4])
	if err != nil {
		return ""
	}
	return method.RawName
}
