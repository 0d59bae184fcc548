package contracts

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseArgs converts command-line strings into the Go values the method's
// inputs pack from.
func ParseArgs(method abi.Method, raw []string) ([]interface{}, error) {
	if len(raw) != len(method.Inputs) {
		return nil, fmt.Errorf("%s expects %d args, got %d", method.Name, len(method.Inputs), len(raw))
	}
	out := make([]interface{}, 0, len(raw))
	for i, input := range method.Inputs {
		value, err := parseArg(input.Type, strings.TrimSpace(raw[i]))
		if err != nil {
			return nil, fmt.Errorf("arg %d (%s): %w", i, input.Type.String(), err)
		}
		out = append(out, value)
	}
	return out, nil
}

func parseArg(typ abi.Type, raw string) (interface{}, error) {
	switch typ.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address: %s", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.BoolTy:
		return strconv.ParseBool(raw)
	case abi.StringTy:
		return raw, nil
	case abi.UintTy, abi.IntTy:
		return parseInteger(typ, raw)
	case abi.BytesTy:
		return hexutil.Decode(raw)
	case abi.FixedBytesTy:
		data, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(data) > typ.Size {
			return nil, fmt.Errorf("value longer than %d bytes", typ.Size)
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr.Slice(typ.Size-len(data), typ.Size), reflect.ValueOf(data))
		return arr.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported type")
	}
}

func parseInteger(typ abi.Type, raw string) (interface{}, error) {
	value, ok := new(big.Int).SetString(raw, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer: %s", raw)
	}
	if typ.T == abi.UintTy && value.Sign() < 0 {
		return nil, fmt.Errorf("negative value for unsigned type")
	}
	if typ.Size > 64 {
		return value, nil
	}

	if typ.T == abi.UintTy {
		if !value.IsUint64() || value.BitLen() > typ.Size {
			return nil, fmt.Errorf("value out of range")
		}
		v := value.Uint64()
		switch typ.Size {
		case 8:
			return uint8(v), nil
		case 16:
			return uint16(v), nil
		case 32:
			return uint32(v), nil
		case 64:
			return v, nil
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		if value.Cmp(limit) >= 0 || value.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value out of range")
		}
		v := value.Int64()
		switch typ.Size {
		case 8:
			return int8(v), nil
		case 16:
			return int16(v), nil
		case 32:
			return int32(v), nil
		case 64:
			return v, nil
		}
	}
	// Widths other than 8, 16, 32 and 64 pack from *big.Int.
	return value, nil
}
