// Package format renders decoded event fields as display strings.
//
// Integers wider than 64 bits (*big.Int) and native Go numbers follow
// different rules: the ABI decoder returns *big.Int for uint256 style
// fields and native integers for uint8..uint64, and the display rules are
// keyed on that split plus the field name.
package format

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	ethDecimals       = 18
	maxIdentifierLen  = 15
	identifierKeepLen = 8
	maxHexLen         = 18
	hexKeepLen        = 10
	ellipsis          = "..."
)

var (
	// amountThreshold separates token amounts in wei from counts and scores.
	amountThreshold = new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	weiPerEth       = new(big.Int).Exp(big.NewInt(10), big.NewInt(ethDecimals), nil)

	identifierKeys = map[string]struct{}{
		"tokenId":   {},
		"id":        {},
		"roundId":   {},
		"messageId": {},
	}

	riskLevels      = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	reserveStatus   = []string{"UNVERIFIED", "VERIFIED", "DEFICIT"}
	enumLabelsByKey = map[string][]string{
		"riskLevel": riskLevels,
		"risk":      riskLevels,
		"status":    reserveStatus,
	}
)

// FormatArg renders a decoded field for display. It never fails; values of
// unexpected types degrade to their plain string form.
func FormatArg(key string, value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case *big.Int:
		if v == nil {
			return "0"
		}
		return formatBigInt(key, v)
	case big.Int:
		return formatBigInt(key, &v)
	case string:
		return formatString(v)
	case common.Address:
		return formatString(v.Hex())
	case *common.Address:
		if v == nil {
			return ""
		}
		return formatString(v.Hex())
	case common.Hash:
		return formatString(v.Hex())
	case []byte:
		return formatString(hexutil.Encode(v))
	}

	if raw, ok := smallNumber(value); ok {
		return formatSmallNumber(key, value, raw)
	}

	return formatFallback(value)
}

// FormatEther renders a wei amount in whole ETH with trailing zeros trimmed.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	sign := ""
	abs := new(big.Int).Abs(wei)
	if wei.Sign() < 0 {
		sign = "-"
	}
	text := new(big.Rat).SetFrac(abs, weiPerEth).FloatString(ethDecimals)
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, ".")
	}
	return sign + text
}

func formatBigInt(key string, value *big.Int) string {
	text := value.String()
	if _, ok := identifierKeys[key]; ok {
		if len(text) > maxIdentifierLen {
			return text[:identifierKeepLen] + ellipsis
		}
		return text
	}
	if value.Cmp(amountThreshold) > 0 {
		return FormatEther(value) + " ETH"
	}
	return text
}

func formatSmallNumber(key string, value interface{}, raw string) string {
	labels, ok := enumLabelsByKey[key]
	if !ok {
		return raw
	}
	idx, ok := enumIndex(value)
	if !ok || idx < 0 || idx >= int64(len(labels)) {
		return raw
	}
	return labels[idx]
}

func formatString(value string) string {
	if strings.HasPrefix(value, "0x") && len(value) > maxHexLen {
		return value[:hexKeepLen] + ellipsis
	}
	return value
}

func formatFallback(value interface{}) string {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			buf := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(buf), rv)
			return formatString(hexutil.Encode(buf))
		}
		return joinElements(rv)
	case reflect.Slice:
		return joinElements(rv)
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
	}
	return fmt.Sprint(value)
}

func joinElements(rv reflect.Value) string {
	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts = append(parts, plainString(rv.Index(i).Interface()))
	}
	return strings.Join(parts, ",")
}

func plainString(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return "0"
		}
		return v.String()
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case []byte:
		return hexutil.Encode(v)
	}
	return fmt.Sprint(value)
}

func smallNumber(value interface{}) (string, bool) {
	switch v := value.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func enumIndex(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return clampUint(uint64(v)), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return clampUint(v), true
	case float32:
		return floatIndex(float64(v))
	case float64:
		return floatIndex(v)
	default:
		return 0, false
	}
}

func clampUint(v uint64) int64 {
	if v > math.MaxInt64 {
		return -1
	}
	return int64(v)
}

func floatIndex(v float64) (int64, bool) {
	if v != float64(int64(v)) {
		return 0, false
	}
	return int64(v), true
}
