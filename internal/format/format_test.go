package format

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestFormatArgIdentifiers(t *testing.T) {
	if got := FormatArg("roundId", big.NewInt(123456789012345)); got != "123456789012345" {
		t.Fatalf("roundId mismatch: %s", got)
	}
	if got := FormatArg("tokenId", big.NewInt(1234567890123456)); got != "12345678..." {
		t.Fatalf("tokenId mismatch: %s", got)
	}
	if got := FormatArg("messageId", big.NewInt(42)); got != "42" {
		t.Fatalf("messageId mismatch: %s", got)
	}
	if got := FormatArg("id", big.NewInt(123456789012)); got != "123456789012" {
		t.Fatalf("12 digit id should not be truncated: %s", got)
	}
	if got := FormatArg("roundId", big.NewInt(999999999999999)); got != "999999999999999" {
		t.Fatalf("15 digit roundId should not be truncated: %s", got)
	}
	if got := FormatArg("messageId", big.NewInt(1000000000000000)); got != "10000000..." {
		t.Fatalf("16 digit messageId should be truncated: %s", got)
	}
}

func TestFormatArgAmounts(t *testing.T) {
	twoEth, _ := new(big.Int).SetString("2000000000000000000", 10)
	if got := FormatArg("amount", twoEth); got != "2 ETH" {
		t.Fatalf("2 ETH mismatch: %s", got)
	}
	if got := FormatArg("amount", big.NewInt(500)); got != "500" {
		t.Fatalf("small amount mismatch: %s", got)
	}

	fractional, _ := new(big.Int).SetString("2500000000000000000", 10)
	if got := FormatArg("raised", fractional); got != "2.5 ETH" {
		t.Fatalf("fractional mismatch: %s", got)
	}

	threshold := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	if got := FormatArg("score", threshold); got != "1000000000000000" {
		t.Fatalf("threshold value should stay plain: %s", got)
	}
	above := new(big.Int).Add(threshold, big.NewInt(1))
	if got := FormatArg("score", above); got != "0.001000000000000001 ETH" {
		t.Fatalf("above threshold mismatch: %s", got)
	}
}

func TestFormatArgEnums(t *testing.T) {
	if got := FormatArg("riskLevel", uint8(2)); got != "HIGH" {
		t.Fatalf("riskLevel mismatch: %s", got)
	}
	if got := FormatArg("riskLevel", uint8(5)); got != "5" {
		t.Fatalf("out of range riskLevel mismatch: %s", got)
	}
	if got := FormatArg("risk", 3); got != "CRITICAL" {
		t.Fatalf("risk mismatch: %s", got)
	}
	if got := FormatArg("status", uint8(1)); got != "VERIFIED" {
		t.Fatalf("status mismatch: %s", got)
	}
	if got := FormatArg("status", uint8(3)); got != "3" {
		t.Fatalf("out of range status mismatch: %s", got)
	}
	if got := FormatArg("progressBps", uint16(2500)); got != "2500" {
		t.Fatalf("plain small number mismatch: %s", got)
	}
	// wide integers never go through the enum tables
	if got := FormatArg("riskLevel", big.NewInt(2)); got != "2" {
		t.Fatalf("big riskLevel mismatch: %s", got)
	}
}

func TestFormatArgStrings(t *testing.T) {
	addr := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	if got := FormatArg("investor", addr); got != "0x12345678..." {
		t.Fatalf("address mismatch: %s", got)
	}
	if got := FormatArg("reason", "score below floor"); got != "score below floor" {
		t.Fatalf("plain string mismatch: %s", got)
	}
	if got := FormatArg("short", "0xdeadbeef"); got != "0xdeadbeef" {
		t.Fatalf("short hex mismatch: %s", got)
	}

	var hash [32]byte
	hash[0] = 0xab
	if got := FormatArg("evidenceHash", hash); got != "0xab000000..." {
		t.Fatalf("bytes32 mismatch: %s", got)
	}
	if got := FormatArg("payload", []byte{0x01, 0x02}); got != "0x0102" {
		t.Fatalf("bytes mismatch: %s", got)
	}
}

func TestFormatArgFallback(t *testing.T) {
	if got := FormatArg("approved", true); got != "true" {
		t.Fatalf("bool mismatch: %s", got)
	}
	if got := FormatArg("approved", false); got != "false" {
		t.Fatalf("bool mismatch: %s", got)
	}
	if got := FormatArg("amounts", []*big.Int{big.NewInt(1), big.NewInt(2)}); got != "1,2" {
		t.Fatalf("slice mismatch: %s", got)
	}
	if got := FormatArg("nothing", nil); got != "" {
		t.Fatalf("nil mismatch: %s", got)
	}
	type custom struct{ A int }
	if got := FormatArg("custom", custom{A: 1}); got != "{1}" {
		t.Fatalf("struct mismatch: %s", got)
	}
}
