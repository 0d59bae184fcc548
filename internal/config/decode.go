package config

import (
	"time"

	"github.com/spf13/pflag"

	"fundingScope/internal/contracts"
)

// DecodeConfig holds configuration for the offline decode command.
type DecodeConfig struct {
	In         string
	Out        string
	Errors     string
	Contracts  []contracts.Spec
	HeroEvents []string
	InferHooks bool
	LogLevel   string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":         "./data/steps.jsonl",
		"errors":      "./data/decode_errors.jsonl",
		"infer-hooks": true,
		"log-level":   "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	specs, err := getContractSpecs(v)
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		In:         v.GetString("in"),
		Out:        v.GetString("out"),
		Errors:     v.GetString("errors"),
		Contracts:  specs,
		HeroEvents: getStringSlice(v, "hero-events"),
		InferHooks: v.GetBool("infer-hooks"),
		LogLevel:   v.GetString("log-level"),
	}, nil
}

// ReceiptConfig holds configuration for replaying individual transactions.
type ReceiptConfig struct {
	RPCURL           string
	TxHashes         []string
	Contracts        []contracts.Spec
	HeroEvents       []string
	Out              string
	MaxRetries       int
	RetryBackoff     time.Duration
	Concurrency      int
	InferHooks       bool
	ResolveFunctions bool
	LogLevel         string
}

// LoadReceipt merges config file, environment variables, and flags into ReceiptConfig.
func LoadReceipt(cfgFile string, flags *pflag.FlagSet) (ReceiptConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"max-retries":       5,
		"retry-backoff":     500 * time.Millisecond,
		"concurrency":       4,
		"infer-hooks":       true,
		"resolve-functions": true,
		"log-level":         "info",
	})
	if err != nil {
		return ReceiptConfig{}, err
	}

	specs, err := getContractSpecs(v)
	if err != nil {
		return ReceiptConfig{}, err
	}

	return ReceiptConfig{
		RPCURL:           v.GetString("rpc"),
		TxHashes:         getStringSlice(v, "tx"),
		Contracts:        specs,
		HeroEvents:       getStringSlice(v, "hero-events"),
		Out:              v.GetString("out"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		Concurrency:      v.GetInt("concurrency"),
		InferHooks:       v.GetBool("infer-hooks"),
		ResolveFunctions: v.GetBool("resolve-functions"),
		LogLevel:         v.GetString("log-level"),
	}, nil
}
