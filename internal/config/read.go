package config

import (
	"github.com/spf13/pflag"

	"fundingScope/internal/contracts"
)

// ReadConfig holds configuration for a single view call.
type ReadConfig struct {
	RPCURL    string
	Contracts []contracts.Spec
	Contract  string
	Method    string
	Args      []string
	Block     uint64
	LogLevel  string
}

// LoadRead merges config file, environment variables, and flags into ReadConfig.
func LoadRead(cfgFile string, flags *pflag.FlagSet) (ReadConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "warn",
	})
	if err != nil {
		return ReadConfig{}, err
	}

	specs, err := getContractSpecs(v)
	if err != nil {
		return ReadConfig{}, err
	}

	return ReadConfig{
		RPCURL:    v.GetString("rpc"),
		Contracts: specs,
		Contract:  v.GetString("target"),
		Method:    v.GetString("method"),
		Args:      getStringSlice(v, "arg"),
		Block:     v.GetUint64("block"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
