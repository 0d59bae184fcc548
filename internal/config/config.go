package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fundingScope/internal/contracts"
)

const envPrefix = "FUNDINGSCOPE"

// Config holds replay settings loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Contracts         []contracts.Spec
	HeroEvents        []string
	BatchSize         uint64
	Out               string
	PGDSN             string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Concurrency       int
	InferHooks        bool
	ResolveFunctions  bool
	MetricsAddr       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(2000),
		"out":                "./data/steps.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"concurrency":        4,
		"infer-hooks":        true,
		"resolve-functions":  true,
		"log-level":          "info",
	})
	if err != nil {
		return Config{}, err
	}

	specs, err := getContractSpecs(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Contracts:         specs,
		HeroEvents:        getStringSlice(v, "hero-events"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Concurrency:       v.GetInt("concurrency"),
		InferHooks:        v.GetBool("infer-hooks"),
		ResolveFunctions:  v.GetBool("resolve-functions"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

// getContractSpecs collects the registry from the repeated "contract" flag
// (name=address[@artifact]) and the "contracts" list of a config file.
func getContractSpecs(v *viper.Viper) ([]contracts.Spec, error) {
	specs := make([]contracts.Spec, 0)
	for _, raw := range getStringSlice(v, "contract") {
		spec, err := contracts.ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if !v.IsSet("contracts") {
		return specs, nil
	}

	items, ok := v.Get("contracts").([]interface{})
	if !ok {
		return nil, fmt.Errorf("contracts must be a list")
	}
	for i, item := range items {
		raw, err := specString(item)
		if err != nil {
			return nil, fmt.Errorf("contracts[%d]: %w", i, err)
		}
		spec, err := contracts.ParseSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("contracts[%d]: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func specString(item interface{}) (string, error) {
	switch typed := item.(type) {
	case string:
		return typed, nil
	case map[string]interface{}:
		fields := make(map[string]string, len(typed))
		for k, val := range typed {
			fields[strings.ToLower(k)] = strings.TrimSpace(fmt.Sprintf("%v", val))
		}
		if fields["name"] == "" || fields["address"] == "" {
			return "", fmt.Errorf("name and address are required")
		}
		raw := fields["name"] + "=" + fields["address"]
		if fields["artifact"] != "" {
			raw += "@" + fields["artifact"]
		}
		return raw, nil
	default:
		return "", fmt.Errorf("unsupported entry type %T", item)
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
