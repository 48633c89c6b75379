package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "RISK_"
	envFileVar = "RISK_CONFIG"
)

// Load builds a Config by layering, low to high precedence:
//  1. Default()
//  2. YAML file named by RISK_CONFIG, if set
//  3. RISK_ environment variables, "__" separating sections
//     (RISK_RPC__ENDPOINT -> rpc.endpoint)
//
// A .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps RISK_CACHE__PRICE_TTL to cache.price_ttl.
// RISK_CONFIG itself names the file and is not a key.
func envKey(s string) string {
	if s == envFileVar {
		return ""
	}
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
