package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Lookup provider names accepted in config.
const (
	ProviderDictAPI = "dictapi"
	ProviderGemini  = "gemini"
)

// Config is the server configuration. Turn-duration bounds apply to the
// per-game settings players pick when creating a game; everything else is
// server-wide. Invalid values are rejected here, at load time — never
// during play.
type Config struct {
	Port int `koanf:"port"`

	TurnSeconds    int `koanf:"turn_seconds"`     // default per-turn countdown
	MinTurnSeconds int `koanf:"min_turn_seconds"` // lower bound players may pick
	MaxTurnSeconds int `koanf:"max_turn_seconds"` // upper bound players may pick

	LookupProvider  string `koanf:"lookup_provider"` // dictapi or gemini
	LookupBaseURL   string `koanf:"lookup_base_url"`
	LookupTimeoutMs int    `koanf:"lookup_timeout_ms"`

	GCPProject string `koanf:"gcp_project"`
	GCPRegion  string `koanf:"gcp_region"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > shiritori.yaml > shiritori.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("shiritori.yaml"); err == nil {
		return "shiritori.yaml"
	}
	if _, err := os.Stat("shiritori.yml"); err == nil {
		return "shiritori.yml"
	}
	return ""
}

// LoadConfig layers configuration sources, lowest priority first:
// built-in defaults, config file, SHIRITORI_* environment variables,
// command-line flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"port":              8080,
		"turn_seconds":      30,
		"min_turn_seconds":  5,
		"max_turn_seconds":  120,
		"lookup_provider":   ProviderDictAPI,
		"lookup_base_url":   defaultDictionaryURL,
		"lookup_timeout_ms": 8000,
		"gcp_region":        defaultRegion,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Config file, if present
	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// 3. Environment (SHIRITORI_TURN_SECONDS -> turn_seconds)
	if err := k.Load(env.Provider("SHIRITORI_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SHIRITORI_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// 4. Flags (highest priority; only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the game cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MinTurnSeconds < 1 {
		return fmt.Errorf("min_turn_seconds must be at least 1, got %d", c.MinTurnSeconds)
	}
	if c.MaxTurnSeconds < c.MinTurnSeconds {
		return fmt.Errorf("max_turn_seconds (%d) must not be below min_turn_seconds (%d)",
			c.MaxTurnSeconds, c.MinTurnSeconds)
	}
	if c.TurnSeconds < c.MinTurnSeconds || c.TurnSeconds > c.MaxTurnSeconds {
		return fmt.Errorf("turn_seconds (%d) must be between %d and %d",
			c.TurnSeconds, c.MinTurnSeconds, c.MaxTurnSeconds)
	}
	if c.LookupTimeoutMs <= 0 {
		return fmt.Errorf("lookup_timeout_ms must be positive, got %d", c.LookupTimeoutMs)
	}
	switch c.LookupProvider {
	case ProviderDictAPI:
	case ProviderGemini:
		if c.GCPProject == "" {
			return fmt.Errorf("lookup_provider %q requires gcp_project", ProviderGemini)
		}
	default:
		return fmt.Errorf("unknown lookup_provider %q (want %q or %q)",
			c.LookupProvider, ProviderDictAPI, ProviderGemini)
	}
	return nil
}
