package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds the default run parameters for both subcommands. CLI
// flags always override whatever is loaded here.
type Config struct {
	Alpha      float64 `json:"alpha,omitempty"`
	Capacity   uint64  `json:"capacity,omitempty"`
	Seed       uint64  `json:"seed,omitempty"`
	Verbose    int     `json:"verbose,omitempty"`
	Checkpoint string  `json:"checkpoint,omitempty"`
}

// DefaultConfig returns the built-in defaults, used when no config
// file is present and no flag overrides a field.
func DefaultConfig() Config {
	return Config{
		Alpha:      1.0,
		Capacity:   100,
		Verbose:    1,
		Checkpoint: "reservoir.wrv",
	}
}

// configEnvVar optionally names a config file path, checked before
// falling back to no config file at all.
const configEnvVar = "WRESERVOIR_CONFIG"

// LoadConfig applies, in increasing precedence: built-in defaults,
// then the config file at path (or $WRESERVOIR_CONFIG if path is
// empty), if one exists. It never returns an error for a missing
// file; only a malformed one.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q is not valid JSON5: %w", path, err)
	}

	var fileCfg Config
	if err := json.Unmarshal(standardized, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}

	return mergeConfig(cfg, fileCfg), nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Alpha != 0 {
		base.Alpha = overlay.Alpha
	}
	if overlay.Capacity != 0 {
		base.Capacity = overlay.Capacity
	}
	if overlay.Seed != 0 {
		base.Seed = overlay.Seed
	}
	if overlay.Verbose != 0 {
		base.Verbose = overlay.Verbose
	}
	if overlay.Checkpoint != "" {
		base.Checkpoint = overlay.Checkpoint
	}
	return base
}
