package config

import (
	"fmt"
	"path/filepath"
)

// ConfigFileName is the config file inside the data directory.
const ConfigFileName = "kin.conf"

// Load builds the effective configuration. Each layer overrides the one
// before it: network defaults, the config file, KIN_* environment
// settings, then flags.
func Load(f *Flags) (*Config, error) {
	if f == nil {
		f = &Flags{}
	}

	env, err := envValues(f.EnvFile)
	if err != nil {
		return nil, err
	}

	dataDir := firstOf(f.Set["datadir"], env["datadir"], DefaultDataDir())
	path := f.Config
	if path == "" {
		path = filepath.Join(dataDir, ConfigFileName)
	}
	file, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	// The network picks the defaults, so resolve it before layering.
	network := NetworkType(firstOf(f.Set["network"], env["network"], file["network"]))
	cfg := Default(network)
	cfg.DataDir = dataDir

	if err := ApplyFileConfig(cfg, file); err != nil {
		return nil, err
	}
	if err := apply(cfg, env, "environment"); err != nil {
		return nil, err
	}
	if err := ApplyFlags(cfg, f); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
