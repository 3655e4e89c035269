package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// envValues collects KIN_* settings from envFile, if it exists, and the
// process environment. Process variables win over the file.
func envValues(envFile string) (map[string]string, error) {
	fromFile := map[string]string{}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if fromFile, err = godotenv.Read(envFile); err != nil {
				return nil, fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}

	values := make(map[string]string)
	for _, s := range settings {
		if s.env == "" {
			continue
		}
		if v := os.Getenv(s.env); v != "" {
			values[s.key] = v
		} else if v := fromFile[s.env]; v != "" {
			values[s.key] = v
		}
	}
	return values, nil
}

// ApplyEnv applies KIN_* settings from the environment and envFile to cfg.
func ApplyEnv(cfg *Config, envFile string) error {
	values, err := envValues(envFile)
	if err != nil {
		return err
	}
	return apply(cfg, values, "environment")
}
