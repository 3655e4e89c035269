// Package config resolves the client's settings. Network parameters such as
// chain ID and token contract are fixed per network (see ParamsFor); the
// rest comes from defaults, kin.conf, KIN_* variables and flags, in that
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the network a client is bound to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds client runtime configuration.
type Config struct {
	// Core
	Network NetworkType
	DataDir string

	// Ledger node connection
	RPC RPCConfig

	// Token contract overrides
	Contract ContractConfig

	// Key custody
	Wallet WalletConfig

	// Pending transfer tracking
	Pending PendingConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds the ledger node connection settings.
type RPCConfig struct {
	URL     string
	Timeout time.Duration
}

// ContractConfig overrides the network's token contract parameters.
// Empty/zero values keep the network defaults.
type ContractConfig struct {
	Address  string
	GasLimit uint64
}

// WalletConfig holds key custody settings.
type WalletConfig struct {
	// Light selects cheaper key derivation parameters (mobile/low-memory devices).
	Light bool
}

// PendingConfig controls how long unconfirmed transfers are tracked.
type PendingConfig struct {
	TTL           time.Duration
	MaxPerAccount int
	Persist       bool // Keep pending transfers on disk between runs.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.kin
//	macOS:   ~/Library/Application Support/Kin
//	Windows: %APPDATA%\Kin
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kin"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Kin")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Kin")
		}
		return filepath.Join(home, "AppData", "Roaming", "Kin")
	default:
		return filepath.Join(home, ".kin")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the keystore directory. Keys are kept per network.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// PendingDir returns the pending transfer database directory.
func (c *Config) PendingDir() string {
	return filepath.Join(c.NetworkDataDir(), "pending")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}
