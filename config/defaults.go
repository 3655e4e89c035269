package config

import "time"

// Default pending tracking limits.
const (
	DefaultPendingTTL    = time.Hour
	DefaultPendingMax    = 64
	DefaultRPCTimeout    = 10 * time.Second
	DefaultMainnetRPCURL = "http://127.0.0.1:8545"
	DefaultTestnetRPCURL = "http://127.0.0.1:8645"
)

// DefaultMainnet returns the default client configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			URL:     DefaultMainnetRPCURL,
			Timeout: DefaultRPCTimeout,
		},
		Pending: PendingConfig{
			TTL:           DefaultPendingTTL,
			MaxPerAccount: DefaultPendingMax,
			Persist:       true,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default client configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.URL = DefaultTestnetRPCURL
	return cfg
}

// Default returns the default client configuration for the given network.
// Unrecognised networks get the testnet defaults.
func Default(network NetworkType) *Config {
	switch network {
	case Mainnet:
		return DefaultMainnet()
	default:
		return DefaultTestnet()
	}
}
