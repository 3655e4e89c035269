package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
)

// setting is one operator-facing option. The same table drives the config
// file, KIN_* environment variables, global flags and the file written by
// WriteDefaultConfig, so a new option only needs an entry here.
type setting struct {
	key     string // config file key
	section string
	usage   string
	env     string // environment variable, empty if none
	flag    string // global flag, empty if none
	boolean bool

	// example is written commented out instead of the current value.
	example string

	get func(*Config) string
	set func(*Config, string) error
}

var settings = []setting{
	{
		key: "network", section: "Network", env: "KIN_NETWORK", flag: "network",
		usage: "Network: mainnet or testnet",
		get:   func(c *Config) string { return string(c.Network) },
		set:   func(c *Config, v string) error { c.Network = NetworkType(v); return nil },
	},
	{
		key: "datadir", section: "Network", env: "KIN_DATADIR", flag: "datadir",
		usage: "Data directory", example: "~/.kin",
		get: func(c *Config) string { return c.DataDir },
		set: func(c *Config, v string) error { c.DataDir = v; return nil },
	},
	{
		key: "rpc.url", section: "Ledger Node", env: "KIN_RPC_URL", flag: "rpc",
		usage: "Ledger node JSON-RPC URL",
		get:   func(c *Config) string { return c.RPC.URL },
		set:   func(c *Config, v string) error { c.RPC.URL = v; return nil },
	},
	{
		key: "rpc.timeout", section: "Ledger Node", env: "KIN_RPC_TIMEOUT",
		usage: "Per-call timeout (duration or seconds)",
		get:   func(c *Config) string { return formatDuration(c.RPC.Timeout) },
		set:   durationSetter(func(c *Config) *time.Duration { return &c.RPC.Timeout }),
	},
	{
		key: "contract.address", section: "Token Contract", env: "KIN_CONTRACT",
		usage: "Token contract override, for private deployments only", example: "0x...",
		get: func(c *Config) string { return c.Contract.Address },
		set: func(c *Config, v string) error { c.Contract.Address = v; return nil },
	},
	{
		key: "contract.gaslimit", section: "Token Contract",
		usage: "Gas limit for transfer calls", example: strconv.FormatUint(DefaultTransferGasLimit, 10),
		get: func(c *Config) string { return strconv.FormatUint(c.Contract.GasLimit, 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return err
			}
			c.Contract.GasLimit = n
			return nil
		},
	},
	{
		key: "wallet.light", section: "Wallet", env: "KIN_WALLET_LIGHT", flag: "light", boolean: true,
		usage: "Cheaper key derivation for low-memory devices",
		get:   func(c *Config) string { return strconv.FormatBool(c.Wallet.Light) },
		set:   boolSetter(func(c *Config) *bool { return &c.Wallet.Light }),
	},
	{
		key: "pending.ttl", section: "Pending Transfers", env: "KIN_PENDING_TTL",
		usage: "Unconfirmed transfers stop counting against the pending balance after this long",
		get:   func(c *Config) string { return formatDuration(c.Pending.TTL) },
		set:   durationSetter(func(c *Config) *time.Duration { return &c.Pending.TTL }),
	},
	{
		key: "pending.max", section: "Pending Transfers",
		usage: "Unconfirmed transfers tracked per account",
		get:   func(c *Config) string { return strconv.Itoa(c.Pending.MaxPerAccount) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Pending.MaxPerAccount = n
			return nil
		},
	},
	{
		key: "pending.persist", section: "Pending Transfers", boolean: true,
		usage: "Keep unconfirmed transfers on disk between runs",
		get:   func(c *Config) string { return strconv.FormatBool(c.Pending.Persist) },
		set:   boolSetter(func(c *Config) *bool { return &c.Pending.Persist }),
	},
	{
		key: "log.level", section: "Logging", env: "KIN_LOG_LEVEL", flag: "log-level",
		usage: "debug, info, warn, error or off",
		get:   func(c *Config) string { return c.Log.Level },
		set:   func(c *Config, v string) error { c.Log.Level = v; return nil },
	},
	{
		key: "log.file", section: "Logging", flag: "log-file",
		usage: "Also append JSON logs to this file", example: "kin.log",
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	{
		key: "log.json", section: "Logging", flag: "log-json", boolean: true,
		usage: "JSON instead of colored console logs",
		get:   func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set:   boolSetter(func(c *Config) *bool { return &c.Log.JSON }),
	},
}

// keyAliases maps older or shorthand file keys to their setting.
var keyAliases = map[string]string{
	"rpc": "rpc.url",
}

func lookupSetting(key string) (*setting, bool) {
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	for i := range settings {
		if settings[i].key == key {
			return &settings[i], true
		}
	}
	return nil, false
}

// apply sets every known key in values on cfg. Unknown keys are logged
// and skipped.
func apply(cfg *Config, values map[string]string, source string) error {
	for key, value := range values {
		s, ok := lookupSetting(key)
		if !ok {
			klog.Logger.Warn().Str("key", key).Str("source", source).Msg("Ignoring unknown config key")
			continue
		}
		if err := s.set(cfg, value); err != nil {
			return fmt.Errorf("%s: %s: %w", source, key, err)
		}
	}
	return nil
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			*field(c) = true
		case "false", "0", "no", "off", "":
			*field(c) = false
		default:
			return fmt.Errorf("not a boolean: %q", v)
		}
		return nil
	}
}

// durationSetter accepts Go durations ("90s", "1h") or bare seconds.
func durationSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		if n, err := strconv.Atoi(v); err == nil {
			*field(c) = time.Duration(n) * time.Second
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// formatDuration drops the zero tails time.Duration.String leaves, so one
// hour reads "1h" rather than "1h0m0s".
func formatDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
