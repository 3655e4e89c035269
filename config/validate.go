package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/ethereum/go-ethereum/common"
)

// minGasLimit is the intrinsic gas of any transaction.
const minGasLimit = 21000

// Validate reports every problem with cfg at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(cfg.Network == Mainnet || cfg.Network == Testnet,
		"network must be %q or %q, got %q", Mainnet, Testnet, cfg.Network)
	check(strings.TrimSpace(cfg.DataDir) != "", "datadir is required")

	if u, err := url.Parse(strings.TrimSpace(cfg.RPC.URL)); err != nil || cfg.RPC.URL == "" {
		errs = append(errs, fmt.Errorf("rpc.url %q is not a URL", cfg.RPC.URL))
	} else {
		check(u.Scheme == "http" || u.Scheme == "https", "rpc.url must use http or https, got %q", u.Scheme)
		check(u.Host != "", "rpc.url %q has no host", cfg.RPC.URL)
	}
	check(cfg.RPC.Timeout >= 0, "rpc.timeout must not be negative")

	check(cfg.Contract.Address == "" || common.IsHexAddress(cfg.Contract.Address),
		"contract.address %q is not a hex address", cfg.Contract.Address)
	check(cfg.Contract.GasLimit == 0 || cfg.Contract.GasLimit >= minGasLimit,
		"contract.gaslimit must be at least %d", minGasLimit)

	check(cfg.Pending.TTL > 0, "pending.ttl must be positive")
	check(cfg.Pending.MaxPerAccount > 0, "pending.max must be positive")

	if _, err := klog.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
