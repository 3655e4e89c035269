// Package log holds the wallet core's zerolog loggers: a global Logger and
// one sub-logger per component. Init and SetOutput rebuild all of them.
//
// Nothing in this module logs passphrases, key material or mnemonics.
// Addresses, transaction hashes and amounts are logged.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	RPC      zerolog.Logger
	Ledger   zerolog.Logger
	Wallet   zerolog.Logger
	Signer   zerolog.Logger
	Pending  zerolog.Logger
	Transfer zerolog.Logger
	Storage  zerolog.Logger
)

// logFile is the file opened by the last Init, if any.
var logFile *os.File

func init() {
	setLogger(zerolog.New(consoleWriter(os.Stderr)).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger())
}

// Init configures logging. Events go to stderr, colored unless jsonOutput is
// set. When file is non-empty every event is also appended to it as JSON.
// A file opened by an earlier Init is closed.
func Init(level string, jsonOutput bool, file string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if !jsonOutput {
		out = consoleWriter(os.Stderr)
	}

	var f *os.File
	if file != "" {
		f, err = os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
	}

	if logFile != nil {
		logFile.Close()
	}
	logFile = f

	setLogger(zerolog.New(out).Level(lvl).With().Timestamp().Logger())
	return nil
}

// SetOutput sends JSON events at or above level to w.
func SetOutput(w io.Writer, level zerolog.Level) {
	setLogger(zerolog.New(w).Level(level).With().Timestamp().Logger())
}

// ParseLevel parses a level name. An empty name is info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "off", "none":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
}

func setLogger(l zerolog.Logger) {
	Logger = l
	RPC = component("rpc")
	Ledger = component("ledger")
	Wallet = component("wallet")
	Signer = component("signer")
	Pending = component("pending")
	Transfer = component("transfer")
	Storage = component("storage")
}

func component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Benchmark returns a func that logs at debug how long name took.
//
//	defer log.Benchmark("eth_call")()
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		RPC.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}
