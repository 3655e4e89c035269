package config

import (
	"flag"
	"io"
)

// Flags holds the global options given before the command.
type Flags struct {
	Help    bool
	Config  string // kin.conf path, default <datadir>/kin.conf
	EnvFile string

	// Set holds settings given on the command line, by config key.
	Set map[string]string

	// Args is the command and its own arguments.
	Args []string
}

// IsSet reports whether key was given on the command line.
func (f *Flags) IsSet(key string) bool {
	_, ok := f.Set[key]
	return ok
}

// ParseFlags parses the global flags. Every setting with a flag name is
// accepted, plus --testnet as shorthand for --network=testnet.
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{Set: make(map[string]string)}

	fs := flag.NewFlagSet("kin-cli", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.EnvFile, "env", ".env", "Dotenv file with KIN_* settings")
	fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")

	byFlag := make(map[string]string)
	for _, s := range settings {
		if s.flag == "" {
			continue
		}
		byFlag[s.flag] = s.key
		if s.boolean {
			fs.Bool(s.flag, false, s.usage)
		} else {
			fs.String(s.flag, "", s.usage)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Visit walks flags in name order, so --testnet beats --network.
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "testnet" {
			if fl.Value.String() == "true" {
				f.Set["network"] = string(Testnet)
			}
			return
		}
		if key, ok := byFlag[fl.Name]; ok {
			f.Set[key] = fl.Value.String()
		}
	})
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line settings to cfg.
func ApplyFlags(cfg *Config, f *Flags) error {
	return apply(cfg, f.Set, "flags")
}
