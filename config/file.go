package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadFile reads a kin.conf file of "key = value" lines. Blank lines and
// lines starting with # are skipped, and one layer of matching quotes is
// stripped from values. A missing file yields no values.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%s:%d: expected key = value", path, n)
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	return values, sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// ApplyFileConfig applies values read by LoadFile to cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	return apply(cfg, values, "config file")
}

// WriteDefaultConfig writes a commented kin.conf holding network's defaults.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)

	var b bytes.Buffer
	b.WriteString("# Kin wallet client configuration\n")
	b.WriteString("#\n")
	b.WriteString("# Chain ID and token contract are fixed per network. Command-line flags\n")
	b.WriteString("# and KIN_* environment variables override values set here.\n")

	section := ""
	for _, s := range settings {
		if s.section != section {
			section = s.section
			fmt.Fprintf(&b, "\n# %s\n# %s\n\n", strings.Repeat("=", 76), section)
		}
		fmt.Fprintf(&b, "# %s\n", s.usage)
		if s.example != "" {
			fmt.Fprintf(&b, "# %s = %s\n", s.key, s.example)
		} else {
			fmt.Fprintf(&b, "%s = %s\n", s.key, s.get(cfg))
		}
	}
	return os.WriteFile(path, b.Bytes(), 0644)
}
