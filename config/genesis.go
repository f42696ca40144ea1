package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Genesis carries the initial protocol parameters applied at first boot:
// the complain/cancel window durations, the operator and pool addresses and
// optional per-currency order value ceilings (decimal strings keyed by
// canonical currency key).
type Genesis struct {
	ComplainPeriodSecs int64             `yaml:"complainPeriodSecs"`
	CancelPeriodSecs   int64             `yaml:"cancelPeriodSecs"`
	Operator           string            `yaml:"operator"`
	Pool               string            `yaml:"pool"`
	OrderLimits        map[string]string `yaml:"orderLimits"`
}

// LoadGenesis parses and validates a genesis YAML file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis %s: %w", path, err)
	}
	gen := &Genesis{}
	if err := yaml.Unmarshal(raw, gen); err != nil {
		return nil, fmt.Errorf("config: decode genesis %s: %w", path, err)
	}
	if gen.ComplainPeriodSecs < 0 || gen.CancelPeriodSecs < 0 {
		return nil, fmt.Errorf("config: genesis periods must be non-negative")
	}
	if gen.Operator != "" {
		if _, err := ParseAddress(gen.Operator); err != nil {
			return nil, fmt.Errorf("config: genesis operator: %w", err)
		}
	}
	if gen.Pool != "" {
		if _, err := ParseAddress(gen.Pool); err != nil {
			return nil, fmt.Errorf("config: genesis pool: %w", err)
		}
	}
	return gen, nil
}

// ParseAddress decodes a 20-byte hex address with optional 0x prefix.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("invalid address %q: want 20 bytes, got %d", value, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
