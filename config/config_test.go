package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8645" || cfg.NetworkName != "vouchnet-local" || cfg.Environment != "dev" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "vouchd.toml", `
ListenAddress = ":9000"
DataDir = "/var/lib/vouchd"
GenesisFile = "genesis.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" || cfg.DataDir != "/var/lib/vouchd" || cfg.GenesisFile != "genesis.yaml" {
		t.Fatalf("config = %+v", cfg)
	}
	// Unset fields still default.
	if cfg.Environment != "dev" {
		t.Fatalf("environment = %q", cfg.Environment)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeFile(t, "vouchd.toml", `Listen = ":9000"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestLoadGenesis(t *testing.T) {
	path := writeFile(t, "genesis.yaml", `
complainPeriodSecs: 604800
cancelPeriodSecs: 302400
operator: "0x0101010101010101010101010101010101010101"
pool: "0202020202020202020202020202020202020202"
orderLimits:
  native: "1000000"
`)
	gen, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	if gen.ComplainPeriodSecs != 604800 || gen.CancelPeriodSecs != 302400 {
		t.Fatalf("periods = %d/%d", gen.ComplainPeriodSecs, gen.CancelPeriodSecs)
	}
	if gen.OrderLimits["native"] != "1000000" {
		t.Fatalf("order limits = %v", gen.OrderLimits)
	}
	operator, err := ParseAddress(gen.Operator)
	if err != nil {
		t.Fatalf("parse operator: %v", err)
	}
	if operator != ([20]byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}) {
		t.Fatalf("operator = %x", operator)
	}
}

func TestLoadGenesisValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"negative period", "complainPeriodSecs: -1"},
		{"bad operator", `operator: "0x1234"`},
		{"bad pool", `pool: "nothex"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "genesis.yaml", tc.content)
			if _, err := LoadGenesis(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x00112233445566778899aabbccddeeff00112233"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, bad := range []string{"", "0x00", "zz112233445566778899aabbccddeeff00112233"} {
		if _, err := ParseAddress(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
