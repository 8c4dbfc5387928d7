// Package testutil holds fixtures and golden-file helpers shared by the
// package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/contactkeval/straddle-pricer/internal/config"
	"github.com/contactkeval/straddle-pricer/internal/pricing"
)

var Update = flag.Bool(
	"update",
	false,
	"update golden files",
)

// ATM is the one-year at-the-money market used across the tests.
// Its Black-Scholes straddle value is 15.871620755136028.
func ATM() pricing.MarketParameters {
	return pricing.MarketParameters{Spot: 100, Strike: 100, RiskFreeRate: 0.01, Volatility: 0.2, TimeToExpiry: 1}
}

// ATMValue is the analytical straddle value of ATM().
const ATMValue = 15.871620755136028

// StaticConfig returns a validated config pricing p from static inputs with
// small simulation sizes.
func StaticConfig(t *testing.T, p pricing.MarketParameters, paths int, seed uint64) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Market:    p,
		Source:    config.SourceSpec{Kind: config.SourceStatic},
		ReportDir: t.TempDir(),
		Simulation: config.SimulationSpec{
			Paths:      paths,
			Seed:       seed,
			Workers:    4,
			Repeats:    3,
			DailyPaths: 2000,
			PathCount:  3,
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

//
// --- Golden file helpers ---
//

func goldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

func writeGolden(t *testing.T, name string, b []byte) {
	t.Helper()
	if err := os.MkdirAll("testdata", 0755); err != nil {
		t.Fatalf("failed to create testdata: %v", err)
	}
	if err := os.WriteFile(goldenPath(name), b, 0644); err != nil {
		t.Fatalf("failed to write golden file: %v", err)
	}
}

func loadGolden(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(goldenPath(name))
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}
	return b
}

// CompareWithGolden checks actual against testdata/<name>.golden, or
// rewrites the file when the tests run with -update.
func CompareWithGolden(t *testing.T, name string, actual []byte) {
	t.Helper()

	if *Update {
		writeGolden(t, name, actual)
		return
	}

	expected := loadGolden(t, name)

	if !bytes.Equal(expected, actual) {
		t.Fatalf("golden mismatch for %s\nexpected:\n%s\nactual:\n%s",
			name, string(expected), string(actual))
	}
}

// CompareJSONWithGolden is CompareWithGolden on the indented JSON of v.
func CompareJSONWithGolden(t *testing.T, name string, v any) {
	t.Helper()

	actual, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal actual JSON: %v", err)
	}
	CompareWithGolden(t, name, actual)
}
