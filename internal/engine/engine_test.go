package engine

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/straddle-pricer/internal/config"
	"github.com/contactkeval/straddle-pricer/internal/data"
	"github.com/contactkeval/straddle-pricer/internal/pricing"
	"github.com/contactkeval/straddle-pricer/internal/testutil"
)

func TestRunStatic(t *testing.T) {
	cfg := testutil.StaticConfig(t, testutil.ATM(), 200_000, 42)

	res, err := NewEngine(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Nil(t, res.Source)
	assert.Equal(t, testutil.ATM(), res.Market)
	assert.Equal(t, uint64(42), res.Seed)

	assert.InDelta(t, testutil.ATMValue, res.Analytical.Value, 1e-9)
	assert.Equal(t, 200_000, res.MonteCarlo.SampleCount)
	assert.Equal(t, math.Abs(res.ZScore) <= 3, res.Within3Sigma)
	assert.InDelta(t, res.Analytical.Value, res.MonteCarlo.Value, 4*res.MonteCarlo.StandardError)

	assert.InDelta(t, 15.957691216057308, res.Approx.Value, 1e-9)
	assert.InDelta(t, 15.95, res.Daily.Value, 1.5)
	assert.Equal(t, 2000, res.Daily.SampleCount)
	assert.Len(t, res.Repeats.Values, 3)
	assert.InDelta(t, 0.2, res.ImpliedVol, 0.01)

	require.Len(t, res.Path, 252)
	assert.Equal(t, 252, res.Path[251].Day)
	require.Len(t, res.Paths, 252)
	for _, row := range res.Paths {
		assert.Len(t, row, 3)
	}
	assert.Greater(t, res.Elapsed.Nanoseconds(), int64(0))
}

func TestRunReproducible(t *testing.T) {
	a, err := NewEngine(testutil.StaticConfig(t, testutil.ATM(), 50_000, 7), nil).Run(context.Background())
	require.NoError(t, err)
	b, err := NewEngine(testutil.StaticConfig(t, testutil.ATM(), 50_000, 7), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.MonteCarlo, b.MonteCarlo)
	assert.Equal(t, a.Daily, b.Daily)
	assert.Equal(t, a.Repeats, b.Repeats)
	assert.Equal(t, a.Paths, b.Paths)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunWorkerCountDoesNotChangeEstimate(t *testing.T) {
	one := testutil.StaticConfig(t, testutil.ATM(), 100_000, 3)
	one.Simulation.Workers = 1
	many := testutil.StaticConfig(t, testutil.ATM(), 100_000, 3)
	many.Simulation.Workers = 6

	a, err := NewEngine(one, nil).Run(context.Background())
	require.NoError(t, err)
	b, err := NewEngine(many, nil).Run(context.Background())
	require.NoError(t, err)

	assert.InEpsilon(t, a.MonteCarlo.Value, b.MonteCarlo.Value, 1e-12)
	assert.InEpsilon(t, a.MonteCarlo.StandardError, b.MonteCarlo.StandardError, 1e-9)
}

func TestRunShortExpirySkipsPaths(t *testing.T) {
	p := testutil.ATM()
	p.TimeToExpiry = 0
	res, err := NewEngine(testutil.StaticConfig(t, p, 1000, 1), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Analytical.Value)
	assert.Equal(t, 0.0, res.MonteCarlo.Value)
	assert.Equal(t, 0.0, res.MonteCarlo.StandardError)
	assert.True(t, res.Within3Sigma)
	assert.Empty(t, res.Path)
	assert.Empty(t, res.Paths)
}

func TestRunWithRepeatsAndPathsDisabled(t *testing.T) {
	cfg := testutil.StaticConfig(t, testutil.ATM(), 1000, 1)
	cfg.Simulation.Repeats = -1
	cfg.Simulation.PathCount = -1
	require.NoError(t, cfg.Validate())

	res, err := NewEngine(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Repeats.Values)
	assert.Nil(t, res.Path)
	assert.Nil(t, res.Paths)
	assert.Equal(t, 2000, res.Daily.SampleCount)
}

func TestRunInvalidMarket(t *testing.T) {
	cfg := testutil.StaticConfig(t, testutil.ATM(), 1000, 1)
	cfg.Market.Spot = -1

	_, err := NewEngine(cfg, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pricing.ErrInvalidParameter)
}

func TestRunFromCSVProvider(t *testing.T) {
	dir := t.TempDir()
	csv := "date,close\n" +
		"2025-03-03,100\n2025-03-04,102\n2025-03-05,99\n2025-03-06,101\n2025-03-07,103\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPY.csv"), []byte(csv), 0644))

	cfg := testutil.StaticConfig(t, testutil.ATM(), 20_000, 5)
	cfg.Market = pricing.MarketParameters{RiskFreeRate: 0.03, TimeToExpiry: 0.5}
	cfg.Source = config.SourceSpec{Kind: config.SourceCSV, Underlying: "SPY", Dir: dir, From: "2025-03-01", To: "2025-03-31"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	prov, err := NewProvider(cfg)
	require.NoError(t, err)
	res, err := NewEngine(cfg, prov).Run(context.Background())
	require.NoError(t, err)

	vol, err := data.AnnualizedVolatility([]float64{100, 102, 99, 101, 103})
	require.NoError(t, err)

	require.NotNil(t, res.Source)
	assert.Equal(t, "SPY", res.Source.Underlying)
	assert.Equal(t, 5, res.Source.Bars)
	assert.Equal(t, 103.0, res.Market.Spot)
	assert.Equal(t, 103.0, res.Market.Strike)
	assert.Equal(t, vol, res.Market.Volatility)
	assert.Equal(t, 0.5, res.Market.TimeToExpiry)
}

func TestRunProviderFailure(t *testing.T) {
	cfg := testutil.StaticConfig(t, testutil.ATM(), 1000, 1)
	cfg.Source = config.SourceSpec{Kind: config.SourceCSV, Underlying: "SPY", Dir: t.TempDir(), From: "2025-03-01", To: "2025-03-31"}

	prov, err := NewProvider(cfg)
	require.NoError(t, err)
	_, err = NewEngine(cfg, prov).Run(context.Background())
	assert.Error(t, err)
}

func TestPrice(t *testing.T) {
	q, err := Price(context.Background(), testutil.ATM(), 100_000, 11, 4)
	require.NoError(t, err)
	assert.InDelta(t, testutil.ATMValue, q.Analytical.Value, 1e-9)
	assert.Equal(t, 100_000, q.MonteCarlo.SampleCount)
	assert.Greater(t, q.Vega, 0.0)
	assert.Equal(t, uint64(11), q.Seed)

	_, err = Price(context.Background(), testutil.ATM(), 0, 11, 4)
	assert.ErrorIs(t, err, pricing.ErrInvalidSampleCount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Price(ctx, testutil.ATM(), 100_000, 11, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPriceReportsWorkersUsed(t *testing.T) {
	// 100k draws span 7 default-sized blocks
	q, err := Price(context.Background(), testutil.ATM(), 100_000, 11, 0)
	require.NoError(t, err)
	assert.Equal(t, min(runtime.GOMAXPROCS(0), 7), q.Workers)

	q, err = Price(context.Background(), testutil.ATM(), 1000, 11, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Workers)

	q, err = Price(context.Background(), testutil.ATM(), 100_000, 11, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, q.Workers)
}

func TestAgreement(t *testing.T) {
	tests := []struct {
		name   string
		exact  float64
		est    pricing.PricingResult
		z      float64
		within bool
	}{
		{"inside", 10, pricing.PricingResult{Value: 10.2, StandardError: 0.1}, 2, true},
		{"outside", 10, pricing.PricingResult{Value: 9.5, StandardError: 0.1}, -5, false},
		{"exact without error", 10, pricing.PricingResult{Value: 10}, 0, true},
		{"off without error", 10, pricing.PricingResult{Value: 10.1}, 0, false},
		{"single sample", 10, pricing.PricingResult{Value: 12, StandardError: math.NaN(), SampleCount: 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, within := agreement(tt.exact, tt.est)
			assert.InDelta(t, tt.z, z, 1e-9)
			assert.Equal(t, tt.within, within)
		})
	}
}

func TestNewProvider(t *testing.T) {
	cfg := testutil.StaticConfig(t, testutil.ATM(), 1000, 1)
	prov, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Nil(t, prov)

	cfg.Source.Kind = config.SourceSynthetic
	prov, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", prov.Name())

	cfg.Source = config.SourceSpec{Kind: config.SourceCSV, Dir: t.TempDir(), Fallback: true, StartPrice: 100}
	prov, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "csv", prov.Name())
	require.NotNil(t, prov.Secondary())
	assert.Equal(t, "synthetic", prov.Secondary().Name())

	cfg.Source = config.SourceSpec{Kind: config.SourceMassive, APIKeyEnv: "TEST_MASSIVE_KEY_UNSET", StartPrice: 100}
	_, err = NewProvider(cfg)
	assert.Error(t, err)

	cfg.Source.Fallback = true
	prov, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", prov.Name())

	t.Setenv("TEST_MASSIVE_KEY", "secret")
	cfg.Source.APIKeyEnv = "TEST_MASSIVE_KEY"
	prov, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "massive", prov.Name())

	cfg.Source.Kind = "bloomberg"
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}
