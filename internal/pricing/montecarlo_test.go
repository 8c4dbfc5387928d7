package pricing

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var atm = MarketParameters{Spot: 100, Strike: 100, RiskFreeRate: 0.01, Volatility: 0.2, TimeToExpiry: 1}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestMonteCarloConvergesToAnalytical(t *testing.T) {
	exact, err := Analytical(atm)
	require.NoError(t, err)

	mc, err := MonteCarlo(atm, 1_000_000, seeded(42))
	require.NoError(t, err)

	assert.Equal(t, MethodMonteCarlo, mc.Method)
	assert.Equal(t, 1_000_000, mc.SampleCount)
	assert.Greater(t, mc.StandardError, 0.0)
	assert.LessOrEqual(t, math.Abs(mc.Value-exact.Value), 3*mc.StandardError)
}

func TestMonteCarloThreeSigmaFailureRate(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical sweep")
	}
	exact, err := Analytical(atm)
	require.NoError(t, err)

	const seeds = 1000
	failures := 0
	for s := uint64(0); s < seeds; s++ {
		mc, err := MonteCarlo(atm, 10_000, seeded(s))
		require.NoError(t, err)
		if math.Abs(mc.Value-exact.Value) > 3*mc.StandardError {
			failures++
		}
	}
	assert.Less(t, float64(failures)/seeds, 0.01, "failures=%d", failures)
}

func TestMonteCarloReproducible(t *testing.T) {
	a, err := MonteCarlo(atm, 50_000, seeded(7))
	require.NoError(t, err)
	b, err := MonteCarlo(atm, 50_000, seeded(7))
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(a.Value), math.Float64bits(b.Value))
	assert.Equal(t, math.Float64bits(a.StandardError), math.Float64bits(b.StandardError))

	c, err := MonteCarlo(atm, 50_000, seeded(8))
	require.NoError(t, err)
	assert.NotEqual(t, a.Value, c.Value)
}

func TestMonteCarloZeroExpiry(t *testing.T) {
	p := MarketParameters{Spot: 110, Strike: 100, RiskFreeRate: 0.05, Volatility: 0.3}
	got, err := MonteCarlo(p, 1000, seeded(1))
	require.NoError(t, err)

	assert.Equal(t, 10.0, got.Value)
	assert.Equal(t, 0.0, got.StandardError)
}

func TestMonteCarloZeroVolatility(t *testing.T) {
	p := MarketParameters{Spot: 100, Strike: 90, RiskFreeRate: 0.05, TimeToExpiry: 1}
	got, err := MonteCarlo(p, 100, seeded(1))
	require.NoError(t, err)

	// deterministic forward, discounted back: |S - K·e^(-rT)|
	assert.InDelta(t, 100-90*math.Exp(-0.05), got.Value, 1e-9)
	assert.InDelta(t, 0.0, got.StandardError, 1e-9)
}

func TestMonteCarloSingleSample(t *testing.T) {
	got, err := MonteCarlo(atm, 1, seeded(3))
	require.NoError(t, err)

	assert.Equal(t, 1, got.SampleCount)
	assert.True(t, math.IsNaN(got.StandardError))
	assert.GreaterOrEqual(t, got.Value, 0.0)
}

func TestMonteCarloValidation(t *testing.T) {
	_, err := MonteCarlo(atm, 0, seeded(1))
	assert.ErrorIs(t, err, ErrInvalidSampleCount)

	_, err = MonteCarlo(atm, -5, seeded(1))
	assert.ErrorIs(t, err, ErrInvalidSampleCount)

	_, err = MonteCarlo(atm, 10, nil)
	assert.ErrorIs(t, err, ErrNilSource)

	for _, p := range []MarketParameters{
		{Spot: 0, Strike: 100, Volatility: 0.2, TimeToExpiry: 1},
		{Spot: 100, Strike: -1, Volatility: 0.2, TimeToExpiry: 1},
		{Spot: 100, Strike: 100, Volatility: -0.1, TimeToExpiry: 1},
	} {
		_, err := MonteCarlo(p, 10, seeded(1))
		assert.ErrorIs(t, err, ErrInvalidParameter)

		_, err = MonteCarloSharded(context.Background(), p, 10, NewStream(1), 2)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}

	_, err = MonteCarloSharded(context.Background(), atm, 0, NewStream(1), 2)
	assert.ErrorIs(t, err, ErrInvalidSampleCount)
}

func TestMonteCarloShardedMatchesSequential(t *testing.T) {
	stream := NewStream(42).WithBlockSize(1000)
	const n = 123_457

	sequential, err := MonteCarlo(atm, n, stream.Sequential())
	require.NoError(t, err)

	single, err := MonteCarloSharded(context.Background(), atm, n, stream, 1)
	require.NoError(t, err)
	assert.Equal(t, sequential, single)

	for _, workers := range []int{2, 3, 8, 500} {
		got, err := MonteCarloSharded(context.Background(), atm, n, stream, workers)
		require.NoError(t, err)

		assert.Equal(t, n, got.SampleCount)
		assert.InEpsilon(t, sequential.Value, got.Value, 1e-12, "workers=%d", workers)
		assert.InEpsilon(t, sequential.StandardError, got.StandardError, 1e-9, "workers=%d", workers)
	}
}

func TestMonteCarloShardedReproducible(t *testing.T) {
	stream := NewStream(99)
	a, err := MonteCarloSharded(context.Background(), atm, 200_000, stream, 4)
	require.NoError(t, err)
	b, err := MonteCarloSharded(context.Background(), atm, 200_000, stream, 4)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMonteCarloShardedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MonteCarloSharded(ctx, atm, 100_000, NewStream(1), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShardCoversAllBlocks(t *testing.T) {
	for _, tc := range []struct{ blocks, workers int }{{10, 3}, {7, 7}, {1, 1}, {100, 8}} {
		next := 0
		for w := 0; w < tc.workers; w++ {
			first, last := shard(tc.blocks, tc.workers, w)
			assert.Equal(t, next, first)
			assert.GreaterOrEqual(t, last, first)
			next = last
		}
		assert.Equal(t, tc.blocks, next)
	}
}

func TestStreamWorkers(t *testing.T) {
	stream := NewStream(1).WithBlockSize(100)
	assert.Equal(t, 3, stream.Workers(250, 8))
	assert.Equal(t, 2, stream.Workers(1000, 2))
	assert.Equal(t, 1, stream.Workers(1, 0))
	assert.Equal(t, min(runtime.GOMAXPROCS(0), 100), stream.Workers(10_000, 0))
	assert.Equal(t, min(runtime.GOMAXPROCS(0), 100), stream.Workers(10_000, -3))
}

func TestConfidenceInterval(t *testing.T) {
	r := PricingResult{Value: 10, StandardError: 0.5, SampleCount: 100}
	lo, hi := r.ConfidenceInterval(0.95)
	assert.InDelta(t, 10-1.959964*0.5, lo, 1e-6)
	assert.InDelta(t, 10+1.959964*0.5, hi, 1e-6)

	lo, hi = PricingResult{Value: 3}.ConfidenceInterval(0.95)
	assert.Equal(t, 3.0, lo)
	assert.Equal(t, 3.0, hi)
}
