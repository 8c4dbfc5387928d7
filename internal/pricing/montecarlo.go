package pricing

import (
	"context"
	"math"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// MonteCarlo estimates the straddle value by sampling terminal prices under
// risk-neutral geometric Brownian motion.
//
// Parameters:
//   - p: market parameters
//   - sampleCount: number of simulated terminal prices, must be > 0
//   - src: source of standard normal draws, consumed once per path
//
// Returns:
//
//	Mean discounted payoff |S_T - K|·e^(-rT) with its standard error. With a
//	single path the standard error is NaN. With zero time to expiry every
//	path ends at spot and the standard error is 0.
func MonteCarlo(p MarketParameters, sampleCount int, src NormalSource) (PricingResult, error) {
	if err := checkRun(p, sampleCount); err != nil {
		return PricingResult{}, err
	}
	if src == nil {
		return PricingResult{}, ErrNilSource
	}

	sim := newTerminalSim(p)
	var acc Accumulator
	for i := 0; i < sampleCount; i++ {
		acc.Add(sim.discountedPayoff(src.NormFloat64()))
	}
	return acc.Result(MethodMonteCarlo), nil
}

// Workers is the number of goroutines MonteCarloSharded starts for
// sampleCount draws when asked for workers: GOMAXPROCS for workers <= 0,
// at most one per block.
func (s Stream) Workers(sampleCount, workers int) int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return max(min(workers, s.blocks(sampleCount)), 1)
}

// MonteCarloSharded runs the same estimator as MonteCarlo over a block
// stream, spreading contiguous block ranges across workers. Every worker
// owns its accumulator; partial statistics are merged in block order, so
// the result for a given stream does not depend on the worker count beyond
// floating-point rounding. workers <= 0 means GOMAXPROCS.
func MonteCarloSharded(ctx context.Context, p MarketParameters, sampleCount int, stream Stream, workers int) (PricingResult, error) {
	if err := checkRun(p, sampleCount); err != nil {
		return PricingResult{}, err
	}

	nBlocks := stream.blocks(sampleCount)
	workers = stream.Workers(sampleCount, workers)

	sim := newTerminalSim(p)
	bs := stream.BlockSize()
	partials := make([]Accumulator, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		first, last := shard(nBlocks, workers, w)
		acc := &partials[w]
		g.Go(func() error {
			for b := first; b < last; b++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				draws := min(bs, sampleCount-b*bs)
				rng := stream.Block(b)
				for i := 0; i < draws; i++ {
					acc.Add(sim.discountedPayoff(rng.NormFloat64()))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PricingResult{}, errors.Wrap(err, "monte carlo shard")
	}

	var total Accumulator
	for _, part := range partials {
		total.Merge(part)
	}
	return total.Result(MethodMonteCarlo), nil
}

// shard returns the half-open block range [first, last) owned by worker w
// when nBlocks blocks are split as evenly as possible across workers.
func shard(nBlocks, workers, w int) (first, last int) {
	per, extra := nBlocks/workers, nBlocks%workers
	first = w*per + min(w, extra)
	last = first + per
	if w < extra {
		last++
	}
	return first, last
}

func checkRun(p MarketParameters, sampleCount int) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if sampleCount <= 0 {
		return errors.Wrapf(ErrInvalidSampleCount, "sample count must be positive, got %d", sampleCount)
	}
	return nil
}

// terminalSim holds the per-path constants of the GBM terminal price.
type terminalSim struct {
	spot, strike float64
	drift        float64 // (r - σ²/2)·T
	diffusion    float64 // σ·√T
	df           float64 // e^(-rT)
}

func newTerminalSim(p MarketParameters) terminalSim {
	return terminalSim{
		spot:      p.Spot,
		strike:    p.Strike,
		drift:     (p.RiskFreeRate - 0.5*p.Volatility*p.Volatility) * p.TimeToExpiry,
		diffusion: p.Volatility * math.Sqrt(p.TimeToExpiry),
		df:        p.discount(),
	}
}

func (s terminalSim) discountedPayoff(z float64) float64 {
	terminal := s.spot * math.Exp(s.drift+s.diffusion*z)
	return math.Abs(terminal-s.strike) * s.df
}
