package engine

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/contactkeval/straddle-pricer/internal/config"
	"github.com/contactkeval/straddle-pricer/internal/data"
	"github.com/contactkeval/straddle-pricer/internal/logger"
	"github.com/contactkeval/straddle-pricer/internal/pricing"
	"github.com/contactkeval/straddle-pricer/internal/simulation"
)

// dailyStream offsets the PCG stream ids of the daily-step simulations so
// they never overlap the Monte Carlo blocks of the same seed.
const dailyStream = 1 << 40

type Engine struct {
	cfg  *config.Config
	prov data.Provider
}

// Quote is a single Black-Scholes vs Monte Carlo comparison.
type Quote struct {
	Market       pricing.MarketParameters `json:"market"`
	Analytical   pricing.PricingResult    `json:"analytical"`
	MonteCarlo   pricing.PricingResult    `json:"monte_carlo"`
	Vega         float64                  `json:"vega"`
	ZScore       float64                  `json:"z_score"`       // (MC - BS) / MC standard error
	Within3Sigma bool                     `json:"within_3sigma"` // |z| <= 3
	Seed         uint64                   `json:"seed"`
	Workers      int                      `json:"workers"`
}

// Result of a full engine run.
type Result struct {
	RunID   string        `json:"run_id"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`
	Source  *data.Market  `json:"source,omitempty"` // set when spot and vol came from a provider
	Quote

	Approx     pricing.PricingResult  `json:"approx_atmf"`
	Daily      pricing.PricingResult  `json:"daily_steps"` // scaled by spot
	Repeats    simulation.Estimates   `json:"repeats"`     // scaled by spot
	ImpliedVol float64                `json:"mc_implied_vol"`
	Path       []simulation.PathPoint `json:"sample_path,omitempty"`
	Paths      [][]float64            `json:"paths,omitempty"` // price per day (row) and path (column)
}

func NewEngine(cfg *config.Config, prov data.Provider) *Engine {
	return &Engine{cfg: cfg, prov: prov}
}

// Run prices the configured straddle with every estimator.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg
	cfg.ApplyDefaults()
	logger.SetVerbosity(cfg.Verbosity)

	res := &Result{RunID: uuid.NewString(), Started: time.Now()}
	logger.Infof("run %s started", res.RunID)

	p, src, err := e.resolveMarket(ctx)
	if err != nil {
		return nil, err
	}
	res.Source = src

	sim := cfg.Simulation
	q, err := price(ctx, p, sim.Paths, pricing.NewStream(sim.Seed).WithBlockSize(sim.BlockSize), sim.Workers)
	if err != nil {
		return nil, err
	}
	res.Quote = q
	logger.Infof("analytical=%.6f monte carlo=%.6f ± %.6f (z=%.2f)", q.Analytical.Value, q.MonteCarlo.Value, q.MonteCarlo.StandardError, q.ZScore)
	if !q.Within3Sigma {
		logger.Infof("monte carlo estimate outside 3σ of the analytical value")
	}

	if res.Approx, err = pricing.ApproxATMF(p); err != nil {
		return nil, errors.Wrap(err, "approximation")
	}

	if p.TimeToExpiry > 0 {
		if iv, err := pricing.ImpliedVolatility(p, q.MonteCarlo.Value); err != nil {
			logger.Debugf("implied vol of monte carlo price: %v", err)
		} else {
			res.ImpliedVol = iv
		}
	}

	if err := e.simulateDaily(ctx, p, res); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(res.Started)
	logger.Infof("run %s finished in %v", res.RunID, res.Elapsed)
	return res, nil
}

// Price runs the analytical and sharded Monte Carlo pricers on p.
func Price(ctx context.Context, p pricing.MarketParameters, paths int, seed uint64, workers int) (Quote, error) {
	return price(ctx, p, paths, pricing.NewStream(seed), workers)
}

func price(ctx context.Context, p pricing.MarketParameters, paths int, stream pricing.Stream, workers int) (Quote, error) {
	bs, err := pricing.Analytical(p)
	if err != nil {
		return Quote{}, errors.Wrap(err, "analytical")
	}
	mc, err := pricing.MonteCarloSharded(ctx, p, paths, stream, workers)
	if err != nil {
		return Quote{}, errors.Wrap(err, "monte carlo")
	}

	q := Quote{
		Market:     p,
		Analytical: bs,
		MonteCarlo: mc,
		Vega:       pricing.StraddleVega(p),
		Seed:       stream.Seed(),
		Workers:    stream.Workers(paths, workers),
	}
	q.ZScore, q.Within3Sigma = agreement(bs.Value, mc)
	return q, nil
}

// agreement compares an estimate to the closed form. A zero or undefined
// standard error only agrees on an (almost) exact match.
func agreement(exact float64, est pricing.PricingResult) (float64, bool) {
	diff := est.Value - exact
	se := est.StandardError
	if se > 0 {
		z := diff / se
		return z, math.Abs(z) <= 3
	}
	return 0, math.Abs(diff) <= 1e-9*math.Max(1, math.Abs(exact))
}

// resolveMarket returns the static market, or spot and realized volatility
// from the provider with the strike defaulting to spot.
func (e *Engine) resolveMarket(ctx context.Context) (pricing.MarketParameters, *data.Market, error) {
	cfg := e.cfg
	p := cfg.Market
	if cfg.Source.Kind == config.SourceStatic || e.prov == nil {
		if err := p.Validate(); err != nil {
			return p, nil, errors.Wrap(err, "market")
		}
		return p, nil, nil
	}

	from, to, err := cfg.Source.Window()
	if err != nil {
		return p, nil, err
	}
	m, err := data.EstimateMarket(ctx, e.prov, cfg.Source.Underlying, from, to)
	if err != nil {
		return p, nil, errors.Wrap(err, "market from provider")
	}

	p.Spot = m.Spot
	p.Volatility = m.Volatility
	if p.Strike == 0 {
		p.Strike = m.Spot
	}
	if p.TimeToExpiry == 0 {
		p.TimeToExpiry = 1
	}
	if err := p.Validate(); err != nil {
		return p, nil, errors.Wrap(err, "market")
	}
	logger.Debugf("%s as of %s: %+v", m.Underlying, m.AsOf.Format("2006-01-02"), p)
	return p, &m, nil
}

// simulateDaily runs the zero-drift daily-step estimators. They value the
// at-the-money straddle relative to spot, so results are scaled by spot.
func (e *Engine) simulateDaily(ctx context.Context, p pricing.MarketParameters, res *Result) error {
	sim := e.cfg.Simulation
	rng := func(i int) *rand.Rand {
		return rand.New(rand.NewPCG(sim.Seed, dailyStream+uint64(i)))
	}

	daily, err := simulation.DailyStraddle(rng(0), p.Volatility, p.TimeToExpiry, sim.DailyPaths)
	if err != nil {
		return errors.Wrap(err, "daily steps")
	}
	res.Daily = scale(daily, p.Spot)

	repeats := max(sim.Repeats, 0)
	if repeats > 0 {
		res.Repeats, err = simulation.Repeat(repeats, func(i int) (float64, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			r, err := simulation.DailyStraddle(rng(i+1), p.Volatility, p.TimeToExpiry, sim.DailyPaths)
			return r.Value * p.Spot, err
		})
		if err != nil {
			return errors.Wrap(err, "repeated estimates")
		}
		logger.Debugf("repeated daily estimates %v", res.Repeats.Values)
	}

	if sim.PathCount <= 0 {
		return nil
	}
	days := simulation.Days(p.TimeToExpiry)
	if days == 0 {
		logger.Debugf("no trading days to simulate, skipping sample paths")
		return nil
	}
	path, ret, err := simulation.SamplePath(rng(repeats+1), p.Volatility, p.TimeToExpiry)
	if err != nil {
		return errors.Wrap(err, "sample path")
	}
	for i := range path {
		path[i].Price *= p.Spot
	}
	res.Path = path
	logger.Tracef("sample path straddle return %.4f", ret)

	paths, err := simulation.PathMatrix(rng(repeats+2), p.Volatility, days, sim.PathCount)
	if err != nil {
		return errors.Wrap(err, "path matrix")
	}
	for _, row := range paths {
		for j := range row {
			row[j] *= p.Spot
		}
	}
	res.Paths = paths
	return nil
}

func scale(r pricing.PricingResult, k float64) pricing.PricingResult {
	r.Value *= k
	r.StandardError *= k
	return r
}
