// Package simulation holds daily-step straddle simulations: the
// relative-return estimator, repeated estimates and sample paths used for
// charting. Values are expressed as a fraction of spot, with zero drift.
package simulation

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/contactkeval/straddle-pricer/internal/pricing"
)

// TradingDays is the number of trading days per year used to scale volatility.
const TradingDays = 252

// Days returns the number of whole trading days in timeToExpiry years.
func Days(timeToExpiry float64) int {
	return int(timeToExpiry * TradingDays)
}

// DailyVol converts annualized volatility to a one-day standard deviation.
func DailyVol(volatility float64) float64 {
	return volatility / math.Sqrt(TradingDays)
}

// DailyStraddle estimates the ATM straddle value relative to spot by
// compounding daily returns r ~ N(0, σ/√252) and averaging |Π(1+r) - 1|.
// The result tracks sqrt(2/π)·σ·√T for small σ√T.
func DailyStraddle(src pricing.NormalSource, volatility, timeToExpiry float64, paths int) (pricing.PricingResult, error) {
	if err := checkDaily(src, volatility, timeToExpiry); err != nil {
		return pricing.PricingResult{}, err
	}
	if paths <= 0 {
		return pricing.PricingResult{}, errors.Wrapf(pricing.ErrInvalidSampleCount, "paths must be positive, got %d", paths)
	}

	days := Days(timeToExpiry)
	sd := DailyVol(volatility)

	var acc pricing.Accumulator
	for i := 0; i < paths; i++ {
		growth := 1.0
		for d := 0; d < days; d++ {
			growth *= 1 + sd*src.NormFloat64()
		}
		acc.Add(math.Abs(growth - 1))
	}
	return acc.Result(pricing.MethodDailySteps), nil
}

// Estimates is a batch of independent straddle estimates.
type Estimates struct {
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"std_dev"`
}

// Repeat calls estimate k times and summarizes the spread of the results,
// which shows how the sampling noise of a single run behaves.
func Repeat(k int, estimate func(i int) (float64, error)) (Estimates, error) {
	if k <= 0 {
		return Estimates{}, errors.Wrapf(pricing.ErrInvalidSampleCount, "repeat count must be positive, got %d", k)
	}
	values := make([]float64, 0, k)
	for i := 0; i < k; i++ {
		v, err := estimate(i)
		if err != nil {
			return Estimates{}, errors.Wrapf(err, "estimate %d", i)
		}
		values = append(values, v)
	}

	out := Estimates{Values: values}
	if k == 1 {
		out.Mean = values[0]
		return out, nil
	}
	out.Mean, out.StdDev = stat.MeanStdDev(values, nil)
	return out, nil
}

func checkDaily(src pricing.NormalSource, volatility, timeToExpiry float64) error {
	if src == nil {
		return pricing.ErrNilSource
	}
	if math.IsNaN(volatility) || volatility < 0 {
		return errors.Wrapf(pricing.ErrInvalidParameter, "volatility must be non-negative, got %v", volatility)
	}
	if math.IsNaN(timeToExpiry) || timeToExpiry < 0 {
		return errors.Wrapf(pricing.ErrInvalidParameter, "time_to_expiry must be non-negative, got %v", timeToExpiry)
	}
	return nil
}
