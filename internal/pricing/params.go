package pricing

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrInvalidParameter is returned when a MarketParameters field violates its invariant.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidSampleCount is returned when a Monte Carlo run is asked for fewer than one path.
	ErrInvalidSampleCount = errors.New("invalid sample count")
	// ErrNilSource is returned when no random source is supplied to a Monte Carlo run.
	ErrNilSource = errors.New("nil random source")
	// ErrNoConvergence is returned when implied volatility cannot be solved.
	ErrNoConvergence = errors.New("implied volatility did not converge")
)

const (
	MethodAnalytical = "analytical"
	MethodMonteCarlo = "monte_carlo"
	MethodApproxATMF = "approx_atmf"
	MethodDailySteps = "daily_steps"
)

// MarketParameters holds the inputs shared by every pricer.
type MarketParameters struct {
	Spot         float64 `json:"spot" yaml:"spot"`                     // current underlying price
	Strike       float64 `json:"strike" yaml:"strike"`                 // strike of both legs
	RiskFreeRate float64 `json:"risk_free_rate" yaml:"risk_free_rate"` // annual, continuously compounded
	Volatility   float64 `json:"volatility" yaml:"volatility"`         // annual, as a decimal
	TimeToExpiry float64 `json:"time_to_expiry" yaml:"time_to_expiry"` // years
}

// Validate reports the first field that breaks its invariant.
func (p MarketParameters) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"spot", p.Spot},
		{"strike", p.Strike},
		{"risk_free_rate", p.RiskFreeRate},
		{"volatility", p.Volatility},
		{"time_to_expiry", p.TimeToExpiry},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.Wrapf(ErrInvalidParameter, "%s must be finite, got %v", f.name, f.v)
		}
	}

	switch {
	case p.Spot <= 0:
		return errors.Wrapf(ErrInvalidParameter, "spot must be positive, got %v", p.Spot)
	case p.Strike <= 0:
		return errors.Wrapf(ErrInvalidParameter, "strike must be positive, got %v", p.Strike)
	case p.Volatility < 0:
		return errors.Wrapf(ErrInvalidParameter, "volatility must be non-negative, got %v", p.Volatility)
	case p.TimeToExpiry < 0:
		return errors.Wrapf(ErrInvalidParameter, "time_to_expiry must be non-negative, got %v", p.TimeToExpiry)
	}
	return nil
}

// Intrinsic is the straddle payoff if exercised now.
func (p MarketParameters) Intrinsic() float64 {
	return math.Abs(p.Spot - p.Strike)
}

// discount is exp(-rT).
func (p MarketParameters) discount() float64 {
	return math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
}

// PricingResult is the output of a single pricing call.
//
// StandardError and SampleCount are zero for closed-form results. A Monte
// Carlo run over a single path has an undefined (NaN) StandardError.
type PricingResult struct {
	Method        string  `json:"method"`
	Value         float64 `json:"value"`
	StandardError float64 `json:"standard_error"`
	SampleCount   int     `json:"sample_count"`
}

// IsEstimate reports whether the result came from sampling.
func (r PricingResult) IsEstimate() bool {
	return r.SampleCount > 0
}

// ConfidenceInterval returns the two-sided interval at the given level
// (e.g. 0.95) using the normal approximation of the sample mean.
// Closed-form results collapse to [Value, Value].
func (r PricingResult) ConfidenceInterval(level float64) (lo, hi float64) {
	if !r.IsEstimate() {
		return r.Value, r.Value
	}
	z := distuv.UnitNormal.Quantile(0.5 + level/2)
	half := z * r.StandardError
	return r.Value - half, r.Value + half
}
