package pricing

import (
	"math"

	"github.com/pkg/errors"
)

const sqrt2Pi = 2.5066282746310002

// Analytical prices the straddle with the Black-Scholes model.
//
// Parameters:
//   - p: market parameters shared by the call and the put leg
//
// Returns:
//
//	The sum of the Black-Scholes call and put values. When time to expiry or
//	volatility is zero the formula is undefined (d1 divides by σ√T), so the
//	intrinsic value |spot - strike| is returned instead.
//
// An error wrapping ErrInvalidParameter is returned if p fails validation.
func Analytical(p MarketParameters) (PricingResult, error) {
	if err := p.Validate(); err != nil {
		return PricingResult{}, err
	}

	res := PricingResult{Method: MethodAnalytical}
	if p.TimeToExpiry == 0 || p.Volatility == 0 {
		res.Value = p.Intrinsic() // intrinsic fallback
		return res, nil
	}

	call, put := legValues(p)
	res.Value = call + put
	return res, nil
}

// legValues returns the Black-Scholes call and put values. Callers must
// guarantee σ > 0 and T > 0.
func legValues(p MarketParameters) (call, put float64) {
	d1, d2 := d1d2(p)
	df := p.discount()

	call = p.Spot*normCDF(d1) - p.Strike*df*normCDF(d2)
	put = p.Strike*df*normCDF(-d2) - p.Spot*normCDF(-d1)
	return call, put
}

// d1d2 keeps σ² out of the numerator so very large volatilities do not
// overflow to Inf/Inf.
func d1d2(p MarketParameters) (float64, float64) {
	sqrtT := math.Sqrt(p.TimeToExpiry)
	volSqrtT := p.Volatility * sqrtT
	d1 := math.Log(p.Spot/p.Strike)/volSqrtT + (p.RiskFreeRate/p.Volatility+0.5*p.Volatility)*sqrtT
	return d1, d1 - volSqrtT
}

// StraddleVega is the sensitivity of the straddle value to volatility.
// Call and put share the same vega, so the straddle carries twice the
// single-leg value S·φ(d1)·√T. Returns 0 if T or σ is non-positive.
func StraddleVega(p MarketParameters) float64 {
	if p.TimeToExpiry <= 0 || p.Volatility <= 0 {
		return 0
	}
	d1, _ := d1d2(p)
	return 2 * p.Spot * normPDF(d1) * math.Sqrt(p.TimeToExpiry)
}

// ApproxATMF is the at-the-money-forward rule of thumb
// straddle ≈ sqrt(2/π)·σ·√T·spot (≈ 0.8·σ·√T·spot). It ignores the strike
// and the rate and is only meaningful close to the money.
func ApproxATMF(p MarketParameters) (PricingResult, error) {
	if err := p.Validate(); err != nil {
		return PricingResult{}, err
	}
	return PricingResult{
		Method: MethodApproxATMF,
		Value:  p.Spot * ATMFFraction(p.Volatility, p.TimeToExpiry),
	}, nil
}

// ATMFFraction is the ATMF straddle value as a fraction of spot.
func ATMFFraction(volatility, timeToExpiry float64) float64 {
	return (2 / sqrt2Pi) * volatility * math.Sqrt(timeToExpiry)
}

// ImpliedVolatility solves for the volatility at which the Black-Scholes
// straddle value equals premium, using Newton-Raphson on the straddle vega.
// The Volatility field of p is ignored.
func ImpliedVolatility(p MarketParameters, premium float64) (float64, error) {
	p.Volatility = 0
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if p.TimeToExpiry == 0 {
		return 0, errors.Wrap(ErrInvalidParameter, "implied volatility needs time_to_expiry > 0")
	}
	if math.IsNaN(premium) || premium <= 0 {
		return 0, errors.Wrapf(ErrInvalidParameter, "premium must be positive, got %v", premium)
	}

	// Initial guess: 20%
	p.Volatility = 0.20

	const (
		maxIter = 100
		tol     = 1e-8
	)

	for i := 0; i < maxIter; i++ {
		call, put := legValues(p)
		diff := call + put - premium

		if math.Abs(diff) < tol {
			return p.Volatility, nil
		}

		vega := StraddleVega(p)
		if vega < 1e-8 {
			break
		}

		p.Volatility -= diff / vega

		// Guardrails
		if p.Volatility <= 0 {
			p.Volatility = 1e-4
		}
		if p.Volatility > 5 {
			p.Volatility = 5
		}
	}

	return 0, errors.Wrapf(ErrNoConvergence, "premium=%v spot=%v strike=%v", premium, p.Spot, p.Strike)
}

// normPDF is the standard normal density exp(-x²/2)/√(2π).
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

// normCDF is the standard normal cumulative distribution. Erfc keeps full
// relative precision in the lower tail, where 1+Erf cancels.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
