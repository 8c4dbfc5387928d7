package pricing

import "math"

// Accumulator keeps a running count, mean and sum of squared deviations
// (Welford). Two accumulators over disjoint samples combine with Merge.
// The zero value is ready to use.
type Accumulator struct {
	n    int
	mean float64
	m2   float64
}

// Add folds one observation into the running statistics.
func (a *Accumulator) Add(x float64) {
	a.n++
	delta := x - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (x - a.mean)
}

// Merge combines b into a using Chan et al.'s pairwise update.
func (a *Accumulator) Merge(b Accumulator) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = b
		return
	}
	n := a.n + b.n
	delta := b.mean - a.mean
	a.mean += delta * float64(b.n) / float64(n)
	a.m2 += b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(n)
	a.n = n
}

func (a Accumulator) Count() int    { return a.n }
func (a Accumulator) Mean() float64 { return a.mean }

// Variance is the unbiased sample variance; NaN below two observations.
func (a Accumulator) Variance() float64 {
	if a.n < 2 {
		return math.NaN()
	}
	return a.m2 / float64(a.n-1)
}

// StandardError is sqrt(variance/n), the standard error of the mean.
func (a Accumulator) StandardError() float64 {
	return math.Sqrt(a.Variance() / float64(a.n))
}

// Result packages the statistics as a PricingResult.
func (a Accumulator) Result(method string) PricingResult {
	return PricingResult{
		Method:        method,
		Value:         a.mean,
		StandardError: a.StandardError(),
		SampleCount:   a.n,
	}
}
