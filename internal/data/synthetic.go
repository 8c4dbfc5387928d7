package data

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// synthDataProvider implements Data Provider generating synthetic data.
// Closes follow a zero-drift geometric Brownian motion with the configured
// annual volatility. The same seed and underlying always yield the same
// series.
type synthDataProvider struct {
	seed       uint64
	startPrice float64
	volatility float64
}

func NewSyntheticProvider(seed uint64, startPrice, volatility float64) Provider {
	return &synthDataProvider{seed: seed, startPrice: startPrice, volatility: volatility}
}

func (synthDataProv *synthDataProvider) Name() string { return "synthetic" }

// Secondary is always nil: generation cannot fail over.
func (synthDataProv *synthDataProvider) Secondary() Provider { return nil }

func (synthDataProv *synthDataProvider) GetBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(underlying)))
	rng := rand.New(rand.NewPCG(synthDataProv.seed, h.Sum64()))

	sd := synthDataProv.volatility / math.Sqrt(252)
	drift := -0.5 * sd * sd

	cur := truncateDay(fromDate)
	end := truncateDay(toDate)
	price := synthDataProv.startPrice
	var out []Bar
	for !cur.After(end) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			open := price
			close := price * math.Exp(drift+sd*rng.NormFloat64())
			high := math.Max(open, close) * (1 + math.Abs(rng.NormFloat64())*sd/4)
			low := math.Min(open, close) * (1 - math.Abs(rng.NormFloat64())*sd/4)
			out = append(out, Bar{Date: cur, Open: open, High: high, Low: low, Close: close, Vol: float64(1000 + rng.IntN(5000))})
			price = close
		}
		cur = cur.AddDate(0, 0, 1)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrNoBars, "%s %s → %s has no trading days", underlying, fromDate.Format(dateLayout), toDate.Format(dateLayout))
	}
	return out, nil
}
