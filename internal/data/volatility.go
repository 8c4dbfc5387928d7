package data

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/contactkeval/straddle-pricer/internal/logger"
)

// Market is the spot and realized volatility derived from a bar history.
type Market struct {
	Underlying string    `json:"underlying"`
	AsOf       time.Time `json:"as_of"`
	Spot       float64   `json:"spot"`
	Volatility float64   `json:"volatility"`
	Bars       int       `json:"bars"`
}

// AnnualizedVolatility is the sample standard deviation of daily log
// returns scaled by √252. At least three closes are needed for a sample
// variance of two returns.
func AnnualizedVolatility(closes []float64) (float64, error) {
	if len(closes) < 3 {
		return 0, errors.Errorf("need at least 3 closes for volatility, got %d", len(closes))
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, errors.Errorf("non-positive close at index %d", i)
		}
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}
	return stat.StdDev(rets, nil) * math.Sqrt(252.0), nil
}

// EstimateMarket loads bars for the window and returns the last close as
// spot together with the realized volatility over the window.
func EstimateMarket(ctx context.Context, prov Provider, underlying string, fromDate, toDate time.Time) (Market, error) {
	bars, err := prov.GetBars(ctx, underlying, fromDate, toDate)
	if err != nil {
		return Market{}, errors.Wrapf(err, "load bars for %s", underlying)
	}
	if len(bars) == 0 {
		return Market{}, errors.Wrapf(ErrNoBars, "%s", underlying)
	}

	vol, err := AnnualizedVolatility(Closes(bars))
	if err != nil {
		return Market{}, errors.Wrapf(err, "realized volatility for %s", underlying)
	}

	last := bars[len(bars)-1]
	logger.Infof("%s spot=%.2f hist vol=%.2f%% over %d bars", underlying, last.Close, vol*100, len(bars))
	return Market{
		Underlying: underlying,
		AsOf:       last.Date,
		Spot:       last.Close,
		Volatility: vol,
		Bars:       len(bars),
	}, nil
}
