package simulation

import (
	"math"

	"github.com/pkg/errors"

	"github.com/contactkeval/straddle-pricer/internal/pricing"
)

// PathPoint is one trading day of a simulated path.
type PathPoint struct {
	Day    int     `json:"day"`
	Return float64 `json:"return"` // gross daily return 1+r
	Price  float64 `json:"price"`  // cumulative multiplier of the starting price
}

// SamplePath simulates one daily path over timeToExpiry years and returns it
// together with the straddle return |P_T - 1| of the path.
func SamplePath(src pricing.NormalSource, volatility, timeToExpiry float64) ([]PathPoint, float64, error) {
	if err := checkDaily(src, volatility, timeToExpiry); err != nil {
		return nil, 0, err
	}
	days := Days(timeToExpiry)
	sd := DailyVol(volatility)

	path := make([]PathPoint, days)
	price := 1.0
	for d := range path {
		ret := 1 + sd*src.NormFloat64()
		price *= ret
		path[d] = PathPoint{Day: d + 1, Return: ret, Price: price}
	}
	return path, math.Abs(price - 1), nil
}

// PathMatrix simulates count independent paths of the given number of days.
// Row d holds the cumulative multipliers of every path after day d+1, the
// layout a line chart of the paths expects.
func PathMatrix(src pricing.NormalSource, volatility float64, days, count int) ([][]float64, error) {
	if err := checkDaily(src, volatility, 0); err != nil {
		return nil, err
	}
	if days <= 0 || count <= 0 {
		return nil, errors.Wrapf(pricing.ErrInvalidSampleCount, "days and count must be positive, got %d and %d", days, count)
	}
	sd := DailyVol(volatility)

	rows := make([][]float64, days)
	prev := make([]float64, count)
	for j := range prev {
		prev[j] = 1
	}
	for d := 0; d < days; d++ {
		row := make([]float64, count)
		for j := 0; j < count; j++ {
			row[j] = prev[j] * (1 + sd*src.NormFloat64())
		}
		rows[d] = row
		prev = row
	}
	return rows, nil
}
