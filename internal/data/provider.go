// Package data supplies historical underlying prices used to derive the
// spot and realized volatility that feed the pricers.
package data

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/contactkeval/straddle-pricer/internal/logger"
)

// ErrNoBars is returned when a provider has no bars for the requested range.
var ErrNoBars = errors.New("no bars")

const dateLayout = "2006-01-02"

// Provider supplies daily bars for an underlying.
type Provider interface {
	Name() string
	Secondary() Provider
	GetBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error)
}

// Bar simplified OHLC
type Bar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
	Vol   float64   `json:"volume"`
}

// --------------------------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------------------------

// fallback hands the request to the provider's secondary when the primary
// failed or came back empty. The primary error is kept when there is no
// secondary to ask.
func fallback(ctx context.Context, prov Provider, underlying string, fromDate, toDate time.Time, bars []Bar, err error) ([]Bar, error) {
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if err == nil {
		err = errors.Wrapf(ErrNoBars, "%s %s → %s from %s", underlying, fromDate.Format(dateLayout), toDate.Format(dateLayout), prov.Name())
	}

	secondary := prov.Secondary()
	if secondary == nil {
		return nil, err
	}
	logger.Infof("%s bars unavailable (%v), trying %s", prov.Name(), err, secondary.Name())
	return secondary.GetBars(ctx, underlying, fromDate, toDate)
}

// inRange keeps bars dated within [fromDate, toDate] and sorts them by date.
func inRange(bars []Bar, fromDate, toDate time.Time) []Bar {
	from := truncateDay(fromDate)
	to := truncateDay(toDate)

	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		d := truncateDay(b.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Closes extracts closing prices in bar order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.Close)
	}
	return out
}
