// This file contains the Massive-backed Provider, which pulls daily
// aggregates through the Massive REST client.
//
// Design notes:
//   - The client authenticates with a bearer token and pages through next_url
//   - HTTP 429 responses are retried with backoff, other errors are returned
package data

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"
	"github.com/pkg/errors"

	"github.com/contactkeval/straddle-pricer/internal/logger"
)

// aggsLimit is the largest page the aggregates endpoint serves.
const aggsLimit = 50000

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	// client is the Massive REST client.
	client *massive.Client

	// secondary is an optional fallback provider.
	secondary Provider
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// Parameters:
//   - apiKey: Massive API key for authentication
//   - secondary: provider asked when Massive fails or returns nothing (may be nil)
func NewMassiveDataProvider(apiKey string, secondary Provider) *massiveDataProvider {
	return newMassiveDataProvider(apiKey, "", secondary)
}

// newMassiveDataProvider points the client at baseURL when it is set.
func newMassiveDataProvider(apiKey, baseURL string, secondary Provider) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")

	client := massive.New(apiKey)
	if baseURL != "" {
		client.HTTP.SetBaseURL(baseURL)
	}
	client.HTTP.
		SetTimeout(60 * time.Second).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(time.Minute).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				logger.Infof("rate limit hit, retrying %s", resp.Request.URL)
				return true
			}
			return false
		})

	return &massiveDataProvider{client: client, secondary: secondary}
}

func (massiveDataProv *massiveDataProvider) Name() string { return "massive" }

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetBars retrieves daily bars for the underlying between fromDate and toDate.
//
// Parameters:
//   - underlying: ticker symbol
//   - fromDate: start date
//   - toDate: end date
//
// Returns:
//   - []Bar: time-ordered bars
//   - error: if retrieval or decoding fails and no secondary provider succeeds
func (massiveDataProv *massiveDataProvider) GetBars(
	ctx context.Context,
	underlying string,
	fromDate, toDate time.Time,
) ([]Bar, error) {

	logger.Debugf(
		"fetching bars: %s from=%s to=%s",
		underlying,
		fromDate.Format(dateLayout),
		toDate.Format(dateLayout),
	)

	bars, err := massiveDataProv.fetchBars(ctx, underlying, fromDate, toDate)
	if err == nil {
		bars = inRange(bars, fromDate, toDate)
	}
	return fallback(ctx, massiveDataProv, underlying, fromDate, toDate, bars, err)
}

func (massiveDataProv *massiveDataProvider) fetchBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	params := models.ListAggsParams{
		Ticker:     strings.ToUpper(underlying),
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(truncateDay(fromDate)),
		To:         models.Millis(truncateDay(toDate)),
	}.WithAdjusted(true).WithOrder(models.Asc).WithLimit(aggsLimit)

	var out []Bar
	it := massiveDataProv.client.ListAggs(ctx, params)
	for it.Next() {
		agg := it.Item()
		out = append(out, Bar{
			Date:  time.Time(agg.Timestamp).UTC(),
			Open:  agg.Open,
			High:  agg.High,
			Low:   agg.Low,
			Close: agg.Close,
			Vol:   agg.Volume,
		})
	}
	if err := it.Err(); err != nil {
		logger.Errorf("massive aggregates request failed: %v", err)
		return nil, errors.Wrap(err, "massive aggregates")
	}

	logger.Tracef("bars received: %d records", len(out))
	return out, nil
}
