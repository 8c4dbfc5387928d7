package report

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/straddle-pricer/internal/data"
	"github.com/contactkeval/straddle-pricer/internal/engine"
	"github.com/contactkeval/straddle-pricer/internal/pricing"
	"github.com/contactkeval/straddle-pricer/internal/simulation"
)

// Places is the number of decimal places written for every float.
const Places = 6

// ConfidenceLevel of the intervals reported for estimates.
const ConfidenceLevel = 0.95

// Number is a float written with Places decimals. NaN and ±Inf have no
// JSON form and are written as null.
type Number float64

func (n Number) valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// String is the CSV form; undefined values are empty.
func (n Number) String() string {
	if !n.valid() {
		return ""
	}
	return decimal.NewFromFloat(float64(n)).StringFixed(Places)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid() {
		return []byte("null"), nil
	}
	return []byte(decimal.NewFromFloat(float64(n)).Round(Places).String()), nil
}

// Estimate is one pricing result with its confidence interval.
type Estimate struct {
	Method   string `json:"method"`
	Value    Number `json:"value"`
	StdError Number `json:"std_error"`
	Samples  int    `json:"samples"`
	CILow    Number `json:"ci_low"`
	CIHigh   Number `json:"ci_high"`
}

func NewEstimate(r pricing.PricingResult) Estimate {
	lo, hi := r.ConfidenceInterval(ConfidenceLevel)
	return Estimate{
		Method:   r.Method,
		Value:    Number(r.Value),
		StdError: Number(r.StandardError),
		Samples:  r.SampleCount,
		CILow:    Number(lo),
		CIHigh:   Number(hi),
	}
}

// QuoteDocument is the written form of engine.Quote.
type QuoteDocument struct {
	Market       pricing.MarketParameters `json:"market"`
	Analytical   Estimate                 `json:"analytical"`
	MonteCarlo   Estimate                 `json:"monte_carlo"`
	Vega         Number                   `json:"vega"`
	ZScore       Number                   `json:"z_score"`
	Within3Sigma bool                     `json:"within_3sigma"`
	Seed         uint64                   `json:"seed"`
	Workers      int                      `json:"workers"`
}

func NewQuoteDocument(q engine.Quote) QuoteDocument {
	return QuoteDocument{
		Market:       q.Market,
		Analytical:   NewEstimate(q.Analytical),
		MonteCarlo:   NewEstimate(q.MonteCarlo),
		Vega:         Number(q.Vega),
		ZScore:       Number(q.ZScore),
		Within3Sigma: q.Within3Sigma,
		Seed:         q.Seed,
		Workers:      q.Workers,
	}
}

// Repeats summarizes the repeated daily-step estimates.
type Repeats struct {
	Values []Number `json:"values"`
	Mean   Number   `json:"mean"`
	StdDev Number   `json:"std_dev"`
}

// Document is the written form of an engine run. Paths go to paths.csv
// instead.
type Document struct {
	RunID     string       `json:"run_id"`
	Started   time.Time    `json:"started"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Source    *data.Market `json:"source,omitempty"`
	QuoteDocument

	Approx     Estimate               `json:"approx_atmf"`
	Daily      Estimate               `json:"daily_steps"`
	Repeats    Repeats                `json:"repeats"`
	ImpliedVol Number                 `json:"mc_implied_vol"`
	SamplePath []simulation.PathPoint `json:"sample_path,omitempty"`
}

func NewDocument(res *engine.Result) Document {
	rep := Repeats{Mean: Number(res.Repeats.Mean), StdDev: Number(res.Repeats.StdDev)}
	for _, v := range res.Repeats.Values {
		rep.Values = append(rep.Values, Number(v))
	}
	return Document{
		RunID:         res.RunID,
		Started:       res.Started,
		ElapsedMS:     res.Elapsed.Milliseconds(),
		Source:        res.Source,
		QuoteDocument: NewQuoteDocument(res.Quote),
		Approx:        NewEstimate(res.Approx),
		Daily:         NewEstimate(res.Daily),
		Repeats:       rep,
		ImpliedVol:    Number(res.ImpliedVol),
		SamplePath:    res.Path,
	}
}

// Estimates lists the straddle estimates of a run in report order.
func Estimates(res *engine.Result) []Estimate {
	return []Estimate{
		NewEstimate(res.Analytical),
		NewEstimate(res.MonteCarlo),
		NewEstimate(res.Approx),
		NewEstimate(res.Daily),
	}
}
