package data

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// localCSVDataProvider reads daily bars from <dir>/<UNDERLYING>.csv with the
// header date,open,high,low,close,volume and dates as YYYY-MM-DD.
type localCSVDataProvider struct {
	dir       string
	secondary Provider
}

// NewLocalCSVDataProvider convenience constructor.
func NewLocalCSVDataProvider(dir string, secondary Provider) *localCSVDataProvider {
	return &localCSVDataProvider{dir: dir, secondary: secondary}
}

func (localCSVDataProv *localCSVDataProvider) Name() string { return "csv" }

func (localCSVDataProv *localCSVDataProvider) Secondary() Provider {
	return localCSVDataProv.secondary
}

func (localCSVDataProv *localCSVDataProvider) GetBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	bars, err := localCSVDataProv.readBars(underlying)
	if err == nil {
		bars = inRange(bars, fromDate, toDate)
	}
	return fallback(ctx, localCSVDataProv, underlying, fromDate, toDate, bars, err)
}

func (localCSVDataProv *localCSVDataProvider) readBars(underlying string) ([]Bar, error) {
	path := filepath.Join(localCSVDataProv.dir, strings.ToUpper(underlying)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open bars file")
	}
	defer f.Close()

	return parseBars(f)
}

// parseBars decodes the bars CSV. Columns are located by header name so
// extra columns are ignored.
func parseBars(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Errorf("bars file missing %q column", required)
		}
	}

	var out []Bar
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read line %d", line)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(row[cols["date"]]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d date", line)
		}
		b := Bar{Date: date}
		for name, dst := range map[string]*float64{
			"open": &b.Open, "high": &b.High, "low": &b.Low, "close": &b.Close, "volume": &b.Vol,
		} {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d %s", line, name)
			}
			*dst = v
		}
		out = append(out, b)
	}
	return out, nil
}
