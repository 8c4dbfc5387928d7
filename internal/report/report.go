// Package report writes engine results to disk and renders the console
// summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/straddle-pricer/internal/engine"
)

const (
	ResultFile  = "result.json"
	SummaryFile = "summary.csv"
	PathsFile   = "paths.csv"
)

func WriteJSON(res *engine.Result, outdir string) error {
	b, err := json.MarshalIndent(NewDocument(res), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(outdir, ResultFile), b, 0644), "writing result")
}

// WriteCSV writes one row per estimate:
// method, value, std_error, samples, ci_low, ci_high.
func WriteCSV(res *engine.Result, outdir string) error {
	rows := [][]string{{"method", "value", "std_error", "samples", "ci_low", "ci_high"}}
	for _, e := range Estimates(res) {
		rows = append(rows, []string{e.Method, e.Value.String(), e.StdError.String(), strconv.Itoa(e.Samples), e.CILow.String(), e.CIHigh.String()})
	}
	return writeCSV(filepath.Join(outdir, SummaryFile), rows)
}

// WritePathsCSV writes simulated prices with one row per trading day and one
// column per path.
func WritePathsCSV(paths [][]float64, outdir string) error {
	width := 0
	if len(paths) > 0 {
		width = len(paths[0])
	}
	header := []string{"day"}
	for j := 1; j <= width; j++ {
		header = append(header, "path_"+strconv.Itoa(j))
	}

	rows := [][]string{header}
	for d, row := range paths {
		line := []string{strconv.Itoa(d + 1)}
		for _, v := range row {
			line = append(line, decimal.NewFromFloat(v).StringFixed(Places))
		}
		rows = append(rows, line)
	}
	return writeCSV(filepath.Join(outdir, PathsFile), rows)
}

// WriteAll writes every report file into outdir, creating it if needed.
func WriteAll(res *engine.Result, outdir string) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", outdir)
	}
	if err := WriteJSON(res, outdir); err != nil {
		return err
	}
	if err := WriteCSV(res, outdir); err != nil {
		return err
	}
	if len(res.Paths) == 0 {
		return nil
	}
	return WritePathsCSV(res.Paths, outdir)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating csv")
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", filepath.Base(path))
	}
	return errors.Wrapf(f.Close(), "closing %s", filepath.Base(path))
}
