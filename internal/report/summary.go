package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/contactkeval/straddle-pricer/internal/engine"
)

var (
	subtle  = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	special = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}

	titleStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(subtle).Padding(0, 1)
)

// Summary renders the run as a bordered console table.
func Summary(res *engine.Result) string {
	var b strings.Builder
	m := res.Market

	fmt.Fprintln(&b, titleStyle.Render("Straddle "+res.RunID))
	if res.Source != nil {
		fmt.Fprintf(&b, "%s as of %s (%d bars)\n", res.Source.Underlying, res.Source.AsOf.Format("2006-01-02"), res.Source.Bars)
	}
	fmt.Fprintf(&b, "S=%.4f K=%.4f r=%.4f σ=%.4f T=%.4f\n\n", m.Spot, m.Strike, m.RiskFreeRate, m.Volatility, m.TimeToExpiry)

	fmt.Fprintf(&b, "%-12s %14s %12s %10s  %s\n", "method", "value", "std error", "samples", "95% interval")
	for _, e := range Estimates(res) {
		ci := "-"
		if e.Samples > 0 && e.CILow.valid() {
			ci = "[" + e.CILow.String() + ", " + e.CIHigh.String() + "]"
		}
		se := e.StdError.String()
		if se == "" {
			se = "n/a"
		}
		fmt.Fprintf(&b, "%-12s %14s %12s %10d  %s\n", e.Method, e.Value.String(), se, e.Samples, ci)
	}

	verdict := lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("z=%.2f within 3σ", res.ZScore))
	if !res.Within3Sigma {
		verdict = lipgloss.NewStyle().Foreground(warning).Render(fmt.Sprintf("z=%.2f outside 3σ", res.ZScore))
	}
	fmt.Fprintf(&b, "\n%s\n", verdict)
	if len(res.Repeats.Values) > 0 {
		fmt.Fprintf(&b, "repeated daily estimates: mean %s, std dev %s\n", Number(res.Repeats.Mean), Number(res.Repeats.StdDev))
	}
	fmt.Fprintf(&b, "elapsed %v", res.Elapsed)

	return boxStyle.Render(b.String())
}
