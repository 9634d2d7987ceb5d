// Package report summarises evaluation results and charts them.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/stemvolume/internal/engine"
)

// Summary describes one formula's column.
type Summary struct {
	FormulaID  int
	Name       string
	Applicable int
	Computed   int
	Failed     int
	// Mean, StdDev, Min and Max are over computed values in m3. NaN when
	// there are too few values.
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize returns a summary for every formula that applied to at least one
// row, ordered by formula id.
func Summarize(res *engine.Result) []Summary {
	var out []Summary
	for i := range res.Columns {
		col := &res.Columns[i]
		if col.Applicable == 0 {
			continue
		}
		s := Summary{
			FormulaID:  col.FormulaID,
			Name:       col.Name,
			Applicable: col.Applicable,
			Computed:   col.Computed(),
			Failed:     col.Failures(),
			Mean:       math.NaN(),
			StdDev:     math.NaN(),
			Min:        math.NaN(),
			Max:        math.NaN(),
		}
		values := computedValues(col)
		if len(values) > 0 {
			s.Mean = stat.Mean(values, nil)
			s.Min = floats.Min(values)
			s.Max = floats.Max(values)
		}
		if len(values) > 1 {
			s.StdDev = stat.StdDev(values, nil)
		}
		out = append(out, s)
	}
	return out
}

func computedValues(col *engine.Column) []float64 {
	values := make([]float64, 0, col.Computed())
	for _, v := range col.Values {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values
}

// WriteSummary writes summaries as an aligned text table.
func WriteSummary(w io.Writer, sums []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "formula\tapplicable\tcomputed\tfailed\tmean [m3]\tstddev [m3]\tmin [m3]\tmax [m3]\t")
	for _, s := range sums {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			s.FormulaID, s.Applicable, s.Computed, s.Failed,
			formatStat(s.Mean), formatStat(s.StdDev), formatStat(s.Min), formatStat(s.Max))
	}
	return tw.Flush()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
