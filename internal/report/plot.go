package report

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/stemvolume/internal/engine"
	"github.com/banshee-data/stemvolume/internal/records"
)

// ErrNothingToPlot is returned when no formula computed a value.
var ErrNothingToPlot = errors.New("no computed volumes to plot")

// VolumePlot builds a scatter of stem volume against diameter at breast
// height with one series per formula.
func VolumePlot(recs []records.TreeRecord, res *engine.Result) (*plot.Plot, error) {
	if len(recs) != res.Rows {
		return nil, fmt.Errorf("result has %d rows, records have %d", res.Rows, len(recs))
	}

	p := plot.New()
	p.Title.Text = "Stem volume by formula"
	p.X.Label.Text = "Diameter at breast height (cm)"
	p.Y.Label.Text = "Stem volume (m3)"

	series := 0
	for i := range res.Columns {
		col := &res.Columns[i]
		if col.Computed() == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, col.Computed())
		for row, v := range col.Values {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: recs[row].DiameterMM / 10, Y: v})
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("formula %d: %w", col.FormulaID, err)
		}
		scatter.GlyphStyle.Color = plotutil.Color(series)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("formula %d", col.FormulaID), scatter)
		series++
	}
	if series == 0 {
		return nil, ErrNothingToPlot
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteVolumePlot renders VolumePlot to w in the given format (png, svg,
// pdf, ...).
func WriteVolumePlot(w io.Writer, format string, recs []records.TreeRecord, res *engine.Result) error {
	p, err := VolumePlot(recs, res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
