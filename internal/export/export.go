// Package export writes evaluation results as CSV or Excel workbooks.
package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/stemvolume/internal/engine"
	"github.com/banshee-data/stemvolume/internal/records"
)

// Taxonomy column names added when Options.TaxonomyColumns is set.
const (
	GenusColumn   = "genus"
	MatchedColumn = "matched_name"
)

// Format is an output file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// FormatFor picks the format from a file name's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported output extension %q (want .csv or .xlsx)", filepath.Ext(path))
}

// Options controls the output layout.
type Options struct {
	// TaxonomyColumns adds the resolved genus and matched name.
	TaxonomyColumns bool
}

// Output is the result table: the input columns followed by one column per
// formula.
type Output struct {
	input *records.Table
	res   *engine.Result
	opts  Options
}

// New pairs an input table with its evaluation result.
func New(input *records.Table, res *engine.Result, opts Options) (*Output, error) {
	if len(input.Records) != res.Rows {
		return nil, fmt.Errorf("input has %d rows but result has %d", len(input.Records), res.Rows)
	}
	return &Output{input: input, res: res, opts: opts}, nil
}

// Header returns the output column names.
func (o *Output) Header() []string {
	h := append([]string(nil), o.input.Header...)
	if o.opts.TaxonomyColumns {
		h = append(h, GenusColumn, MatchedColumn)
	}
	for _, c := range o.res.Columns {
		h = append(h, c.Name)
	}
	return h
}

// Rows returns the number of data rows.
func (o *Output) Rows() int { return o.res.Rows }

// Raw returns the input cells and, if enabled, taxonomy cells of a row.
func (o *Output) Raw(row int) []string {
	cells := append([]string(nil), o.input.Records[row].Raw...)
	if o.opts.TaxonomyColumns {
		cells = append(cells, o.res.Genus[row], o.res.Matched[row])
	}
	return cells
}

// Volumes returns the formula values of a row in column order; NaN marks a
// missing value.
func (o *Output) Volumes(row int) []float64 {
	out := make([]float64, len(o.res.Columns))
	for i := range o.res.Columns {
		out[i] = o.res.Columns[i].Values[row]
	}
	return out
}

// FormatVolume renders a volume for text output. Missing values are empty.
func FormatVolume(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
