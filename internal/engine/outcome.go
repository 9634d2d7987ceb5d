package engine

import (
	"errors"
	"math"
)

var (
	// ErrNonFinite marks a formula result that is NaN or infinite.
	ErrNonFinite = errors.New("non-finite result")
	// ErrMissingInput marks a row whose diameter or height is missing.
	ErrMissingInput = errors.New("missing input")
	// ErrPanic marks a formula that panicked.
	ErrPanic = errors.New("formula panicked")
)

// Status is the outcome of one (row, formula) cell.
type Status uint8

const (
	NotApplicable Status = iota
	Computed
	Failed
)

func (s Status) String() string {
	switch s {
	case NotApplicable:
		return "not_applicable"
	case Computed:
		return "computed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the typed result of one cell. Value is in m3 and only set when
// Status is Computed.
type Outcome struct {
	Status Status
	Value  float64
	Reason error
}

// Column holds the results of one formula for every input row.
type Column struct {
	FormulaID int
	Name      string
	// Values are in m3; NaN marks a missing cell.
	Values []float64
	// Reasons records why a failed row has no value.
	Reasons map[int]error
	// Applicable is the number of rows the formula applied to.
	Applicable int
	// Excluded is the configuration error that kept the formula from
	// running, if any.
	Excluded error
}

// Outcome returns the outcome of the given row.
func (c *Column) Outcome(row int) Outcome {
	if v := c.Values[row]; !math.IsNaN(v) {
		return Outcome{Status: Computed, Value: v}
	}
	if err, ok := c.Reasons[row]; ok {
		return Outcome{Status: Failed, Value: math.NaN(), Reason: err}
	}
	return Outcome{Status: NotApplicable, Value: math.NaN()}
}

// Computed returns the number of rows with a value.
func (c *Column) Computed() int {
	return c.Applicable - len(c.Reasons)
}

// Failures returns the number of rows the formula failed for.
func (c *Column) Failures() int {
	return len(c.Reasons)
}

func (c *Column) set(row int, v float64, err error) {
	if err != nil {
		c.Values[row] = math.NaN()
		c.Reasons[row] = err
		return
	}
	c.Values[row] = v
	delete(c.Reasons, row)
}

// Result is the output of one evaluation. Row order matches the input and
// columns are ordered by formula id.
type Result struct {
	Rows    int
	Columns []Column
	// Genus is the primary genus of each row, "" when the species did not
	// resolve.
	Genus []string
	// Matched is the taxonomy entry each row resolved through, "" when the
	// species did not resolve.
	Matched []string
}

// Column returns the column of the given formula id, or nil.
func (r *Result) Column(id int) *Column {
	i := id - 1
	if i >= 0 && i < len(r.Columns) && r.Columns[i].FormulaID == id {
		return &r.Columns[i]
	}
	for i := range r.Columns {
		if r.Columns[i].FormulaID == id {
			return &r.Columns[i]
		}
	}
	return nil
}

// Outcome returns the outcome of a (row, formula) cell.
func (r *Result) Outcome(row, id int) Outcome {
	c := r.Column(id)
	if c == nil {
		return Outcome{Status: NotApplicable, Value: math.NaN()}
	}
	return c.Outcome(row)
}

// Totals returns the number of computed and failed cells.
func (r *Result) Totals() (computed, failed int) {
	for i := range r.Columns {
		computed += r.Columns[i].Computed()
		failed += r.Columns[i].Failures()
	}
	return computed, failed
}
