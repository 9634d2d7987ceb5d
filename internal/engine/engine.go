// Package engine evaluates the formula library over a table of tree records.
//
// Taxonomy and applicability are resolved once per distinct species value.
// Each applicable formula then runs over the rows it applies to, with inputs
// scaled from mm (diameter) and dm (height) into the formula's declared
// units and results converted to m3. Small tables are evaluated row by row
// on the calling goroutine; larger ones are split by formula across a
// bounded worker pool and evaluated in chunks. Both paths produce identical
// output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/stemvolume/internal/applicability"
	"github.com/banshee-data/stemvolume/internal/formulas"
	"github.com/banshee-data/stemvolume/internal/monitoring"
	"github.com/banshee-data/stemvolume/internal/records"
	"github.com/banshee-data/stemvolume/internal/registry"
	"github.com/banshee-data/stemvolume/internal/taxonomy"
	"github.com/banshee-data/stemvolume/internal/units"
)

// Units of the raw input measurements.
const (
	InputDiameterUnit = units.MM
	InputHeightUnit   = units.DM
)

// ColumnSuffix is appended to the formula name to form the output column.
const ColumnSuffix = " [m3]"

// ColumnName returns the output column name of a formula.
func ColumnName(id int) string {
	return formulas.Name(id) + ColumnSuffix
}

// Default strategy settings.
const (
	DefaultBatchThreshold = 1000
	DefaultChunkSize      = 4096
)

// Options tunes the evaluation strategy. Zero values select defaults.
type Options struct {
	// Workers bounds the number of formulas evaluated concurrently.
	Workers int
	// BatchThreshold is the row count at which evaluation switches from
	// row-wise to batched.
	BatchThreshold int
	// ChunkSize is the number of rows per batch.
	ChunkSize int
	// Metrics, if set, receives row and cell counts.
	Metrics *monitoring.Metrics
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchThreshold <= 0 {
		o.BatchThreshold = DefaultBatchThreshold
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// Engine evaluates formulas against records. It is safe for concurrent use
// once constructed.
type Engine struct {
	lib      *formulas.Library
	table    *taxonomy.Table
	index    *applicability.Index
	descs    map[int]registry.Descriptor
	excluded map[int]error
	opts     Options
}

// New builds an engine. The registry is warmed here, before any worker
// starts, and formulas with configuration errors are logged and excluded.
func New(reg *registry.Registry, table *taxonomy.Table, opts Options) *Engine {
	excluded := reg.Warm()
	available := reg.Available()

	e := &Engine{
		lib:      reg.Library(),
		table:    table,
		index:    applicability.New(table, available),
		descs:    make(map[int]registry.Descriptor, len(available)),
		excluded: excluded,
		opts:     opts.withDefaults(),
	}
	for _, d := range available {
		e.descs[d.ID] = d
	}

	unimplemented := 0
	for _, id := range e.lib.IDs() {
		err, ok := excluded[id]
		if !ok {
			continue
		}
		if errors.Is(err, registry.ErrNotImplemented) {
			unimplemented++
			continue
		}
		monitoring.Logf("excluding %s: %v", formulas.Name(id), err)
	}
	if unimplemented > 0 {
		monitoring.Logf("%d of %d formulas have no implementation", unimplemented, e.lib.Count())
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.ExcludedFormulas.Set(float64(len(excluded)))
	}
	return e
}

// Index returns the applicability index the engine evaluates with.
func (e *Engine) Index() *applicability.Index { return e.index }

// Excluded returns the configuration error of every excluded formula.
func (e *Engine) Excluded() map[int]error {
	out := make(map[int]error, len(e.excluded))
	for id, err := range e.excluded {
		out[id] = err
	}
	return out
}

// job is the evaluation of one formula over the rows it applies to.
type job struct {
	desc    registry.Descriptor
	eval    formulas.Func
	rows    []int
	params  []string
	factors []float64
	col     *Column
}

// Evaluate computes every formula column for the records. It returns
// ctx.Err() without a result if the context is cancelled.
func (e *Engine) Evaluate(ctx context.Context, recs []records.TreeRecord) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(recs)
	res := &Result{
		Rows:    n,
		Columns: make([]Column, 0, e.lib.Count()),
		Genus:   make([]string, n),
		Matched: make([]string, n),
	}

	sets := e.resolve(recs, res)

	var jobs []*job
	for _, id := range e.lib.IDs() {
		res.Columns = append(res.Columns, Column{
			FormulaID: id,
			Name:      ColumnName(id),
			Values:    missing(n),
			Reasons:   make(map[int]error),
			Excluded:  e.excluded[id],
		})
	}
	for i := range res.Columns {
		col := &res.Columns[i]
		if col.Excluded != nil {
			continue
		}
		j, err := e.newJob(col, sets)
		if err != nil {
			return nil, err
		}
		if j != nil {
			jobs = append(jobs, j)
		}
	}

	var err error
	if n < e.opts.BatchThreshold {
		err = e.runSequential(ctx, jobs, recs)
	} else {
		err = e.runBatched(ctx, jobs, recs)
	}
	if err != nil {
		return nil, err
	}

	e.report(res, jobs)
	return res, nil
}

// resolve maps every row to its applicable formula set, resolving each
// distinct species once.
func (e *Engine) resolve(recs []records.TreeRecord, res *Result) []applicability.Set {
	type resolved struct {
		genus, name string
		set         applicability.Set
	}
	cache := make(map[string]resolved)
	sets := make([]applicability.Set, len(recs))
	for i, r := range recs {
		c, ok := cache[r.Species]
		if !ok {
			if m, found := e.table.Resolve(r.Species); found {
				c = resolved{genus: m.Genus(), name: m.Name, set: e.index.ForMatch(m)}
			}
			cache[r.Species] = c
		}
		sets[i] = c.set
		res.Genus[i] = c.genus
		res.Matched[i] = c.name
	}
	return sets
}

func (e *Engine) newJob(col *Column, sets []applicability.Set) (*job, error) {
	var rows []int
	for i, s := range sets {
		if s.Contains(col.FormulaID) {
			rows = append(rows, i)
		}
	}
	col.Applicable = len(rows)
	if len(rows) == 0 {
		return nil, nil
	}

	desc := e.descs[col.FormulaID]
	f, _ := e.lib.Lookup(col.FormulaID)
	j := &job{desc: desc, eval: f.Eval, rows: rows, params: desc.Parameters, col: col}
	for i, p := range desc.Parameters {
		from := InputDiameterUnit
		if p == registry.Height {
			from = InputHeightUnit
		}
		factor, err := units.LengthFactor(from, desc.ParameterUnits[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", desc.Name, err)
		}
		j.factors = append(j.factors, factor)
	}
	return j, nil
}

func (e *Engine) runSequential(ctx context.Context, jobs []*job, recs []records.TreeRecord) error {
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		j.evaluateRows(recs)
	}
	return nil
}

func (e *Engine) runBatched(ctx context.Context, jobs []*job, recs []records.TreeRecord) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			return j.evaluateBatched(gCtx, recs, e.opts.ChunkSize)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) report(res *Result, jobs []*job) {
	for _, j := range jobs {
		if n := j.col.Failures(); n > 0 {
			monitoring.Logf("%s: %d of %d applicable rows failed", j.desc.Name, n, j.col.Applicable)
		}
	}
	m := e.opts.Metrics
	if m == nil {
		return
	}
	m.Rows.Add(float64(res.Rows))
	computed, failed := res.Totals()
	m.Cells.WithLabelValues(monitoring.StatusComputed).Add(float64(computed))
	m.Cells.WithLabelValues(monitoring.StatusFailed).Add(float64(failed))
	for _, j := range jobs {
		if n := j.col.Failures(); n > 0 {
			m.Failures.WithLabelValues(j.desc.Name).Add(float64(n))
		}
	}
}

func input(r records.TreeRecord, param string) float64 {
	if param == registry.Height {
		return r.HeightDM
	}
	return r.DiameterMM
}

// evaluateRows evaluates the job one row at a time, isolating every call.
func (j *job) evaluateRows(recs []records.TreeRecord) {
	args := make([]float64, len(j.params))
	for _, row := range j.rows {
		for i, p := range j.params {
			args[i] = input(recs[row], p) * j.factors[i]
		}
		v, err := j.compute(args, safe(j.eval))
		j.col.set(row, v, err)
	}
}

// evaluateBatched gathers and scales the job's inputs as whole columns and
// evaluates them in chunks. A chunk that panics is re-evaluated row by row
// so that only the offending rows fail.
func (j *job) evaluateBatched(ctx context.Context, recs []records.TreeRecord, chunk int) error {
	n := len(j.rows)
	inputs := make([][]float64, len(j.params))
	for i, p := range j.params {
		col := make([]float64, n)
		for k, row := range j.rows {
			col[k] = input(recs[row], p)
		}
		floats.Scale(j.factors[i], col)
		inputs[i] = col
	}

	for lo := 0; lo < n; lo += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := min(lo+chunk, n)
		if !j.evaluateChunk(inputs, lo, hi) {
			j.evaluateChunkRows(inputs, lo, hi)
		}
	}
	return nil
}

// evaluateChunk evaluates rows lo..hi without per-row isolation and commits
// the results only if no call panicked.
func (j *job) evaluateChunk(inputs [][]float64, lo, hi int) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	values := make([]float64, hi-lo)
	errs := make([]error, hi-lo)
	args := make([]float64, len(inputs))
	for k := lo; k < hi; k++ {
		for i := range inputs {
			args[i] = inputs[i][k]
		}
		values[k-lo], errs[k-lo] = j.compute(args, j.eval)
	}
	for k := lo; k < hi; k++ {
		j.col.set(j.rows[k], values[k-lo], errs[k-lo])
	}
	return true
}

func (j *job) evaluateChunkRows(inputs [][]float64, lo, hi int) {
	eval := safe(j.eval)
	args := make([]float64, len(inputs))
	for k := lo; k < hi; k++ {
		for i := range inputs {
			args[i] = inputs[i][k]
		}
		v, err := j.compute(args, eval)
		j.col.set(j.rows[k], v, err)
	}
}

// compute evaluates one cell and converts the result to m3.
func (j *job) compute(args []float64, eval formulas.Func) (float64, error) {
	for _, a := range args {
		if math.IsNaN(a) {
			return math.NaN(), ErrMissingInput
		}
	}
	v, err := eval(args)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), fmt.Errorf("%w: %g %s", ErrNonFinite, v, j.desc.OutputUnit)
	}
	m3, err := units.ConvertVolumeToM3(v, j.desc.OutputUnit)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsInf(m3, 0) {
		return math.NaN(), fmt.Errorf("%w: exp(%g) overflows", ErrNonFinite, v)
	}
	return m3, nil
}

// safe wraps a formula so that a panic becomes an ErrPanic error.
func safe(f formulas.Func) formulas.Func {
	return func(args []float64) (v float64, err error) {
		defer func() {
			if r := recover(); r != nil {
				v, err = math.NaN(), fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		return f(args)
	}
}

func missing(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
