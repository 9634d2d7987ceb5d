// Package pipeline runs one stem volume evaluation end to end: read the
// inventory, clean it, evaluate every formula and write the result.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/stemvolume/internal/config"
	"github.com/banshee-data/stemvolume/internal/db"
	"github.com/banshee-data/stemvolume/internal/engine"
	"github.com/banshee-data/stemvolume/internal/export"
	"github.com/banshee-data/stemvolume/internal/formulas"
	"github.com/banshee-data/stemvolume/internal/fsutil"
	"github.com/banshee-data/stemvolume/internal/monitoring"
	"github.com/banshee-data/stemvolume/internal/records"
	"github.com/banshee-data/stemvolume/internal/registry"
	"github.com/banshee-data/stemvolume/internal/report"
	"github.com/banshee-data/stemvolume/internal/taxonomy"
	"github.com/banshee-data/stemvolume/internal/timeutil"
	"github.com/banshee-data/stemvolume/internal/version"
)

// ErrOutputExists is returned when an output file is already present.
var ErrOutputExists = errors.New("output file already exists")

// Stage names, as they appear in the timing log.
const (
	StageRead     = "Reading CSV file"
	StageClean    = "Cleaning data"
	StageEvaluate = "Calculating stem volume"
	StageWrite    = "Writing output file"
	StagePlot     = "Plotting stem volume"
	StageStore    = "Storing run"
)

// Options wires the collaborators of a pipeline. Zero values select the
// OS filesystem, the real clock and the built-in formula library.
type Options struct {
	FS      fsutil.FileSystem
	Clock   timeutil.Clock
	Metrics *monitoring.Metrics
	// Store, if set, records every run and its cell outcomes.
	Store *db.DB
	// Library replaces the built-in formula library.
	Library *formulas.Library
}

// Pipeline evaluates inventories with a fixed configuration.
type Pipeline struct {
	cfg     *config.Config
	fs      fsutil.FileSystem
	clock   timeutil.Clock
	metrics *monitoring.Metrics
	store   *db.DB
	engine  *engine.Engine
}

// New builds a pipeline. The formula registry and taxonomy are loaded here,
// once, and shared by every run.
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Library == nil {
		opts.Library = formulas.Default()
	}

	table, err := taxonomy.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load genus table: %w", err)
	}
	engineOpts := cfg.EngineOptions()
	engineOpts.Metrics = opts.Metrics

	return &Pipeline{
		cfg:     cfg,
		fs:      opts.FS,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		store:   opts.Store,
		engine:  engine.New(registry.New(opts.Library), table, engineOpts),
	}, nil
}

// Engine returns the evaluation engine of the pipeline.
func (p *Pipeline) Engine() *engine.Engine { return p.engine }

// Request names the files of one run.
type Request struct {
	Input  string
	Output string
	// Plot, if set, receives a volume-vs-diameter chart. The format follows
	// the extension.
	Plot string
}

// Report describes a finished run.
type Report struct {
	// RunID is set when the run was recorded in the store.
	RunID    string
	Rows     int
	Dropped  int
	Computed int
	Failed   int
	Stages   []timeutil.Stage
	Result   *engine.Result
	Records  []records.TreeRecord
}

// Summaries returns per-formula statistics of the run.
func (r *Report) Summaries() []report.Summary {
	return report.Summarize(r.Result)
}

// Run evaluates req.Input and writes req.Output. Existing output files are
// never replaced; the check happens before any work is done. A run that
// fails leaves neither output files nor a stored run behind.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	format, err := export.FormatFor(req.Output)
	if err != nil {
		return nil, err
	}
	for _, path := range []string{req.Output, req.Plot} {
		if path != "" && p.fs.Exists(path) {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
	}
	if d := p.cfg.GetRunTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	started := p.clock.Now()
	sw := timeutil.NewStopwatch(p.clock)
	rep := &Report{}

	var input *records.Table
	if err := p.stage(sw, StageRead, func() error {
		input, err = p.read(req.Input)
		return err
	}); err != nil {
		return nil, err
	}

	var cleaned *records.Table
	if err := p.stage(sw, StageClean, func() error {
		cleaned, err = records.Clean(input, p.cfg.CleanOptions())
		return err
	}); err != nil {
		return nil, err
	}
	rep.Rows = len(cleaned.Records)
	rep.Dropped = len(input.Records) - len(cleaned.Records)
	if rep.Dropped > 0 {
		monitoring.Logf("dropped %d duplicate rows", rep.Dropped)
	}
	rep.Records = cleaned.Records

	if err := p.stage(sw, StageEvaluate, func() error {
		rep.Result, err = p.engine.Evaluate(ctx, cleaned.Records)
		return err
	}); err != nil {
		return nil, err
	}
	rep.Computed, rep.Failed = rep.Result.Totals()

	out, err := export.New(cleaned, rep.Result, export.Options{TaxonomyColumns: p.cfg.GetKeepTaxonomyColumns()})
	if err != nil {
		return nil, err
	}

	// Render the chart before any file is written.
	var chart []byte
	if req.Plot != "" {
		plotFormat := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Plot)), ".")
		if err := p.stage(sw, StagePlot, func() error {
			var buf bytes.Buffer
			err := report.WriteVolumePlot(&buf, plotFormat, rep.Records, rep.Result)
			if errors.Is(err, report.ErrNothingToPlot) {
				monitoring.Logf("skipping plot %s: %v", req.Plot, err)
				return nil
			}
			chart = buf.Bytes()
			return err
		}); err != nil {
			return nil, err
		}
	}

	var written []string
	success := false
	defer func() {
		if success {
			return
		}
		for _, path := range written {
			if rerr := p.fs.Remove(path); rerr != nil {
				monitoring.Logf("failed to remove %s: %v", path, rerr)
			}
		}
	}()

	if err := p.stage(sw, StageWrite, func() error {
		if err := p.create(req.Output, func(w io.Writer) error {
			if format == export.XLSX {
				return export.WriteXLSX(w, out)
			}
			return export.WriteCSV(w, out)
		}); err != nil {
			return err
		}
		written = append(written, req.Output)
		if chart == nil {
			return nil
		}
		if err := p.create(req.Plot, func(w io.Writer) error {
			_, err := w.Write(chart)
			return err
		}); err != nil {
			return err
		}
		written = append(written, req.Plot)
		return nil
	}); err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := p.stage(sw, StageStore, func() error {
			finished := p.clock.Now()
			run, err := p.store.SaveRun(ctx, db.Run{
				InputPath:  req.Input,
				OutputPath: req.Output,
				Version:    version.Version,
				StartedAt:  started,
				FinishedAt: &finished,
			}, rep.Result)
			if err != nil {
				return err
			}
			rep.RunID = run.RunID
			return nil
		}); err != nil {
			return nil, err
		}
	}

	success = true
	rep.Stages = sw.Stages()
	return rep, nil
}

// stage times fn, logs the duration and records it in the metrics.
func (p *Pipeline) stage(sw *timeutil.Stopwatch, name string, fn func() error) error {
	d, err := sw.Time(name, fn)
	monitoring.LogStage(name, d)
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(name), err)
	}
	return nil
}

func (p *Pipeline) read(path string) (*records.Table, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return records.ReadCSV(f, p.cfg.GetColumns())
}

// create writes a new file with fn and removes it again if fn fails.
func (p *Pipeline) create(path string, fn func(io.Writer) error) error {
	w, err := p.fs.CreateExclusive(path)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrOutputExists, path)
	}
	if err != nil {
		return err
	}
	err = fn(w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := p.fs.Remove(path); rerr != nil {
			monitoring.Logf("failed to remove partial output %s: %v", path, rerr)
		}
		return err
	}
	return nil
}
