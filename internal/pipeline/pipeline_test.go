package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stemvolume/internal/config"
	"github.com/banshee-data/stemvolume/internal/db"
	"github.com/banshee-data/stemvolume/internal/engine"
	"github.com/banshee-data/stemvolume/internal/formulas"
	"github.com/banshee-data/stemvolume/internal/fsutil"
	"github.com/banshee-data/stemvolume/internal/monitoring"
	"github.com/banshee-data/stemvolume/internal/records"
	"github.com/banshee-data/stemvolume/internal/report"
	"github.com/banshee-data/stemvolume/internal/testutil"
	"github.com/banshee-data/stemvolume/internal/timeutil"
)

// failingFS refuses to create one path.
type failingFS struct {
	*fsutil.MemoryFileSystem
	fail string
}

func (f *failingFS) CreateExclusive(name string) (io.WriteCloser, error) {
	if name == f.fail {
		return nil, errors.New("disk full")
	}
	return f.MemoryFileSystem.CreateExclusive(name)
}

func openStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type logCapture struct {
	mu    sync.Mutex
	lines []string
}

func (l *logCapture) logf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *logCapture) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func captureLogs(t *testing.T) *logCapture {
	t.Helper()
	capture := &logCapture{}
	old := monitoring.Logf
	monitoring.SetLogger(capture.logf)
	t.Cleanup(func() { monitoring.Logf = old })
	return capture
}

func newTestPipeline(t *testing.T, cfg *config.Config, opts Options) (*Pipeline, *fsutil.MemoryFileSystem) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/in/trees.csv", []byte(testutil.SpruceInventory()))
	opts.FS = mfs
	if opts.Clock == nil {
		opts.Clock = timeutil.NewMockClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	}
	p, err := New(cfg, opts)
	require.NoError(t, err)
	return p, mfs
}

func readOutput(t *testing.T, mfs *fsutil.MemoryFileSystem, path string) [][]string {
	t.Helper()
	data, err := mfs.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_CSV(t *testing.T) {
	logs := captureLogs(t)
	p, mfs := newTestPipeline(t, nil, Options{})

	rep, err := p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv"})
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Rows)
	assert.Equal(t, 1, rep.Dropped)
	assert.Greater(t, rep.Computed, 0)
	assert.Empty(t, rep.RunID)
	assert.Len(t, p.Engine().Excluded(), 230-16, "unpublished formulas are excluded")

	rows := readOutput(t, mfs, "/out/volumes.csv")
	require.Len(t, rows, 6)
	header := rows[0]
	require.Len(t, header, 3+230)
	assert.Equal(t, records.DefaultSpeciesColumn, header[0])
	assert.Equal(t, engine.ColumnName(1), header[3])
	assert.Equal(t, engine.ColumnName(230), header[len(header)-1])

	// Norway spruce row: formula 82 applies, the fir formula 1 does not.
	assert.Equal(t, "Norway spruce", rows[1][0])
	v82, err := strconv.ParseFloat(rows[1][3+81], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.8289042, v82, 1e-6)
	assert.Equal(t, "", rows[1][3])

	// The row without a species was filled from the oak above it.
	assert.Equal(t, "Quercus robur", rows[5][0])

	var stages []string
	for _, s := range rep.Stages {
		stages = append(stages, s.Name)
	}
	assert.Equal(t, []string{StageRead, StageClean, StageEvaluate, StageWrite}, stages)
	assert.Contains(t, logs.joined(), "Reading CSV file took 0.000000 seconds")
	assert.Contains(t, logs.joined(), "dropped 1 duplicate rows")

	var spruce *report.Summary
	for _, s := range rep.Summaries() {
		if s.FormulaID == 82 {
			spruce = &s
		}
	}
	require.NotNil(t, spruce)
	assert.Equal(t, 2, spruce.Computed, "both spruce rows")
}

func TestRun_RefusesToOverwrite(t *testing.T) {
	captureLogs(t)
	p, mfs := newTestPipeline(t, nil, Options{})
	mfs.WriteFile("/out/volumes.csv", []byte("keep me"))

	_, err := p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv"})
	assert.True(t, errors.Is(err, ErrOutputExists))

	data, err := mfs.ReadFile("/out/volumes.csv")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	mfs.WriteFile("/out/chart.png", []byte("old chart"))
	_, err = p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/new.csv", Plot: "/out/chart.png"})
	assert.True(t, errors.Is(err, ErrOutputExists))
	assert.False(t, mfs.Exists("/out/new.csv"))
}

func TestRun_XLSXAndPlot(t *testing.T) {
	captureLogs(t)
	p, mfs := newTestPipeline(t, nil, Options{})

	rep, err := p.Run(context.Background(), Request{
		Input:  "/in/trees.csv",
		Output: "/out/volumes.xlsx",
		Plot:   "/out/volumes.png",
	})
	require.NoError(t, err)
	require.Len(t, rep.Stages, 5)
	assert.Equal(t, StagePlot, rep.Stages[3].Name)
	assert.Equal(t, StageWrite, rep.Stages[4].Name)

	book, err := mfs.ReadFile("/out/volumes.xlsx")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(book, []byte("PK")), "xlsx is a zip archive")

	png, err := mfs.ReadFile("/out/volumes.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRun_TaxonomyColumns(t *testing.T) {
	captureLogs(t)
	keep := true
	cfg := &config.Config{KeepTaxonomyColumns: &keep}
	p, mfs := newTestPipeline(t, cfg, Options{})

	_, err := p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv"})
	require.NoError(t, err)

	rows := readOutput(t, mfs, "/out/volumes.csv")
	assert.Contains(t, rows[0], "genus")
	assert.Contains(t, rows[1], "Picea")
}

func TestRun_Errors(t *testing.T) {
	captureLogs(t)
	p, mfs := newTestPipeline(t, nil, Options{})
	mfs.WriteFile("/in/bad.csv", []byte("species,height [dm]\nPicea abies,250\n"))

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "unsupported output", req: Request{Input: "/in/trees.csv", Output: "/out/volumes.json"}},
		{name: "missing input", req: Request{Input: "/in/none.csv", Output: "/out/a.csv"}},
		{name: "missing column", req: Request{Input: "/in/bad.csv", Output: "/out/b.csv"}, wantErr: records.ErrMissingColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.False(t, mfs.Exists(tt.req.Output), "no output on failure")
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	captureLogs(t)
	p, mfs := newTestPipeline(t, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, Request{Input: "/in/trees.csv", Output: "/out/volumes.csv"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, mfs.Exists("/out/volumes.csv"))
}

func TestRun_StoreAndMetrics(t *testing.T) {
	captureLogs(t)
	store := openStore(t)
	metrics := monitoring.NewMetrics()

	p, _ := newTestPipeline(t, nil, Options{Store: store, Metrics: metrics})
	rep, err := p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv"})
	require.NoError(t, err)
	require.NotEmpty(t, rep.RunID)

	run, err := store.GetRun(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, 5, run.RowCount)
	assert.NotNil(t, run.FinishedAt)

	vols, err := store.ListVolumes(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Len(t, vols, rep.Computed+rep.Failed)

	assert.Equal(t, 5.0, promtestutil.ToFloat64(metrics.Rows))
	assert.Equal(t, 5, promtestutil.CollectAndCount(metrics.StageDuration))
}

func TestNew_InvalidConfig(t *testing.T) {
	negative := -1
	_, err := New(&config.Config{Workers: &negative}, Options{})
	assert.Error(t, err)
}

func TestRun_CustomLibrary(t *testing.T) {
	captureLogs(t)
	lib, err := formulas.NewLibrary(formulas.Count)
	require.NoError(t, err)
	p, mfs := newTestPipeline(t, nil, Options{Library: lib})

	rep, err := p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv"})
	require.NoError(t, err)
	assert.Zero(t, rep.Computed)
	assert.Len(t, readOutput(t, mfs, "/out/volumes.csv")[0], 3+formulas.Count, "every id keeps its column")
}

func TestRun_FailedRunsAreNotStored(t *testing.T) {
	captureLogs(t)
	store := openStore(t)
	p, mfs := newTestPipeline(t, nil, Options{Store: store})
	mfs.WriteFile("/in/bad.csv", []byte("species,height [dm]\nPicea abies,250\n"))

	_, err := p.Run(context.Background(), Request{Input: "/in/bad.csv", Output: "/out/bad.csv"})
	require.True(t, errors.Is(err, records.ErrMissingColumn))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, Request{Input: "/in/trees.csv", Output: "/out/cancelled.csv"})
	require.True(t, errors.Is(err, context.Canceled))

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRun_NothingToPlotIsSkipped(t *testing.T) {
	logs := captureLogs(t)
	store := openStore(t)
	p, mfs := newTestPipeline(t, nil, Options{Store: store})
	mfs.WriteFile("/in/unknown.csv", []byte(testutil.TreeCSV(testutil.Tree{"unknown_tree_xyz", "300", "250"})))

	rep, err := p.Run(context.Background(), Request{
		Input:  "/in/unknown.csv",
		Output: "/out/unknown.csv",
		Plot:   "/out/unknown.png",
	})
	require.NoError(t, err)
	assert.Zero(t, rep.Computed)
	assert.True(t, mfs.Exists("/out/unknown.csv"))
	assert.False(t, mfs.Exists("/out/unknown.png"))
	assert.Contains(t, logs.joined(), "skipping plot /out/unknown.png")

	run, err := store.GetRun(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.NotNil(t, run.FinishedAt)
}

func TestRun_LaterFailureRemovesWrittenFiles(t *testing.T) {
	captureLogs(t)

	t.Run("plot write fails", func(t *testing.T) {
		store := openStore(t)
		mfs := fsutil.NewMemoryFileSystem()
		mfs.WriteFile("/in/trees.csv", []byte(testutil.SpruceInventory()))
		p, err := New(nil, Options{FS: &failingFS{MemoryFileSystem: mfs, fail: "/out/chart.png"}, Store: store})
		require.NoError(t, err)

		_, err = p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv", Plot: "/out/chart.png"})
		require.Error(t, err)
		assert.False(t, mfs.Exists("/out/volumes.csv"))
		assert.False(t, mfs.Exists("/out/chart.png"))

		runs, err := store.ListRuns(context.Background())
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("store fails", func(t *testing.T) {
		store := openStore(t)
		p, mfs := newTestPipeline(t, nil, Options{Store: store})
		require.NoError(t, store.Close())

		_, err := p.Run(context.Background(), Request{Input: "/in/trees.csv", Output: "/out/volumes.csv", Plot: "/out/chart.png"})
		require.Error(t, err)
		assert.False(t, mfs.Exists("/out/volumes.csv"))
		assert.False(t, mfs.Exists("/out/chart.png"))
	})
}
