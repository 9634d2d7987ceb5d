package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/stemvolume/internal/engine"
)

// timeLayout is fixed width so stored timestamps sort chronologically as
// text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is one evaluation of an input file.
type Run struct {
	RunID      string
	InputPath  string
	OutputPath string
	RowCount   int
	Version    string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// VolumeRecord is one non-empty (row, formula) cell of a run.
type VolumeRecord struct {
	RowIndex  int
	FormulaID int
	// VolumeM3 is nil unless Status is computed.
	VolumeM3 *float64
	Status   string
	Reason   string
}

// SaveRun stores a finished run, every computed or failed cell of res and
// the formulas excluded by configuration errors in one transaction. The run
// gets a fresh id. Not-applicable cells are not stored.
func (db *DB) SaveRun(ctx context.Context, run Run, res *engine.Result) (*Run, error) {
	run.RunID = uuid.NewString()
	run.RowCount = res.Rows
	run.StartedAt = run.StartedAt.UTC()
	var finished any
	if run.FinishedAt != nil {
		t := run.FinishedAt.UTC()
		run.FinishedAt = &t
		finished = t.Format(timeLayout)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, input_path, output_path, row_count, version, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.InputPath, run.OutputPath, run.RowCount, run.Version, run.StartedAt.Format(timeLayout), finished); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	volStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO volumes (run_id, row_index, formula_id, volume_m3, status, reason) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare volume insert: %w", err)
	}
	defer volStmt.Close()

	exclStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO excluded_formulas (run_id, formula_id, reason) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare exclusion insert: %w", err)
	}
	defer exclStmt.Close()

	for i := range res.Columns {
		col := &res.Columns[i]
		if col.Excluded != nil {
			if _, err := exclStmt.ExecContext(ctx, run.RunID, col.FormulaID, col.Excluded.Error()); err != nil {
				return nil, fmt.Errorf("failed to record exclusion of formula %d: %w", col.FormulaID, err)
			}
			continue
		}
		for row := 0; row < res.Rows; row++ {
			out := col.Outcome(row)
			var value, reason any
			switch out.Status {
			case engine.NotApplicable:
				continue
			case engine.Computed:
				value = out.Value
			case engine.Failed:
				reason = out.Reason.Error()
			}
			if _, err := volStmt.ExecContext(ctx, run.RunID, row, col.FormulaID, value, out.Status.String(), reason); err != nil {
				return nil, fmt.Errorf("failed to record row %d formula %d: %w", row, col.FormulaID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteRun removes a run and everything recorded for it.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, input_path, output_path, row_count, version, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&run.RunID, &run.InputPath, &run.OutputPath, &run.RowCount, &run.Version, &started, &finished); err != nil {
		return nil, err
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at %q: %w", finished.String, err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := scanRun(db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListVolumes returns the stored cells of a run, ordered by row then formula.
func (db *DB) ListVolumes(ctx context.Context, runID string) ([]VolumeRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT row_index, formula_id, volume_m3, status, reason FROM volumes WHERE run_id = ? ORDER BY row_index, formula_id`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VolumeRecord
	for rows.Next() {
		var (
			rec    VolumeRecord
			volume sql.NullFloat64
			reason sql.NullString
		)
		if err := rows.Scan(&rec.RowIndex, &rec.FormulaID, &volume, &rec.Status, &reason); err != nil {
			return nil, err
		}
		if volume.Valid && !math.IsNaN(volume.Float64) {
			v := volume.Float64
			rec.VolumeM3 = &v
		}
		rec.Reason = reason.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListExcluded returns the formulas a run excluded, keyed by id.
func (db *DB) ListExcluded(ctx context.Context, runID string) (map[int]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT formula_id, reason FROM excluded_formulas WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			id     int
			reason string
		)
		if err := rows.Scan(&id, &reason); err != nil {
			return nil, err
		}
		out[id] = reason
	}
	return out, rows.Err()
}

// ListRuns returns all runs, most recent first.
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
