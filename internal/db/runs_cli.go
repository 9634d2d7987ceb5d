package db

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"
)

// RunRunsCommand handles the 'runs' subcommand: list, show or delete.
func RunRunsCommand(ctx context.Context, args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintRunsHelp(out)
		return fmt.Errorf("missing runs action")
	}
	if args[0] == "help" {
		PrintRunsHelp(out)
		return nil
	}

	database, err := NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch args[0] {
	case "list":
		return database.printRuns(ctx, out)
	case "show", "delete":
		if len(args) != 2 {
			return fmt.Errorf("runs %s requires a run id", args[0])
		}
		if args[0] == "delete" {
			if err := database.DeleteRun(ctx, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted run %s\n", args[1])
			return nil
		}
		return database.printRun(ctx, out, args[1])
	}
	PrintRunsHelp(out)
	return fmt.Errorf("unknown runs action: %s", args[0])
}

func (db *DB) printRuns(ctx context.Context, out io.Writer) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tROWS\tINPUT\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.RunID, r.StartedAt.Format(time.RFC3339), r.RowCount, r.InputPath, r.OutputPath)
	}
	return tw.Flush()
}

func (db *DB) printRun(ctx context.Context, out io.Writer, runID string) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	vols, err := db.ListVolumes(ctx, runID)
	if err != nil {
		return err
	}
	excluded, err := db.ListExcluded(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run:      %s\n", run.RunID)
	fmt.Fprintf(out, "Version:  %s\n", run.Version)
	fmt.Fprintf(out, "Input:    %s\n", run.InputPath)
	fmt.Fprintf(out, "Output:   %s\n", run.OutputPath)
	fmt.Fprintf(out, "Rows:     %d\n", run.RowCount)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}

	type counts struct{ computed, failed int }
	byFormula := make(map[int]*counts)
	for _, v := range vols {
		c := byFormula[v.FormulaID]
		if c == nil {
			c = &counts{}
			byFormula[v.FormulaID] = c
		}
		if v.VolumeM3 != nil {
			c.computed++
		} else {
			c.failed++
		}
	}
	ids := make([]int, 0, len(byFormula))
	for id := range byFormula {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fmt.Fprintf(out, "Excluded formulas: %d\n", len(excluded))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMULA\tCOMPUTED\tFAILED")
	for _, id := range ids {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", id, byFormula[id].computed, byFormula[id].failed)
	}
	return tw.Flush()
}

// PrintRunsHelp prints usage for the runs subcommand.
func PrintRunsHelp(out io.Writer) {
	fmt.Fprintln(out, `Usage: stemvolume -db <path> runs <action>

Actions:
  list         List recorded runs, most recent first
  show <id>    Show one run and its per-formula cell counts
  delete <id>  Delete a run and its recorded volumes
  help         Show this help`)
}
