// Command find-duplicates reports identical rows of a tree inventory CSV
// with the line numbers they appear on.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/banshee-data/stemvolume/internal/records"
)

func report(w io.Writer, groups []records.DuplicateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No duplicate rows found.")
		return
	}
	for _, g := range groups {
		lines := make([]string, len(g.Lines))
		for i, l := range g.Lines {
			lines[i] = fmt.Sprint(l)
		}
		fmt.Fprintf(w, "%d× [%s] on lines %s\n", g.Count, strings.Join(g.Row, ", "), strings.Join(lines, ", "))
	}
	fmt.Fprintf(w, "%d duplicate groups, %d rows would be dropped\n", len(groups), records.Dropped(groups))
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("find-duplicates", flag.ContinueOnError)
	species := fs.String("species-column", records.DefaultSpeciesColumn, "species column name")
	diameter := fs.String("diameter-column", records.DefaultDiameterColumn, "diameter column name")
	height := fs.String("height-column", records.DefaultHeightColumn, "height column name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: find-duplicates [flags] <input.csv>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := records.ReadCSV(f, records.Columns{Species: *species, Diameter: *diameter, Height: *height})
	if err != nil {
		return err
	}
	report(stdout, records.FindDuplicates(table))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("find-duplicates: %v", err)
	}
}
