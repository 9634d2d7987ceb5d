// Command genus-map prints which formulas apply to each genus and common
// name of the genus table, and lists formulas no genus maps to.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/banshee-data/stemvolume/internal/applicability"
	"github.com/banshee-data/stemvolume/internal/formulas"
	"github.com/banshee-data/stemvolume/internal/monitoring"
	"github.com/banshee-data/stemvolume/internal/registry"
	"github.com/banshee-data/stemvolume/internal/taxonomy"
)

// Maps is the generated genus and common-name lookup.
type Maps struct {
	Genera      map[string][]int `json:"genera"`
	CommonNames map[string][]int `json:"common_names"`
	// Unmapped lists implemented formulas whose species match no genus.
	Unmapped []int `json:"unmapped"`
}

func buildMaps(lib *formulas.Library) (*Maps, error) {
	table, err := taxonomy.Load()
	if err != nil {
		return nil, err
	}
	reg := registry.New(lib)
	for id, err := range reg.Warm() {
		if !errors.Is(err, registry.ErrNotImplemented) {
			monitoring.Logf("skipping %s: %v", formulas.Name(id), err)
		}
	}
	descs := reg.Available()

	genera := applicability.GenusWordMap(table, descs)
	m := &Maps{
		Genera:      make(map[string][]int, len(genera)),
		CommonNames: make(map[string][]int),
		Unmapped:    applicability.New(table, descs).Unmapped(descs),
	}
	for g, set := range genera {
		m.Genera[g] = set
	}
	for name, set := range applicability.CommonNameMap(table, genera) {
		m.CommonNames[name] = set
	}
	if m.Unmapped == nil {
		m.Unmapped = []int{}
	}
	return m, nil
}

func writeText(w io.Writer, m *Maps) error {
	section := func(title string, entries map[string][]int) {
		fmt.Fprintf(w, "%s:\n", title)
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, joinInts(entries[k]))
		}
	}
	section("genera", m.Genera)
	section("common names", m.CommonNames)
	_, err := fmt.Fprintf(w, "unmapped: %s\n", joinInts(m.Unmapped))
	return err
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("genus-map", flag.ContinueOnError)
	format := fs.String("format", "json", "output format: json or text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := buildMaps(formulas.Default())
	if err != nil {
		return err
	}
	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "text":
		return writeText(stdout, m)
	}
	return fmt.Errorf("unknown format %q", *format)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("genus-map: %v", err)
	}
}
