package records

import (
	"sort"
	"strings"
	"unicode"
)

// CleanOptions selects the cleaning steps.
type CleanOptions struct {
	DropDuplicates bool
	FillForward    bool
}

// Clean returns a new table with exact duplicate rows removed (first
// occurrence kept), empty cells filled from the previous row when
// FillForward is set, and species names capitalised.
func Clean(t *Table, opts CleanOptions) (*Table, error) {
	out := t.clone()
	seen := make(map[string]bool)
	var prev []string

	for _, rec := range t.Records {
		if opts.DropDuplicates {
			key := rowKey(rec.Raw)
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		row := append([]string(nil), rec.Raw...)
		if opts.FillForward && prev != nil {
			for i, cell := range row {
				if isMissing(cell) {
					row[i] = prev[i]
				}
			}
		}
		prev = row

		row[out.species] = Capitalize(strings.TrimSpace(row[out.species]))
		if err := out.appendLine(row, rec.Line); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "n/a", "null", "<na>":
		return true
	}
	return false
}

func rowKey(row []string) string {
	return strings.Join(row, "\x00")
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	rs := []rune(strings.ToLower(s))
	if len(rs) == 0 {
		return s
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// DuplicateGroup is a set of identical rows.
type DuplicateGroup struct {
	Row []string
	// Lines are 1-based line numbers in the source CSV; the header is line 1.
	Lines []int
	Count int
}

// FindDuplicates reports every group of identical rows, largest group
// first. Groups of equal size keep the order of their first occurrence.
func FindDuplicates(t *Table) []DuplicateGroup {
	index := make(map[string]int)
	var groups []DuplicateGroup
	for _, rec := range t.Records {
		key := rowKey(rec.Raw)
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, DuplicateGroup{Row: rec.Raw})
		}
		groups[g].Lines = append(groups[g].Lines, rec.Line)
		groups[g].Count++
	}

	out := groups[:0]
	for _, g := range groups {
		if g.Count > 1 {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Dropped returns the number of rows duplicate removal would drop.
func Dropped(groups []DuplicateGroup) int {
	n := 0
	for _, g := range groups {
		n += g.Count - 1
	}
	return n
}
