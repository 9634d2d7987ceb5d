// Package applicability maps genera to the formulas that may be evaluated for
// them.
package applicability

import (
	"sort"

	"github.com/banshee-data/stemvolume/internal/registry"
	"github.com/banshee-data/stemvolume/internal/taxonomy"
)

// Set is an ascending list of formula ids.
type Set []int

// Contains reports whether id is in the set.
func (s Set) Contains(id int) bool {
	i := sort.SearchInts(s, id)
	return i < len(s) && s[i] == id
}

// Union returns the ids in s or o.
func (s Set) Union(o Set) Set {
	out := make(Set, 0, len(s)+len(o))
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] < o[j]:
			out = append(out, s[i])
			i++
		case s[i] > o[j]:
			out = append(out, o[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	return append(out, o[j:]...)
}

// Index holds the applicable formula set of every genus. It is immutable
// once built.
type Index struct {
	byGenus map[string]Set
}

// New computes the set of every genus of the table. A formula applies to a
// genus when one of its scientific names is among the genus's admissible
// names.
func New(table *taxonomy.Table, descs []registry.Descriptor) *Index {
	ix := &Index{byGenus: make(map[string]Set)}
	for _, genus := range table.Genera() {
		p, _ := table.Profile(genus)
		admissible := make(map[string]bool, len(p.Formulas))
		for _, name := range p.Formulas {
			admissible[taxonomy.Normalize(name)] = true
		}

		var set Set
		for _, d := range descs {
			for _, name := range d.ScientificNames {
				if admissible[taxonomy.Normalize(name)] {
					set = append(set, d.ID)
					break
				}
			}
		}
		sort.Ints(set)
		ix.byGenus[genus] = set
	}
	return ix
}

// ForGenus returns the formulas applicable to a genus. Unknown genera yield
// an empty set. The returned set must not be modified.
func (ix *Index) ForGenus(genus string) Set {
	return ix.byGenus[genus]
}

// ForMatch returns the union of the sets of every genus of the match.
func (ix *Index) ForMatch(m taxonomy.Match) Set {
	switch len(m.Genera) {
	case 0:
		return nil
	case 1:
		return ix.ForGenus(m.Genera[0])
	}
	var out Set
	for _, g := range m.Genera {
		out = out.Union(ix.ForGenus(g))
	}
	return out
}

// Unmapped returns the ids of descriptors that no genus maps to.
func (ix *Index) Unmapped(descs []registry.Descriptor) []int {
	var out []int
	for _, d := range descs {
		found := false
		for _, set := range ix.byGenus {
			if set.Contains(d.ID) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, d.ID)
		}
	}
	return out
}
