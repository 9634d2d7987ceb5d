package applicability

import (
	"sort"
	"strings"
	"unicode"

	"github.com/banshee-data/stemvolume/internal/registry"
	"github.com/banshee-data/stemvolume/internal/taxonomy"
)

// GenusOf returns the genus named by the first word of a scientific name,
// capitalised, or "" when there is no word.
func GenusOf(scientificName string) string {
	fields := strings.Fields(scientificName)
	if len(fields) == 0 {
		return ""
	}
	word := strings.TrimFunc(fields[0], func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return capitalize(word)
}

func capitalize(s string) string {
	rs := []rune(strings.ToLower(s))
	if len(rs) == 0 {
		return ""
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// GenusWordMap maps each known genus to the formulas whose scientific names
// start with that genus, regardless of the genus's admissible name list.
// Genera without formulas are omitted.
func GenusWordMap(table *taxonomy.Table, descs []registry.Descriptor) map[string]Set {
	known := make(map[string]bool)
	for _, g := range table.Genera() {
		known[g] = true
	}
	out := make(map[string]Set)
	for _, d := range descs {
		seen := make(map[string]bool)
		for _, name := range d.ScientificNames {
			g := GenusOf(name)
			if !known[g] || seen[g] {
				continue
			}
			seen[g] = true
			out[g] = append(out[g], d.ID)
		}
	}
	for _, set := range out {
		sort.Ints(set)
	}
	return out
}

// CommonNameMap maps each lower-cased common name to the union of the
// formulas of every genus it names, using the given genus map.
func CommonNameMap(table *taxonomy.Table, genusMap map[string]Set) map[string]Set {
	out := make(map[string]Set)
	for _, g := range table.Genera() {
		set := genusMap[g]
		if len(set) == 0 {
			continue
		}
		p, _ := table.Profile(g)
		for _, n := range p.CommonNames {
			name := strings.ToLower(strings.TrimSpace(n))
			if name == "" {
				continue
			}
			out[name] = out[name].Union(set)
		}
	}
	return out
}
