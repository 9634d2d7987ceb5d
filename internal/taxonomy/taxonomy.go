// Package taxonomy resolves free-text species and common names to genera
// using the embedded genus reference table.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed genera.yaml
var generaYAML []byte

// ErrInvalidTable is returned when the reference table cannot be parsed.
var ErrInvalidTable = errors.New("invalid genus table")

// GenusProfile is the reference data of one genus.
type GenusProfile struct {
	// Formulas holds the scientific names that make a formula applicable
	// to the genus.
	Formulas []string `yaml:"formulas"`
	// CommonNames resolve to the genus.
	CommonNames []string `yaml:"common_names"`
}

// MatchKind records which rule resolved a name.
type MatchKind int

const (
	ByCommonName MatchKind = iota + 1
	ByScientificName
	ByGenus
)

func (k MatchKind) String() string {
	switch k {
	case ByCommonName:
		return "common name"
	case ByScientificName:
		return "scientific name"
	case ByGenus:
		return "genus"
	}
	return "unknown"
}

// Match is a resolved name. Genera is never empty and lists genera in table
// order, so the first entry is the primary genus.
type Match struct {
	Genera []string
	// Name is the table entry that matched, in its reference spelling.
	Name string
	Kind MatchKind
}

// Genus returns the primary genus of the match.
func (m Match) Genus() string { return m.Genera[0] }

// Table is the parsed, read-only genus reference table.
type Table struct {
	order    []string
	profiles map[string]GenusProfile

	byCommon     map[string]entry
	byScientific map[string]entry
	byGenus      map[string]string
}

type entry struct {
	name   string
	genera []string
}

// Load parses the embedded reference table.
func Load() (*Table, error) {
	return Parse(generaYAML)
}

// Parse builds a table from YAML mapping genus names to profiles. Genus order
// in the document is preserved. Empty names are dropped.
func Parse(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidTable)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of genera", ErrInvalidTable)
	}

	t := &Table{
		profiles:     make(map[string]GenusProfile),
		byCommon:     make(map[string]entry),
		byScientific: make(map[string]entry),
		byGenus:      make(map[string]string),
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		genus := strings.TrimSpace(root.Content[i].Value)
		var p GenusProfile
		if err := root.Content[i+1].Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: genus %s: %v", ErrInvalidTable, genus, err)
		}
		if genus == "" {
			return nil, fmt.Errorf("%w: empty genus name at line %d", ErrInvalidTable, root.Content[i].Line)
		}
		if _, dup := t.profiles[genus]; dup {
			return nil, fmt.Errorf("%w: genus %s listed twice", ErrInvalidTable, genus)
		}
		p.Formulas = nonEmpty(p.Formulas)
		p.CommonNames = nonEmpty(p.CommonNames)

		t.order = append(t.order, genus)
		t.profiles[genus] = p
		t.byGenus[Normalize(genus)] = genus
		for _, n := range p.CommonNames {
			add(t.byCommon, n, genus)
		}
		for _, n := range p.Formulas {
			add(t.byScientific, n, genus)
		}
	}
	return t, nil
}

func add(index map[string]entry, name, genus string) {
	key := Normalize(name)
	e, ok := index[key]
	if !ok {
		e.name = name
	}
	for _, g := range e.genera {
		if g == genus {
			return
		}
	}
	e.genera = append(e.genera, genus)
	index[key] = e
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Genera returns every genus in table order.
func (t *Table) Genera() []string {
	return append([]string(nil), t.order...)
}

// Profile returns the reference data of a genus.
func (t *Table) Profile(genus string) (GenusProfile, bool) {
	p, ok := t.profiles[genus]
	return p, ok
}

// Resolve matches free text against the table. Common names are tried
// first, then admissible scientific names, then the leading word as a genus.
func (t *Table) Resolve(text string) (Match, bool) {
	key := Normalize(text)
	if key == "" {
		return Match{}, false
	}
	if e, ok := t.byCommon[key]; ok {
		return Match{Genera: append([]string(nil), e.genera...), Name: e.name, Kind: ByCommonName}, true
	}
	if e, ok := t.byScientific[key]; ok {
		return Match{Genera: append([]string(nil), e.genera...), Name: e.name, Kind: ByScientificName}, true
	}
	word, _, _ := strings.Cut(key, " ")
	if g, ok := t.byGenus[word]; ok {
		return Match{Genera: []string{g}, Name: g, Kind: ByGenus}, true
	}
	return Match{}, false
}

// Normalize canonicalises a name for matching: NFC composition, case
// folding, parenthesised qualifiers removed, surrounding punctuation trimmed
// and inner whitespace collapsed to single spaces.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	s = stripParentheses(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

func stripParentheses(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
			b.WriteRune(' ')
		case r == ')' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
