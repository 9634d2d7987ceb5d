package registry

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	speciesLine = regexp.MustCompile(`(?m)^\s*Species:\s*(.+?)\s*$`)
	countryLine = regexp.MustCompile(`(?m)^\s*Country:\s*(.+?)\s*$`)
	namedLine   = regexp.MustCompile(`^(\w+)\s*(?:\([^)]*\))?:\s*(.*)$`)
	parenthesis = regexp.MustCompile(`\([^)]*\)`)
	nameSplit   = regexp.MustCompile(`,|;|/| and | & `)
)

// ParseDoc extracts a descriptor from formula documentation written in the
// authoring convention. ID and Name are left for the caller to fill.
func ParseDoc(doc string) (Descriptor, error) {
	var d Descriptor

	if m := speciesLine.FindStringSubmatch(doc); m != nil {
		d.ScientificNames = SplitScientificNames(m[1])
	}
	if m := countryLine.FindStringSubmatch(doc); m != nil {
		d.Country = m[1]
	}

	args := section(doc, "Args")
	if len(args) == 0 {
		return Descriptor{}, fmt.Errorf("%w: no Args section", ErrMalformedDoc)
	}
	for _, line := range args {
		m := namedLine.FindStringSubmatch(line)
		if m == nil {
			return Descriptor{}, fmt.Errorf("%w: cannot parse argument %q", ErrMalformedDoc, line)
		}
		unit, err := unitToken(m[2])
		if err != nil {
			return Descriptor{}, fmt.Errorf("argument %s: %w", m[1], err)
		}
		d.Parameters = append(d.Parameters, m[1])
		d.ParameterUnits = append(d.ParameterUnits, unit)
	}

	returns := section(doc, "Returns")
	if len(returns) == 0 {
		return Descriptor{}, fmt.Errorf("%w: no Returns section", ErrMalformedDoc)
	}
	desc := returns[0]
	if m := namedLine.FindStringSubmatch(desc); m != nil {
		desc = m[2]
	}
	unit, err := unitToken(desc)
	if err != nil {
		return Descriptor{}, fmt.Errorf("returns: %w", err)
	}
	d.OutputUnit = unit

	if err := Validate(d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// SplitScientificNames splits a Species value into its scientific names,
// dropping parenthesised common names.
func SplitScientificNames(s string) []string {
	s = parenthesis.ReplaceAllString(s, "")
	var names []string
	for _, part := range nameSplit.Split(s, -1) {
		if name := strings.Join(strings.Fields(part), " "); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// section returns the non-empty indented lines following "<name>:" up to the
// next blank line or unindented line.
func section(doc, name string) []string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != name+":" {
			continue
		}
		var out []string
		for _, l := range lines[i+1:] {
			if strings.TrimSpace(l) == "" || !strings.HasPrefix(l, " ") && !strings.HasPrefix(l, "\t") {
				break
			}
			out = append(out, strings.TrimSpace(l))
		}
		return out
	}
	return nil
}

// unitToken returns the last word of the first sentence of a description.
func unitToken(desc string) (string, error) {
	first, _, _ := strings.Cut(desc, ".")
	words := strings.Fields(first)
	if len(words) == 0 {
		return "", fmt.Errorf("%w: no unit in %q", ErrMalformedDoc, desc)
	}
	return words[len(words)-1], nil
}
