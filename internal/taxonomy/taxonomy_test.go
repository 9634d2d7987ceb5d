package taxonomy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTable(t *testing.T) *Table {
	t.Helper()
	table, err := Load()
	require.NoError(t, err)
	return table
}

func TestLoadEmbeddedTable(t *testing.T) {
	t.Parallel()

	table := loadTable(t)
	genera := table.Genera()
	require.Len(t, genera, 28)
	assert.Equal(t, "Abies", genera[0])
	assert.Equal(t, "Castanea", genera[len(genera)-1])

	p, ok := table.Profile("Picea")
	require.True(t, ok)
	want := GenusProfile{
		Formulas:    []string{"Picea sitchensis", "Picea abies", "Picea spp.", "Picea engelmannii"},
		CommonNames: []string{"Sitka spruce", "Norway spruce", "other spruces", "Other Conifers"},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Picea profile mismatch (-want +got):\n%s", diff)
	}

	// Genera without published formulas keep no empty entries.
	p, ok = table.Profile("Malus")
	require.True(t, ok)
	assert.Empty(t, p.Formulas)
	assert.Equal(t, []string{"European crab apple"}, p.CommonNames)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Norway spruce", "norway spruce"},
		{"  NORWAY   spruce ", "norway spruce"},
		{"Norway spruce (planted)", "norway spruce"},
		{"Norway spruce.", "norway spruce"},
		{"\"Norway spruce\"", "norway spruce"},
		{"Abies spp.", "abies spp"},
		{"misc. deciduous trees", "misc. deciduous trees"},
		{"Epicéa", "epicéa"},
		{"Straße", "strasse"},
		{"(unknown)", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	table := loadTable(t)
	tests := []struct {
		name string
		in   string
		want Match
	}{
		{"common name", "Norway spruce", Match{Genera: []string{"Picea"}, Name: "Norway spruce", Kind: ByCommonName}},
		{"common name capitalised", "Norway Spruce", Match{Genera: []string{"Picea"}, Name: "Norway spruce", Kind: ByCommonName}},
		{"common name upper case", "SCOTS PINE", Match{Genera: []string{"Pinus"}, Name: "Scots pine", Kind: ByCommonName}},
		{"common name with qualifier", "Beech (old growth)", Match{Genera: []string{"Fagus"}, Name: "beech", Kind: ByCommonName}},
		{"scientific name", "picea abies", Match{Genera: []string{"Picea"}, Name: "Picea abies", Kind: ByScientificName}},
		{"genus word", "Picea omorika", Match{Genera: []string{"Picea"}, Name: "Picea", Kind: ByGenus}},
		{"bare genus", "Tilia", Match{Genera: []string{"Tilia"}, Name: "Tilia", Kind: ByGenus}},
		{"common name listed as scientific", "Betula pubescens", Match{Genera: []string{"Betula"}, Name: "Betula pubescens", Kind: ByCommonName}},
		{
			"shared common name",
			"Other conifers",
			Match{
				Genera: []string{"Chamaecyparis", "Larix", "Picea", "Pinus", "Pseudotsuga", "Thuja", "Tsuga"},
				Name:   "Other Conifers",
				Kind:   ByCommonName,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := table.Resolve(tt.in)
			require.True(t, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
			assert.Equal(t, tt.want.Genera[0], got.Genus())
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	t.Parallel()

	table := loadTable(t)
	for _, in := range []string{"unknown_tree_xyz", "", "   ", "spruce", "(Picea)"} {
		_, ok := table.Resolve(in)
		assert.False(t, ok, "Resolve(%q)", in)
	}
}

func TestResolveDoesNotShareGenera(t *testing.T) {
	t.Parallel()

	table := loadTable(t)
	m, ok := table.Resolve("Other Conifers")
	require.True(t, ok)
	m.Genera[0] = "Mutated"

	again, ok := table.Resolve("Other Conifers")
	require.True(t, ok)
	assert.Equal(t, "Chamaecyparis", again.Genus())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "Abies: [unterminated"},
		{"empty", ""},
		{"sequence at top", "- Abies\n- Picea\n"},
		{"bad profile", "Abies:\n  formulas: 3\n"},
		{"duplicate genus", "Abies:\n  formulas: [Abies alba]\nAbies:\n  formulas: [Abies spp.]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestMatchKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "common name", ByCommonName.String())
	assert.Equal(t, "scientific name", ByScientificName.String())
	assert.Equal(t, "genus", ByGenus.String())
	assert.Equal(t, "unknown", MatchKind(0).String())
}
