// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TreeHeader is the header row of the default tree inventory layout.
const TreeHeader = "species,diameter at breast height [mm],height [dm]"

// Tree is one inventory row: species, diameter in mm and height in dm, as
// they appear in the CSV.
type Tree [3]string

// TreeCSV renders rows under TreeHeader.
func TreeCSV(rows ...Tree) string {
	var b strings.Builder
	b.WriteString(TreeHeader)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r[:], ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// SpruceInventory is a small mixed inventory: two Norway spruces, one of
// them duplicated, a Scots pine, an oak and a tree without a species.
func SpruceInventory() string {
	return TreeCSV(
		Tree{"Norway spruce", "300", "250"},
		Tree{"Picea abies", "220", "190"},
		Tree{"Norway spruce", "300", "250"},
		Tree{"Scots pine", "280", "230"},
		Tree{"Quercus robur", "450", "260"},
		Tree{"", "150", "120"},
	)
}

// WriteFile writes content to name inside a fresh temp dir and returns the
// path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
