// Package records reads tree inventory tables and prepares them for
// evaluation.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidValue is returned when a measurement cannot be parsed.
	ErrInvalidValue = errors.New("invalid measurement")
)

// Default input column names.
const (
	DefaultSpeciesColumn  = "species"
	DefaultDiameterColumn = "diameter at breast height [mm]"
	DefaultHeightColumn   = "height [dm]"
)

// Columns names the input columns holding the species, the diameter at
// breast height in mm and the tree height in dm.
type Columns struct {
	Species  string
	Diameter string
	Height   string
}

// DefaultColumns returns the standard inventory column names.
func DefaultColumns() Columns {
	return Columns{
		Species:  DefaultSpeciesColumn,
		Diameter: DefaultDiameterColumn,
		Height:   DefaultHeightColumn,
	}
}

// TreeRecord is one input row. Missing measurements are NaN.
type TreeRecord struct {
	Species    string
	DiameterMM float64
	HeightDM   float64
	// Raw holds every cell of the row as read, in header order.
	Raw []string
	// Line is the 1-based source line the row starts on; the header is
	// line 1.
	Line int
}

// Table is a parsed inventory table.
type Table struct {
	Header  []string
	Records []TreeRecord
	Columns Columns

	species, diameter, height int
}

// ReadCSV reads a CSV inventory with a header row. All three configured
// columns must be present; the check happens before any row is read.
func ReadCSV(r io.Reader, cols Columns) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: input has no header", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t, err := NewTable(header, cols)
	if err != nil {
		return nil, err
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(row) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(row), len(header))
		}
		line, _ := cr.FieldPos(0)
		rec, err := t.parse(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec.Line = line
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// NewTable creates an empty table, checking that the header carries the
// configured columns.
func NewTable(header []string, cols Columns) (*Table, error) {
	t := &Table{Header: header, Columns: cols}
	var missing []string
	find := func(name string) int {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		missing = append(missing, strconv.Quote(name))
		return -1
	}
	t.species = find(cols.Species)
	t.diameter = find(cols.Diameter)
	t.height = find(cols.Height)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return t, nil
}

// Append parses a raw row and adds it to the table. The row is taken to
// start on the line after the previous record.
func (t *Table) Append(row []string) error {
	line := 2
	if n := len(t.Records); n > 0 {
		line = t.Records[n-1].Line + 1
	}
	return t.appendLine(row, line)
}

func (t *Table) appendLine(row []string, line int) error {
	if len(row) != len(t.Header) {
		return fmt.Errorf("row has %d fields, header has %d", len(row), len(t.Header))
	}
	rec, err := t.parse(row)
	if err != nil {
		return err
	}
	rec.Line = line
	t.Records = append(t.Records, rec)
	return nil
}

func (t *Table) parse(row []string) (TreeRecord, error) {
	d, err := ParseMeasurement(row[t.diameter])
	if err != nil {
		return TreeRecord{}, fmt.Errorf("column %q: %w", t.Columns.Diameter, err)
	}
	h, err := ParseMeasurement(row[t.height])
	if err != nil {
		return TreeRecord{}, fmt.Errorf("column %q: %w", t.Columns.Height, err)
	}
	return TreeRecord{
		Species:    strings.TrimSpace(row[t.species]),
		DiameterMM: d,
		HeightDM:   h,
		Raw:        row,
	}, nil
}

// ParseMeasurement parses a numeric cell. Empty cells and the usual missing
// markers yield NaN.
func ParseMeasurement(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "n/a", "null", "<na>":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return v, nil
}

// SpeciesIndex returns the header position of the species column.
func (t *Table) SpeciesIndex() int { return t.species }

// DiameterIndex returns the header position of the diameter column.
func (t *Table) DiameterIndex() int { return t.diameter }

// HeightIndex returns the header position of the height column.
func (t *Table) HeightIndex() int { return t.height }

// clone returns a table with the same header and columns and no records.
func (t *Table) clone() *Table {
	return &Table{
		Header:   t.Header,
		Columns:  t.Columns,
		species:  t.species,
		diameter: t.diameter,
		height:   t.height,
	}
}
