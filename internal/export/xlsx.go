package export

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the name of the result worksheet.
const DefaultSheetName = "Stem volumes"

// WriteXLSX writes the output table as an Excel workbook with a frozen
// header row. Measurement columns and volumes are written as numbers,
// missing volumes as empty cells.
func WriteXLSX(w io.Writer, o *Output) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := DefaultSheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	header := o.Header()
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	numeric := map[int]bool{
		o.input.DiameterIndex(): true,
		o.input.HeightIndex():   true,
	}

	for row := 0; row < o.Rows(); row++ {
		cells = cells[:0]
		for i, raw := range o.Raw(row) {
			if numeric[i] {
				if v, err := strconv.ParseFloat(raw, 64); err == nil {
					cells = append(cells, v)
					continue
				}
			}
			cells = append(cells, raw)
		}
		for _, v := range o.Volumes(row) {
			if math.IsNaN(v) {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
