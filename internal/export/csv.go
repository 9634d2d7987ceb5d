package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the output table as CSV with a header row.
func WriteCSV(w io.Writer, o *Output) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(o.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for row := 0; row < o.Rows(); row++ {
		cells := o.Raw(row)
		for _, v := range o.Volumes(row) {
			cells = append(cells, FormatVolume(v))
		}
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
