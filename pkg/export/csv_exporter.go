package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered tabular dataset ready for rendering. Rows shorter than
// the column list are padded; longer rows are an error.
type Table struct {
	Columns []string
	Rows    [][]string
}

// CSVExporter renders a Table as RFC 4180 CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the table, header row first.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv export needs at least one column")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) > len(table.Columns) {
			return nil, fmt.Errorf("row %d has %d cells for %d columns", i, len(row), len(table.Columns))
		}
		record := row
		if len(row) < len(table.Columns) {
			record = make([]string, len(table.Columns))
			copy(record, row)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
