// Package export renders rekap aggregates into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is a header-ordered table. Rows are keyed by header name so a
// missing cell renders empty instead of shifting columns.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}

// CSVExporter renders a Dataset as RFC 4180 CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset, headers first.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := w.Write(data.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
