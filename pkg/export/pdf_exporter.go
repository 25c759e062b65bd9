package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a Dataset as a one-table A4 PDF with a print
// timestamp in the footer.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the document; the title line is skipped when empty.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 15, 10)
	doc.AddPage()

	if title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		doc.Ln(5)
	}

	// Columns share the printable width equally; rekap tables are narrow.
	colWidth := 190.0 / float64(len(data.Headers))

	doc.SetFont("Arial", "B", 10)
	doc.SetFillColor(235, 235, 235)
	for _, header := range data.Headers {
		doc.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, cell := range data.record(row) {
			doc.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		doc.Ln(-1)
	}

	doc.Ln(6)
	doc.SetFont("Arial", "I", 8)
	doc.CellFormat(0, 6, "Dicetak "+time.Now().Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
