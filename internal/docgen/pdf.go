package docgen

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

const pdfFontFamily = "Go"

func renderPDF(p page) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(p.Title, true)

	// Embedded TrueType fonts keep symbols outside cp1252 (π, ≤, Δ, →).
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "I", goitalic.TTF)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to load pdf fonts: %w", err)
	}

	pdf.AddPage()

	pdf.SetFont(pdfFontFamily, "B", 18)
	pdf.SetTextColor(31, 56, 100)
	pdf.MultiCell(0, 10, p.Title, "", "C", false)
	pdf.Ln(6)

	pdf.SetFont(pdfFontFamily, "", 11)
	pdf.SetTextColor(0, 0, 0)
	for _, para := range p.Paragraphs {
		pdf.MultiCell(0, 6, para, "", "L", false)
		pdf.Ln(3)
	}

	pdf.Ln(6)
	pdf.SetFont(pdfFontFamily, "I", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 5, p.Footer, "", "R", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
