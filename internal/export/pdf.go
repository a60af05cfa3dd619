package export

import (
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pdfRowHeight = 7.0
	pdfMargin    = 10.0
)

// WritePDF draws t as a grid on landscape A4 pages, repeating the header row
// after each page break.
func WritePDF(w io.Writer, t Table, now time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	title := t.Title
	if title == "" {
		title = "Datos"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Generado el: "+now.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	cols := len(t.Headers)
	if cols == 0 {
		return pdf.Output(w)
	}
	colW := (pageW - 2*pdfMargin) / float64(cols)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		for _, h := range t.Headers {
			pdf.CellFormat(colW, pdfRowHeight, fit(pdf, tr(h), colW), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}
	header()
	for _, row := range t.Rows {
		if pdf.GetY()+pdfRowHeight > pageH-pdfMargin {
			pdf.AddPage()
			header()
		}
		for i := 0; i < cols; i++ {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			pdf.CellFormat(colW, pdfRowHeight, fit(pdf, tr(v), colW), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

// fit trims s so it fits inside a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}
