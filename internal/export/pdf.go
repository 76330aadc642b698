package export

import (
	"fmt"
	"io"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/go-pdf/fpdf"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Title", 70},
	{"Description", 100},
	{"Platform", 25},
	{"Scheduled", 45},
	{"Status", 27},
}

// WritePDF renders the items as a landscape A4 table.
func WritePDF(w io.Writer, owner string, items []models.ContentItem) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Content Calendar", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Content Calendar"), "", 1, "L", false, 0, "")
	if owner != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(owner), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(243, 244, 246)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range items {
		desc := ""
		if item.Description != nil {
			desc = *item.Description
		}
		row := []string{
			item.Title,
			desc,
			string(item.Platform),
			item.ScheduledDate.UTC().Format("2006-01-02 15:04"),
			string(item.Status),
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, fit(pdf, tr(row[i]), col.width-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(items) == 0 {
		pdf.CellFormat(0, 7, "No content scheduled.", "1", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// fit truncates s with an ellipsis so it fits in width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
