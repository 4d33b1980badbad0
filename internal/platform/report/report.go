// Package report renders prescription reports as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/medapp/medapp/pkg/dateonly"
)

// Line is one prescribed medicine.
type Line struct {
	Medicine string
	Dosage   string
	Start    dateonly.Date
	End      *dateonly.Date
	Notes    string
}

// Prescription is everything printed on a report. Lines are printed in order.
type Prescription struct {
	AppointmentID int64
	Patient       string
	Doctor        string
	Date          dateonly.Date
	VisitType     string
	Notes         string
	Diagnosis     string
	Lines         []Line
}

// Renderer lays out prescriptions on A4 pages.
type Renderer struct {
	// Now stamps the document creation date; defaults to time.Now.
	Now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{Now: time.Now}
}

var columns = []struct {
	title string
	width float64
}{
	{"Medicine", 70},
	{"Dosage", 50},
	{"Start", 35},
	{"End", 35},
}

// Render returns the PDF bytes for p.
func (r *Renderer) Render(p Prescription) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	pdf.SetCreationDate(now())
	pdf.SetTitle(fmt.Sprintf("Prescription %d", p.AppointmentID), true)
	pdf.SetCreator("MedApp", true)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Prescription", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	field := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(35, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 7, tr(value), "", "L", false)
	}
	field("Patient:", p.Patient)
	field("Doctor:", p.Doctor)
	field("Date:", p.Date.String())
	field("Visit type:", p.VisitType)
	field("Diagnosis:", p.Diagnosis)
	field("Notes:", p.Notes)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	cells := make([]string, len(columns))
	if len(p.Lines) == 0 {
		pdf.CellFormat(190, 8, "No medicines prescribed.", "1", 1, "L", false, 0, "")
	}
	for _, l := range p.Lines {
		end := "-"
		if l.End != nil {
			end = l.End.String()
		}
		for i, c := range []string{l.Medicine, l.Dosage, l.Start.String(), end} {
			cells[i] = tr(c)
		}
		writeRow(pdf, cells)
		if l.Notes != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(190, 6, tr("Notes: "+l.Notes), "LRB", "L", false)
			pdf.SetFont("Helvetica", "", 10)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render prescription %d: %w", p.AppointmentID, err)
	}
	return buf.Bytes(), nil
}

const rowLineHeight = 5

// wrapRow splits each translated cell into lines that fit its column and
// returns the height of the tallest cell.
func wrapRow(pdf *fpdf.Fpdf, cells []string) (lines [][][]byte, height float64) {
	lines = make([][][]byte, len(columns))
	n := 1
	for i, col := range columns {
		lines[i] = pdf.SplitLines([]byte(cells[i]), col.width)
		n = max(n, len(lines[i]))
	}
	return lines, float64(n)*rowLineHeight + 2
}

// writeRow draws one bordered table row, growing it to fit the tallest cell.
// A row that would cross the bottom margin starts a new page.
func writeRow(pdf *fpdf.Fpdf, cells []string) {
	lines, h := wrapRow(pdf, cells)

	_, pageH := pdf.GetPageSize()
	left, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom {
		pdf.AddPage()
	}

	x, y := left, pdf.GetY()
	for i, col := range columns {
		pdf.Rect(x, y, col.width, h, "D")
		for j, line := range lines[i] {
			pdf.SetXY(x, y+1+float64(j)*rowLineHeight)
			pdf.CellFormat(col.width, rowLineHeight, string(line), "", 0, "L", false, 0, "")
		}
		x += col.width
	}
	pdf.SetXY(left, y+h)
}
