package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 210.0
	margin     = 15.0
	barWidth   = 100.0
	lineHeight = 6.0
)

// WritePDF writes the report as an A4 PDF.
func WritePDF(w io.Writer, d Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(d.Title(), true)
	pdf.SetCreator("intervue", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(d.Title()))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 116, 139)
	meta := fmt.Sprintf("Difficulty: %s    Session: %s", d.Session.Difficulty, d.Session.ID)
	if date := d.date(); date != "" {
		meta += "    " + date
	}
	pdf.Cell(0, lineHeight, tr(meta))
	pdf.Ln(12)
	pdf.SetTextColor(0, 0, 0)

	for _, s := range d.Scores() {
		scoreRow(pdf, tr(s.Label), s.Value)
	}
	pdf.Ln(4)

	r := d.Report
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, lineHeight, fmt.Sprintf("Answered %d of %d, skipped %d, not reached %d",
		r.Answered, r.TotalQuestions, r.Skipped, r.NotAnswered))
	pdf.Ln(lineHeight)
	if d.Session.Category.Verdict() {
		pdf.Cell(0, lineHeight, fmt.Sprintf("Correct %s, skip penalty %d", r.CorrectTally(), r.SkipPenalty))
		pdf.Ln(lineHeight)
	}

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		heading(pdf, title)
		pdf.SetFont("Arial", "", 11)
		for _, it := range items {
			pdf.MultiCell(0, lineHeight, tr("- "+it), "", "L", false)
		}
	}
	list("Strengths", r.Strengths)
	list("Improvements", r.Improvements)

	if r.Feedback != "" {
		heading(pdf, "Feedback")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, lineHeight, tr(r.Feedback), "", "L", false)
	}

	if evals := d.Evaluations(); len(evals) > 0 {
		heading(pdf, "Questions")
		for _, e := range evals {
			if e.Question != "" {
				pdf.SetFont("Arial", "B", 11)
				pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("Q%d. %s", e.Index, e.Question)), "", "L", false)
				pdf.SetFont("Arial", "", 11)
				pdf.MultiCell(0, lineHeight, tr("A: "+e.Answer), "", "L", false)
			}
			if e.Verdict != "" {
				verdictColor(pdf, e.Verdict)
				pdf.SetFont("Arial", "I", 11)
				pdf.MultiCell(0, lineHeight, tr("Verdict: "+e.Verdict), "", "L", false)
				pdf.SetTextColor(0, 0, 0)
			}
			pdf.Ln(2)
		}
	}

	return pdf.Output(w)
}

func heading(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
}

func scoreRow(pdf *gofpdf.Fpdf, label string, score int) {
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(40, lineHeight, label, "", 0, "L", false, 0, "")

	x, y := pdf.GetX(), pdf.GetY()+1
	pdf.SetFillColor(226, 232, 240)
	pdf.Rect(x, y, barWidth, lineHeight-2, "F")
	if score > 0 {
		pdf.SetFillColor(20, 184, 166)
		pdf.Rect(x, y, barWidth*float64(min(score, 100))/100, lineHeight-2, "F")
	}
	pdf.SetX(x + barWidth + 4)
	pdf.CellFormat(pageWidth-2*margin-40-barWidth-4, lineHeight, fmt.Sprintf("%d / 100", score), "", 1, "L", false, 0, "")
}

func verdictColor(pdf *gofpdf.Fpdf, v string) {
	switch verdictClass(v) {
	case 2:
		pdf.SetTextColor(22, 163, 74)
	case 1:
		pdf.SetTextColor(217, 119, 6)
	default:
		pdf.SetTextColor(225, 29, 72)
	}
}
