package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	FileName   = "blood_report.pdf"
	dateLayout = "02 Jan 2006 | 15:04"
	disclaimer = "This report is generated using an AI-based system and is intended " +
		"for research and educational purposes only."
)

// Write renders the PDF report for a to w.
func Write(w io.Writer, a Analysis) error {
	if len(a.Image) == 0 {
		return fmt.Errorf("no processed image")
	}
	chartPNG, err := Chart(a.Counts)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "AI Hematology Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Generated on: "+a.At.Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	heading(pdf, "Processed Blood Smear Image")
	pdf.RegisterImageOptionsReader("smear", fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(a.Image))
	pdf.ImageOptions("smear", pdf.GetX(), pdf.GetY(), 140, 0, true, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	pdf.Ln(5)

	heading(pdf, "Detection Summary")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(60, 7, "Cell Type", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Count", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, c := range a.Counts {
		pdf.CellFormat(60, 7, c.Class, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, strconv.Itoa(c.Count), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	heading(pdf, "Cell Distribution Chart")
	pdf.RegisterImageOptionsReader("chart", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(chartPNG))
	pdf.ImageOptions("chart", pdf.GetX(), pdf.GetY(), 100, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, disclaimer, "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}
