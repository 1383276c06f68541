package report

import (
	"fmt"
	"io"
	"time"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/phpdave11/gofpdf"
)

type Input struct {
	Title   string
	Author  string
	Dataset *floor.Dataset
	Report  validate.Report
	// Engine is nil when the dataset has fatal errors.
	Engine *displacement.Engine
	Now    time.Time
}

// Write renders a diagnostic PDF for a dataset: counts, derived metrics
// when available, and every error and warning.
func Write(w io.Writer, in Input) error {
	if in.Title == "" {
		in.Title = "Floor Vibration Dataset Report"
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(in.Title))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	if name := in.Dataset.Title(); name != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Dataset: %s", name)))
		pdf.Ln(6)
	}
	if in.Author != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Author: %s", in.Author)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", in.Now.Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Nodes: %d  Lines: %d  Modes: %d",
		len(in.Dataset.Nodes), len(in.Dataset.Lines), len(in.Dataset.ModeNumbers())))
	pdf.Ln(10)

	if in.Engine != nil {
		section(pdf, "Modes")
		pdf.Cell(0, 6, fmt.Sprintf("L_floor = %.4g   A_ref = %.4g", in.Engine.LFloor(), in.Engine.ARef()))
		pdf.Ln(7)
		header(pdf, []string{"Mode", "f (Hz)", "Period (s)", "U_max"}, []float64{25, 40, 40, 40})
		for _, m := range in.Engine.Modes() {
			row(pdf, []float64{25, 40, 40, 40},
				fmt.Sprint(m),
				fmt.Sprintf("%.4g", in.Engine.Frequency(m)),
				fmt.Sprintf("%.4g", in.Engine.Period(m)),
				fmt.Sprintf("%.4g", in.Engine.UMax(m)))
		}
		pdf.Ln(6)
	}

	issues(pdf, fmt.Sprintf("Errors (%d)", len(in.Report.Errors)), in.Report.Errors)
	issues(pdf, fmt.Sprintf("Warnings (%d)", len(in.Report.Warnings)), in.Report.Warnings)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
}

func header(pdf *gofpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 10)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
}

func row(pdf *gofpdf.Fpdf, widths []float64, cells ...string) {
	for i, c := range cells {
		pdf.CellFormat(widths[i], 6, c, "1", 0, "R", false, 0, "")
	}
	pdf.Ln(-1)
}

func issues(pdf *gofpdf.Fpdf, title string, list []validate.Issue) {
	section(pdf, title)
	if len(list) == 0 {
		pdf.Cell(0, 6, "None.")
		pdf.Ln(8)
		return
	}
	for _, is := range list {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(50, 5, string(is.Code), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, is.Message, "", "L", false)
	}
	pdf.Ln(4)
}
