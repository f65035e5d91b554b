package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(report model.SubmissionReport) ([]byte, error) {
	sub := report.Submission
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Production batch submission", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s, %s, %s", siteLabel(report), formatDate(sub.RecordDate), sub.Shift)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Submission %s", sub.ID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Result", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", sub.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%d created, %d updated, %d unchanged, %d failed",
		sub.CreatedCount, sub.UpdatedCount, sub.UnchangedCount, sub.FailedCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Production record: %s", safeValue(deref(sub.ProductionRecordID))), "", 1, "L", false, 0, "")
	if sub.ProductionOverwrite {
		pdf.CellFormat(0, 6, "An existing production record for this date, shift and site was overwritten.", "", 1, "L", false, 0, "")
	}
	if msg := deref(sub.ErrorMessage); msg != "" {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, tr(msg), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Hauling activities", "", 1, "L", false, 0, "")

	headers := []string{"#", "Activity number", "Truck", "Operator", "Result", "Message"}
	colWidths := []float64{12, 45, 35, 55, 28, 92}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)
	for _, item := range sub.Items {
		drawTableRow(pdf, g.fontName, []string{
			fmt.Sprintf("%d", item.Position),
			safeValue(deref(item.ActivityNumber)),
			tr(report.TruckLabel(item.TruckID)),
			tr(report.OperatorLabel(item.OperatorID)),
			string(item.Action),
			tr(truncate(deref(item.Message), 60)),
		}, colWidths, false)
	}

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Submitted by %s at %s", safeValue(sub.UserID), formatDateTime(sub.CreatedAt))), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i == 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func siteLabel(report model.SubmissionReport) string {
	if report.SiteName != "" {
		return report.SiteName
	}
	return safeValue(report.Submission.MiningSiteID)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04")
}
