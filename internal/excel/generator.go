package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const (
	summarySheet = "Summary"
	itemsSheet   = "Hauling"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a submission as a two-sheet workbook: the run summary and one row per item.
func (g *Generator) Generate(report model.SubmissionReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	g.writeSummary(file, report)

	if _, err := file.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	if err := g.writeItems(file, report); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, report model.SubmissionReport) {
	sub := report.Submission
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	rows := [][2]interface{}{
		{"Submission", sub.ID.String()},
		{"Record date", formatDate(sub.RecordDate)},
		{"Shift", string(sub.Shift)},
		{"Mining site", siteLabel(report)},
		{"Status", string(sub.Status)},
		{"Created", sub.CreatedCount},
		{"Updated", sub.UpdatedCount},
		{"Unchanged", sub.UnchangedCount},
		{"Failed", sub.FailedCount},
		{"Production record", formatString(sub.ProductionRecordID)},
		{"Overwrote existing record", yesNo(sub.ProductionOverwrite)},
		{"Error", formatString(sub.ErrorMessage)},
		{"Submitted by", sub.UserID},
		{"Submitted at", formatDateTime(sub.CreatedAt)},
	}
	for i, row := range rows {
		set(fmt.Sprintf("A%d", i+1), row[0])
		set(fmt.Sprintf("B%d", i+1), row[1])
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 28)
	_ = file.SetColWidth(summarySheet, "B", "B", 40)
}

func (g *Generator) writeItems(file *excelize.File, report model.SubmissionReport) error {
	headers := []string{
		"#",
		"Activity number",
		"Activity id",
		"Truck",
		"Operator",
		"Result",
		"Message",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = file.SetCellValue(itemsSheet, cell, header)
	}

	for i, item := range report.Submission.Items {
		row := i + 2
		values := []interface{}{
			item.Position,
			formatString(item.ActivityNumber),
			formatString(item.HaulingActivityID),
			report.TruckLabel(item.TruckID),
			report.OperatorLabel(item.OperatorID),
			string(item.Action),
			formatString(item.Message),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			_ = file.SetCellValue(itemsSheet, cell, value)
		}
	}

	_ = file.SetColWidth(itemsSheet, "A", "A", 6)
	_ = file.SetColWidth(itemsSheet, "B", "C", 24)
	_ = file.SetColWidth(itemsSheet, "D", "E", 20)
	_ = file.SetColWidth(itemsSheet, "F", "F", 12)
	_ = file.SetColWidth(itemsSheet, "G", "G", 48)
	return nil
}

func siteLabel(report model.SubmissionReport) string {
	if report.SiteName != "" {
		return report.SiteName
	}
	return report.Submission.MiningSiteID
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
