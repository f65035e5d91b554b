package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

func sampleReport() model.SubmissionReport {
	number := "HA-20240301-001"
	activity := "H1"
	failure := "truck is busy"
	production := "P1"
	return model.SubmissionReport{
		Submission: model.Submission{
			ID:                 uuid.New(),
			UserID:             "u-1",
			RecordDate:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Shift:              model.Shift1,
			MiningSiteID:       "S1",
			Status:             model.SubmissionPartial,
			CreatedCount:       1,
			FailedCount:        1,
			ProductionRecordID: &production,
			Items: []model.SubmissionItem{
				{Position: 1, HaulingActivityID: &activity, ActivityNumber: &number, TruckID: "T1", OperatorID: "O1", Action: model.ItemCreated},
				{Position: 2, TruckID: "T2", OperatorID: "O2", Action: model.ItemFailed, Message: &failure},
			},
		},
		SiteName:  "Pit North",
		Trucks:    map[string]string{"T1": "DT-01"},
		Operators: map[string]string{"O1": "Budi"},
	}
}

func TestGenerate(t *testing.T) {
	data, err := NewGenerator().Generate(sampleReport())
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{summarySheet, itemsSheet}, file.GetSheetList())

	site, err := file.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Pit North", site)

	status, err := file.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL", status)

	rows, err := file.GetRows(itemsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "HA-20240301-001", "H1", "DT-01", "Budi", "CREATED"}, rows[1])
	assert.Equal(t, "T2", rows[2][3], "unknown trucks fall back to the id")
	assert.Equal(t, "truck is busy", rows[2][6])
}
