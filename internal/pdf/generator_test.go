package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

func TestGenerate(t *testing.T) {
	msg := strings.Repeat("backend rejected the truck assignment ", 4)
	report := model.SubmissionReport{
		Submission: model.Submission{
			ID:          uuid.New(),
			RecordDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Shift:       model.Shift2,
			Status:      model.SubmissionFailed,
			FailedCount: 1,
			Items: []model.SubmissionItem{
				{Position: 1, TruckID: "T1", OperatorID: "O1", Action: model.ItemFailed, Message: &msg},
			},
		},
		SiteName: "Pit Süd",
	}

	data, err := NewGenerator().Generate(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
