package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

var submissionRowColumns = []string{
	"id", "session_id", "user_id", "record_date", "shift", "mining_site_id", "status",
	"created_count", "updated_count", "unchanged_count", "failed_count",
	"production_record_id", "production_overwrite", "error_message", "created_at",
}

func newMockRepo(t *testing.T) (*SubmissionRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return NewSubmissionRepository(gdb), mock
}

func strRef(v string) *string { return &v }

func TestSubmissionCreateWritesItems(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	session := uuid.New()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dispatch_submission (")).
		WithArgs(session, "u-1", sqlmock.AnyArg(), "SHIFT_1", "S1", "PARTIAL", 1, 0, 0, 1, "P1", false, nil).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).AddRow(
			id.String(), session.String(), "u-1", day, "SHIFT_1", "S1", "PARTIAL", 1, 0, 0, 1, "P1", false, nil, day,
		))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dispatch_submission_item")).
		WithArgs(id, 1, "H1", "HA-20240301-001", "T1", "O1", "CREATED", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dispatch_submission_item")).
		WithArgs(id, 2, nil, nil, "T2", "O2", "FAILED", "truck busy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := repo.Create(context.Background(), model.Submission{
		SessionID:          session,
		UserID:             "u-1",
		RecordDate:         day,
		Shift:              model.Shift1,
		MiningSiteID:       "S1",
		Status:             model.SubmissionPartial,
		CreatedCount:       1,
		FailedCount:        1,
		ProductionRecordID: strRef("P1"),
		Items: []model.SubmissionItem{
			{Position: 1, HaulingActivityID: strRef("H1"), ActivityNumber: strRef("HA-20240301-001"), TruckID: "T1", OperatorID: "O1", Action: model.ItemCreated},
			{Position: 2, TruckID: "T2", OperatorID: "O2", Action: model.ItemFailed, Message: strRef("truck busy")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)
	assert.Equal(t, model.SubmissionPartial, saved.Status)
	require.Len(t, saved.Items, 2)
	assert.Equal(t, id, saved.Items[1].SubmissionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionCreateRollsBackOnItemFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dispatch_submission (")).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).AddRow(
			id.String(), uuid.NewString(), "u-1", day, "SHIFT_1", "S1", "SUCCEEDED", 1, 0, 0, 0, nil, false, nil, day,
		))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dispatch_submission_item")).
		WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), model.Submission{
		UserID: "u-1",
		Items:  []model.SubmissionItem{{Position: 1, TruckID: "T1", OperatorID: "O1", Action: model.ItemCreated}},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionGet(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM dispatch_submission\n\t\tWHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).AddRow(
			id.String(), uuid.NewString(), "u-1", day, "SHIFT_2", "S1", "SUCCEEDED", 2, 0, 0, 0, "P1", true, nil, day,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM dispatch_submission_item")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"submission_id", "position", "hauling_activity_id", "activity_number", "truck_id", "operator_id", "action", "message"}).
			AddRow(id.String(), 1, "H1", "HA-1", "T1", "O1", "CREATED", nil).
			AddRow(id.String(), 2, "H2", "HA-2", "T2", "O2", "CREATED", nil))

	sub, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.Shift2, sub.Shift)
	assert.True(t, sub.ProductionOverwrite)
	require.NotNil(t, sub.ProductionRecordID)
	assert.Equal(t, "P1", *sub.ProductionRecordID)
	require.Len(t, sub.Items, 2)
	assert.Equal(t, "T2", sub.Items[1].TruckID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM dispatch_submission")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	_, err := repo.Get(context.Background(), id)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionListFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	status := model.SubmissionFailed

	mock.ExpectQuery(regexp.QuoteMeta("AND mining_site_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs("S1", "FAILED", maxListLimit).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	rows, err := repo.List(context.Background(), SubmissionFilter{MiningSiteID: " S1 ", Status: &status, Limit: 10000})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
