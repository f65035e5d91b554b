package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type SubmissionFilter struct {
	UserID       string
	MiningSiteID string
	Shift        model.Shift
	Status       *model.SubmissionStatus
	From         *time.Time
	To           *time.Time
	Limit        int
}

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `
	id,
	session_id,
	user_id,
	record_date,
	shift,
	mining_site_id,
	status,
	created_count,
	updated_count,
	unchanged_count,
	failed_count,
	production_record_id,
	production_overwrite,
	error_message,
	created_at`

// Create stores the submission and all of its item rows in one transaction.
func (r *SubmissionRepository) Create(ctx context.Context, sub model.Submission) (*model.Submission, error) {
	var saved model.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			INSERT INTO dispatch_submission (
				session_id,
				user_id,
				record_date,
				shift,
				mining_site_id,
				status,
				created_count,
				updated_count,
				unchanged_count,
				failed_count,
				production_record_id,
				production_overwrite,
				error_message
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING`+submissionColumns,
			sub.SessionID,
			sub.UserID,
			sub.RecordDate,
			sub.Shift,
			sub.MiningSiteID,
			sub.Status,
			sub.CreatedCount,
			sub.UpdatedCount,
			sub.UnchangedCount,
			sub.FailedCount,
			sub.ProductionRecordID,
			sub.ProductionOverwrite,
			sub.ErrorMessage,
		).Scan(&saved).Error
		if err != nil {
			return err
		}
		if saved.ID == uuid.Nil {
			return fmt.Errorf("insert dispatch_submission returned no row")
		}

		for _, item := range sub.Items {
			if err := tx.Exec(`
				INSERT INTO dispatch_submission_item (
					submission_id,
					position,
					hauling_activity_id,
					activity_number,
					truck_id,
					operator_id,
					action,
					message
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				saved.ID,
				item.Position,
				item.HaulingActivityID,
				item.ActivityNumber,
				item.TruckID,
				item.OperatorID,
				item.Action,
				item.Message,
			).Error; err != nil {
				return err
			}
			item.SubmissionID = saved.ID
			saved.Items = append(saved.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *SubmissionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	if err := r.db.WithContext(ctx).Raw(`
		SELECT`+submissionColumns+`
		FROM dispatch_submission
		WHERE id = ?
	`, id).Scan(&sub).Error; err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	var items []model.SubmissionItem
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			submission_id,
			position,
			hauling_activity_id,
			activity_number,
			truck_id,
			operator_id,
			action,
			message
		FROM dispatch_submission_item
		WHERE submission_id = ?
		ORDER BY position
	`, id).Scan(&items).Error; err != nil {
		return nil, err
	}
	sub.Items = items
	return &sub, nil
}

// List returns submissions newest first, without their items.
func (r *SubmissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	query := `
		SELECT` + submissionColumns + `
		FROM dispatch_submission
		WHERE 1 = 1`
	args := []interface{}{}

	query, args = appendFilter(query, args, "user_id", filter.UserID)
	query, args = appendFilter(query, args, "mining_site_id", filter.MiningSiteID)
	query, args = appendFilter(query, args, "shift", string(filter.Shift))
	if filter.Status != nil {
		query, args = appendFilter(query, args, "status", string(*filter.Status))
	}
	if filter.From != nil {
		query += " AND record_date >= ?"
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += " AND record_date <= ?"
		args = append(args, *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []model.Submission
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func appendFilter(query string, args []interface{}, column, value string) (string, []interface{}) {
	value = strings.TrimSpace(value)
	if value == "" {
		return query, args
	}
	return query + fmt.Sprintf(" AND %s = ?", column), append(args, value)
}
