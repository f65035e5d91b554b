package model

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionSucceeded SubmissionStatus = "SUCCEEDED"
	SubmissionPartial   SubmissionStatus = "PARTIAL"
	SubmissionFailed    SubmissionStatus = "FAILED"
)

type ItemAction string

const (
	ItemCreated   ItemAction = "CREATED"
	ItemUpdated   ItemAction = "UPDATED"
	ItemUnchanged ItemAction = "UNCHANGED"
	ItemFailed    ItemAction = "FAILED"
)

// Submission is the local audit row written for every reconcile run.
type Submission struct {
	ID                  uuid.UUID
	SessionID           uuid.UUID
	UserID              string
	RecordDate          time.Time
	Shift               Shift
	MiningSiteID        string
	Status              SubmissionStatus
	CreatedCount        int
	UpdatedCount        int
	UnchangedCount      int
	FailedCount         int
	ProductionRecordID  *string
	ProductionOverwrite bool
	ErrorMessage        *string
	CreatedAt           time.Time
	Items               []SubmissionItem `gorm:"-"`
}

type SubmissionItem struct {
	SubmissionID      uuid.UUID
	Position          int
	HaulingActivityID *string
	ActivityNumber    *string
	TruckID           string
	OperatorID        string
	Action            ItemAction
	Message           *string
}

// SubmissionReport is a submission with display labels resolved for export.
type SubmissionReport struct {
	Submission Submission
	SiteName   string
	Trucks     map[string]string
	Operators  map[string]string
}

func (r SubmissionReport) TruckLabel(id string) string {
	if label, ok := r.Trucks[id]; ok && label != "" {
		return label
	}
	return id
}

func (r SubmissionReport) OperatorLabel(id string) string {
	if label, ok := r.Operators[id]; ok && label != "" {
		return label
	}
	return id
}
