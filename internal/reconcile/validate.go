package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

var (
	ErrInvalidBatch      = errors.New("invalid hauling batch")
	ErrEmptyBatch        = errors.New("add at least one hauling before saving")
	ErrSiteRequired      = errors.New("mining site is required")
	ErrShiftRequired     = errors.New("shift is required")
	ErrNothingPersisted  = errors.New("no hauling activity was saved")
	ErrProductionFailed  = errors.New("production record could not be saved")
	ErrSequenceExhausted = errors.New("activity number sequence exhausted for the day")
)

// Problem is one validation finding, tied to the 1-based position of the item.
type Problem struct {
	Position int    `json:"position"`
	Message  string `json:"message"`
}

type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidBatch, strings.Join(lines, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidBatch
}

// Snapshot is the backend state a submission is checked against. It is read once
// before the batch starts and not refreshed per item.
type Snapshot struct {
	Catalog      model.Catalog
	InProgress   []model.HaulingActivity
	KnownNumbers []string
}

// Validate checks every item in list order and reports all findings at once.
// Trucks and people reserved by earlier items count against later ones, and a person
// reserved in one role cannot be reused in the other.
func Validate(d draft.Draft, snap Snapshot) error {
	if len(d.Items) == 0 {
		return ErrEmptyBatch
	}
	if d.Header.MiningSiteID == "" {
		return ErrSiteRequired
	}
	if d.Header.Shift == "" {
		return ErrShiftRequired
	}

	busy := fleet.Assignments(snap.InProgress, editedActivities(d)...)
	reservedTrucks := make(map[string]bool)
	reservedPeople := make(map[string]bool)
	var problems []Problem

	for i, item := range d.Items {
		pos := i + 1
		add := func(format string, args ...any) {
			problems = append(problems, Problem{
				Position: pos,
				Message:  fmt.Sprintf("Hauling %d: ", pos) + fmt.Sprintf(format, args...),
			})
		}

		if item.TruckID == "" {
			add("Truck is required")
		}
		if item.TruckOperatorID == "" {
			add("Operator is required")
		}
		if item.LoadingPointID == "" {
			add("Loading point is required")
		}
		if item.DumpingPointID == "" {
			add("Dumping point is required")
		}
		excavatorOperator := ""
		if item.ExcavatorID != "" {
			excavatorOperator = item.ExcavatorOperatorID
			if excavatorOperator == "" {
				add("Excavator Operator is required when an excavator is assigned")
			}
		}
		if excavatorOperator != "" && excavatorOperator == item.TruckOperatorID {
			add("Operator and Excavator Operator must be different people")
		}

		if item.TruckID != "" {
			if a, ok := busy.Truck(item.TruckID); ok {
				add("Truck %s is active in hauling %s", truckLabel(snap.Catalog, item.TruckID), a.Label())
			} else if reservedTrucks[item.TruckID] {
				add("Truck is duplicated in this batch")
			}
			reservedTrucks[item.TruckID] = true
		}

		checkPerson := func(id, role string) {
			if id == "" {
				return
			}
			if a, ok := busy.Operator(id); ok {
				add("%s %s is active in hauling %s (%s)", role, operatorLabel(snap.Catalog, id), a.Label(), a.RoleLabel())
			} else if reservedPeople[id] {
				add("%s is duplicated in this batch", role)
			}
		}
		checkPerson(item.TruckOperatorID, "Operator")
		if excavatorOperator != item.TruckOperatorID {
			checkPerson(excavatorOperator, "Excavator Operator")
		}
		if item.TruckOperatorID != "" {
			reservedPeople[item.TruckOperatorID] = true
		}
		if excavatorOperator != "" {
			reservedPeople[excavatorOperator] = true
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// editedActivities are the saved activities the batch itself carries; they must not
// conflict with themselves.
func editedActivities(d draft.Draft) []string {
	var ids []string
	for _, item := range d.Items {
		if item.IsExisting && item.ActivityID != "" {
			ids = append(ids, item.ActivityID)
		}
	}
	return ids
}

func truckLabel(catalog model.Catalog, id string) string {
	if t, ok := catalog.Truck(id); ok && t.Code != "" {
		return t.Code
	}
	return id
}

func operatorLabel(catalog model.Catalog, id string) string {
	if o, ok := catalog.Operator(id); ok {
		return o.DisplayName()
	}
	return id
}
