package fleet

import (
	"strings"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type Role string

const (
	RoleTruck             Role = "Truck"
	RoleOperator          Role = "Operator"
	RoleExcavatorOperator Role = "Excavator Operator"
)

// Assignment names the in-progress activity that currently holds a truck or operator.
type Assignment struct {
	ActivityID     string
	ActivityNumber string
	Roles          []Role
}

// Label is the activity reference shown to dispatchers: its number, or its id if unnumbered.
func (a Assignment) Label() string {
	if a.ActivityNumber != "" {
		return a.ActivityNumber
	}
	return a.ActivityID
}

func (a Assignment) RoleLabel() string {
	parts := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, " & ")
}

// Busy indexes the trucks and operators bound to in-progress activities.
type Busy struct {
	Trucks    map[string]Assignment
	Operators map[string]Assignment
}

func (b Busy) Truck(id string) (Assignment, bool) {
	if id == "" {
		return Assignment{}, false
	}
	a, ok := b.Trucks[id]
	return a, ok
}

func (b Busy) Operator(id string) (Assignment, bool) {
	if id == "" {
		return Assignment{}, false
	}
	a, ok := b.Operators[id]
	return a, ok
}

// Assignments builds the busy index from activities, ignoring any whose id is in exclude
// and any whose status does not hold resources.
func Assignments(activities []model.HaulingActivity, exclude ...string) Busy {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	busy := Busy{
		Trucks:    make(map[string]Assignment),
		Operators: make(map[string]Assignment),
	}
	for _, a := range activities {
		if !a.Status.InProgress() {
			continue
		}
		if _, ok := skip[a.ID]; ok {
			continue
		}
		mark(busy.Trucks, a.TruckID, a, RoleTruck)
		mark(busy.Operators, a.OperatorID, a, RoleOperator)
		mark(busy.Operators, a.ExcavatorOperatorID, a, RoleExcavatorOperator)
	}
	return busy
}

func mark(index map[string]Assignment, id string, activity model.HaulingActivity, role Role) {
	if id == "" {
		return
	}
	existing, ok := index[id]
	if !ok {
		index[id] = Assignment{
			ActivityID:     activity.ID,
			ActivityNumber: activity.ActivityNumber,
			Roles:          []Role{role},
		}
		return
	}
	for _, r := range existing.Roles {
		if r == role {
			return
		}
	}
	existing.Roles = append(existing.Roles, role)
	index[id] = existing
}
