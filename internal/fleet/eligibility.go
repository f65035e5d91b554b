// Package fleet decides which trucks, excavators and operators a dispatcher may
// assign to a new hauling item.
package fleet

import "github.com/nurpe/minefleet-dispatch/internal/model"

// Selection is what the item being edited already points at. Selected units are
// always kept in their pool so an edit never silently drops them.
type Selection struct {
	TruckID             string
	ExcavatorID         string
	TruckOperatorID     string
	ExcavatorOperatorID string
}

type Input struct {
	Catalog  model.Catalog
	Busy     Busy
	Shift    model.Shift
	Selected Selection
}

// Fallback records how far operator filtering had to relax to find candidates.
type Fallback string

const (
	FallbackNone     Fallback = ""
	FallbackAnyShift Fallback = "any_shift"
	FallbackAnyRole  Fallback = "any_active"
)

type Pools struct {
	Trucks                    []model.Truck
	Excavators                []model.Excavator
	TruckOperators            []model.Operator
	ExcavatorOperators        []model.Operator
	TruckOperatorFallback     Fallback
	ExcavatorOperatorFallback Fallback
}

// Filter computes the four candidate pools for one item. It has no side effects.
func Filter(in Input) Pools {
	var pools Pools

	for _, t := range in.Catalog.Trucks {
		if t.ID == in.Selected.TruckID && t.ID != "" {
			pools.Trucks = append(pools.Trucks, t)
			continue
		}
		if !TruckEligible(t) {
			continue
		}
		if _, busy := in.Busy.Truck(t.ID); busy {
			continue
		}
		pools.Trucks = append(pools.Trucks, t)
	}

	for _, e := range in.Catalog.Excavators {
		if (e.ID == in.Selected.ExcavatorID && e.ID != "") || ExcavatorEligible(e) {
			pools.Excavators = append(pools.Excavators, e)
		}
	}

	pools.TruckOperators, pools.TruckOperatorFallback = operatorPool(in, model.Operator.CanDriveTruck, in.Selected.TruckOperatorID)
	pools.ExcavatorOperators, pools.ExcavatorOperatorFallback = operatorPool(in, model.Operator.CanOperateExcavator, in.Selected.ExcavatorOperatorID)
	return pools
}

func TruckEligible(t model.Truck) bool {
	return t.IsActive && t.Status == model.EquipmentStandby
}

func ExcavatorEligible(e model.Excavator) bool {
	if !e.IsActive {
		return false
	}
	switch e.Status {
	case model.EquipmentStandby, model.EquipmentActive, model.EquipmentIdle:
		return true
	default:
		return false
	}
}

func ShiftCompatible(o model.Operator, shift model.Shift) bool {
	return o.Shift == "" || shift == "" || o.Shift == shift
}

// operatorPool relaxes the shift constraint first and the license constraint
// second when a stricter pass finds nobody. Busy operators are never offered.
func operatorPool(in Input, licensed func(model.Operator) bool, selectedID string) ([]model.Operator, Fallback) {
	passes := []struct {
		fallback Fallback
		accept   func(model.Operator) bool
	}{
		{FallbackNone, func(o model.Operator) bool { return licensed(o) && ShiftCompatible(o, in.Shift) }},
		{FallbackAnyShift, licensed},
		{FallbackAnyRole, func(model.Operator) bool { return true }},
	}

	for _, pass := range passes {
		pool := make([]model.Operator, 0)
		found := false
		for _, o := range in.Catalog.Operators {
			if o.ID == selectedID && o.ID != "" {
				pool = append(pool, o)
				continue
			}
			if o.Status != model.OperatorActive || !pass.accept(o) {
				continue
			}
			if _, busy := in.Busy.Operator(o.ID); busy {
				continue
			}
			pool = append(pool, o)
			found = true
		}
		if found {
			return pool, pass.fallback
		}
	}

	var pool []model.Operator
	for _, o := range in.Catalog.Operators {
		if o.ID == selectedID && o.ID != "" {
			pool = append(pool, o)
		}
	}
	return pool, FallbackNone
}
