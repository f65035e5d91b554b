package draft

import (
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type usage struct {
	trucks       map[string]bool
	excavators   map[string]bool
	truckOps     map[string]bool
	excavatorOps map[string]bool
}

// usage collects what the batch already holds, ignoring the item with tempID skip.
func (d Draft) usage(skip string) usage {
	u := usage{
		trucks:       make(map[string]bool),
		excavators:   make(map[string]bool),
		truckOps:     make(map[string]bool),
		excavatorOps: make(map[string]bool),
	}
	for _, item := range d.Items {
		if item.TempID == skip {
			continue
		}
		mark(u.trucks, item.TruckID)
		mark(u.excavators, item.ExcavatorID)
		mark(u.truckOps, item.TruckOperatorID)
		if item.ExcavatorID != "" {
			mark(u.excavatorOps, item.ExcavatorOperatorID)
		}
	}
	return u
}

func (u usage) operator(id string) bool {
	return u.truckOps[id] || u.excavatorOps[id]
}

func mark(set map[string]bool, id string) {
	if id != "" {
		set[id] = true
	}
}

// pick prefers the first candidate outside used and otherwise rotates through the pool.
func pick[T any](pool []T, id func(T) string, used map[string]bool, n int) (T, bool) {
	var zero T
	if len(pool) == 0 {
		return zero, false
	}
	for _, candidate := range pool {
		if !used[id(candidate)] {
			return candidate, true
		}
	}
	return pool[n%len(pool)], true
}

func truckID(t model.Truck) string         { return t.ID }
func excavatorID(e model.Excavator) string { return e.ID }

func pickTruckOperator(pool []model.Operator, u usage, n int) (model.Operator, bool) {
	if len(pool) == 0 {
		return model.Operator{}, false
	}
	for _, o := range pool {
		if !u.operator(o.ID) {
			return o, true
		}
	}
	for _, o := range pool {
		if !u.truckOps[o.ID] {
			return o, true
		}
	}
	return pool[n%len(pool)], true
}

// pickExcavatorOperator never returns the item's own truck operator.
func pickExcavatorOperator(pool []model.Operator, u usage, truckOperatorID string) (model.Operator, bool) {
	for _, o := range pool {
		if o.ID != truckOperatorID && !u.operator(o.ID) {
			return o, true
		}
	}
	for _, o := range pool {
		if o.ID != truckOperatorID && !u.excavatorOps[o.ID] {
			return o, true
		}
	}
	return model.Operator{}, false
}
