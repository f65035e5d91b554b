package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type Field string

const (
	FieldTruck             Field = "truckId"
	FieldExcavator         Field = "excavatorId"
	FieldOperator          Field = "operatorId"
	FieldTruckOperator     Field = "truckOperatorId"
	FieldExcavatorOperator Field = "excavatorOperatorId"
	FieldLoadingPoint      Field = "loadingPointId"
	FieldDumpingPoint      Field = "dumpingPointId"
	FieldRoadSegment       Field = "roadSegmentId"
	FieldLoadWeight        Field = "loadWeight"
	FieldTargetWeight      Field = "targetWeight"
	FieldDistance          Field = "distance"
	FieldStatus            Field = "status"
)

// AddItem appends a new item with defaults picked from the eligible pools.
func (d Draft) AddItem(env Env) (Draft, Item, error) {
	if d.Header.MiningSiteID == "" {
		return d, Item{}, ErrSiteRequired
	}
	site := fleet.SiteLocations(env.Catalog, d.Header.MiningSiteID)
	if len(site.LoadingPoints) == 0 {
		return d, Item{}, ErrNoLoadingPoint
	}
	if len(site.DumpingPoints) == 0 {
		return d, Item{}, ErrNoDumpingPoint
	}
	if len(env.Catalog.Operators) == 0 {
		return d, Item{}, ErrNoOperators
	}

	d = d.clone()
	n := len(d.Items)
	used := d.usage("")
	pools := fleet.Filter(fleet.Input{Catalog: env.Catalog, Busy: env.Busy, Shift: d.Header.Shift})

	item := Item{
		TempID: uuid.NewString(),
		Fields: Fields{
			TargetWeight: d.Defaults.TargetWeight,
			Status:       model.HaulingLoading,
		},
	}

	if truck, ok := pick(pools.Trucks, truckID, used.trucks, n); ok {
		item.setTruck(truck)
	}
	if exc, ok := pick(pools.Excavators, excavatorID, used.excavators, n); ok {
		item.setExcavator(exc)
	}
	if op, ok := pickTruckOperator(pools.TruckOperators, used, n); ok {
		item.TruckOperatorID = op.ID
		item.OperatorName = op.DisplayName()
	}
	if item.ExcavatorID != "" {
		if op, ok := pickExcavatorOperator(pools.ExcavatorOperators, used, item.TruckOperatorID); ok {
			item.ExcavatorOperatorID = op.ID
			item.ExcavatorOperatorName = op.DisplayName()
		}
	}

	lp := site.LoadingPoints[n%len(site.LoadingPoints)]
	item.LoadingPointID, item.LoadingPointName = lp.ID, lp.Name
	dp := site.DumpingPoints[n%len(site.DumpingPoints)]
	item.DumpingPointID, item.DumpingPointName = dp.ID, dp.Name
	if len(site.RoadSegments) > 0 {
		road := site.RoadSegments[n%len(site.RoadSegments)]
		item.RoadSegmentID, item.RoadSegmentName = road.ID, road.Name
	}
	item.Distance = d.distanceFor(env.Catalog, item.RoadSegmentID)

	d.Items = append(d.Items, item)
	d = d.redistribute()
	added, _ := d.Item(item.TempID)
	return d, added, nil
}

// AddExisting attaches a saved activity to the batch. Attaching the same activity twice is a no-op.
func (d Draft) AddExisting(env Env, activity model.HaulingActivity) (Draft, Item, error) {
	for _, item := range d.Items {
		if item.IsExisting && item.ActivityID == activity.ID {
			return d, item, nil
		}
	}

	if d.Header.MiningSiteID == "" {
		if lp, ok := env.Catalog.LoadingPoint(activity.LoadingPointID); ok && lp.MiningSiteID != "" {
			d = d.SelectSite(env.Catalog, lp.MiningSiteID)
		}
	}

	d = d.clone()
	target := activity.TargetWeight
	if target <= 0 {
		target = d.Defaults.TargetWeight
	}
	distance := activity.Distance
	if distance <= 0 {
		distance = d.distanceFor(env.Catalog, activity.RoadSegmentID)
	}
	status := activity.Status
	if status == "" {
		status = model.HaulingLoading
	}

	fields := Fields{
		TruckID:             activity.TruckID,
		ExcavatorID:         activity.ExcavatorID,
		TruckOperatorID:     activity.OperatorID,
		ExcavatorOperatorID: activity.ExcavatorOperatorID,
		LoadingPointID:      activity.LoadingPointID,
		DumpingPointID:      activity.DumpingPointID,
		RoadSegmentID:       activity.RoadSegmentID,
		LoadWeight:          copyFloat(activity.LoadWeight),
		TargetWeight:        target,
		Distance:            distance,
		Status:              status,
	}
	baseline := fields
	baseline.LoadWeight = copyFloat(activity.LoadWeight)

	item := Item{
		TempID:         activity.ID,
		IsExisting:     true,
		ActivityID:     activity.ID,
		ActivityNumber: activity.ActivityNumber,
		Fields:         fields,
		Baseline:       &baseline,
	}
	item.refreshNames(env.Catalog)

	d.Items = append(d.Items, item)
	d = d.redistribute()
	added, _ := d.Item(item.TempID)
	return d, added, nil
}

// UpdateItem sets one field and refreshes what depends on it. Setting a load weight at or
// above the target completes the item. For a saved item a change of load weight or status
// yields a quick-update effect; repeating the same value yields none.
func (d Draft) UpdateItem(env Env, tempID string, field Field, value string) (Draft, []Effect, error) {
	i := d.index(tempID)
	if i < 0 {
		return d, nil, ErrItemNotFound
	}
	before := d.Items[i]
	item := before
	value = strings.TrimSpace(value)

	switch field {
	case FieldTruck:
		truck, _ := env.Catalog.Truck(value)
		truck.ID = value
		item.setTruck(truck)
	case FieldExcavator:
		if value == "" {
			item.ExcavatorID, item.ExcavatorCode, item.ExcavatorModel = "", "", ""
			item.ExcavatorOperatorID, item.ExcavatorOperatorName = "", ""
			break
		}
		exc, _ := env.Catalog.Excavator(value)
		exc.ID = value
		item.setExcavator(exc)
		if item.ExcavatorOperatorID == "" {
			used := d.usage(tempID)
			pools := fleet.Filter(fleet.Input{Catalog: env.Catalog, Busy: env.Busy, Shift: d.Header.Shift})
			if op, ok := pickExcavatorOperator(pools.ExcavatorOperators, used, item.TruckOperatorID); ok {
				item.ExcavatorOperatorID = op.ID
				item.ExcavatorOperatorName = op.DisplayName()
			}
		}
	case FieldOperator, FieldTruckOperator:
		item.TruckOperatorID = value
		item.OperatorName = operatorName(env.Catalog, value)
	case FieldExcavatorOperator:
		item.ExcavatorOperatorID = value
		item.ExcavatorOperatorName = operatorName(env.Catalog, value)
	case FieldLoadingPoint:
		item.LoadingPointID = value
		lp, _ := env.Catalog.LoadingPoint(value)
		item.LoadingPointName = lp.Name
	case FieldDumpingPoint:
		item.DumpingPointID = value
		dp, _ := env.Catalog.DumpingPoint(value)
		item.DumpingPointName = dp.Name
	case FieldRoadSegment:
		item.RoadSegmentID = value
		road, ok := env.Catalog.RoadSegment(value)
		item.RoadSegmentName = road.Name
		if ok && road.Distance > 0 {
			item.Distance = road.Distance
		}
	case FieldLoadWeight:
		weight, err := parseOptionalWeight(value)
		if err != nil {
			return d, nil, err
		}
		item.LoadWeight = weight
		if weight != nil && *weight >= item.effectiveTarget(d.Defaults) {
			item.Status = model.HaulingCompleted
		}
	case FieldTargetWeight:
		weight, err := parseWeight(value)
		if err != nil {
			return d, nil, err
		}
		item.TargetWeight = weight
	case FieldDistance:
		distance, err := parseWeight(value)
		if err != nil {
			return d, nil, err
		}
		item.Distance = distance
	case FieldStatus:
		status := model.HaulingStatus(strings.ToUpper(value))
		if !status.Valid() {
			return d, nil, fmt.Errorf("%w: status %q", ErrInvalidValue, value)
		}
		item.Status = status
	default:
		return d, nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	d = d.clone()
	d.Items[i] = item

	var effects []Effect
	if item.IsExisting && (field == FieldLoadWeight || field == FieldStatus) {
		if qu, changed := quickUpdate(before, item); changed {
			effects = append(effects, Effect{
				Kind:        EffectQuickUpdate,
				TempID:      item.TempID,
				ActivityID:  item.ActivityID,
				QuickUpdate: qu,
			})
		}
	}
	return d, effects, nil
}

// RemoveItem drops a new item for free. A saved item is kept until ConfirmRemoved
// is called after the returned delete effect has succeeded.
func (d Draft) RemoveItem(tempID string) (Draft, []Effect, error) {
	i := d.index(tempID)
	if i < 0 {
		return d, nil, ErrItemNotFound
	}
	item := d.Items[i]
	if !item.IsExisting {
		return d.ConfirmRemoved(tempID), nil, nil
	}

	if d.Header.EditMode() && d.existingCount() <= 1 {
		return d, nil, ErrLastExistingItem
	}
	return d, []Effect{{Kind: EffectDelete, TempID: item.TempID, ActivityID: item.ActivityID}}, nil
}

// ConfirmRemoved drops the item and spreads the batch target over what is left.
func (d Draft) ConfirmRemoved(tempID string) Draft {
	i := d.index(tempID)
	if i < 0 {
		return d
	}
	items := make([]Item, 0, len(d.Items)-1)
	items = append(items, d.Items[:i]...)
	items = append(items, d.Items[i+1:]...)
	d.Items = items
	return d.redistribute()
}

// MarkSynced records that the backend accepted a quick update for the item. The
// backend recomputes the record's actual production from the new load, so a typed
// actual value stops taking precedence.
func (d Draft) MarkSynced(tempID string, qu model.QuickUpdate) Draft {
	i := d.index(tempID)
	if i < 0 || d.Items[i].Baseline == nil {
		return d
	}
	d = d.clone()
	d.Header.ActualEntered = false
	baseline := *d.Items[i].Baseline
	if qu.LoadWeight != nil {
		baseline.LoadWeight = copyFloat(qu.LoadWeight)
	}
	if qu.Status != nil {
		baseline.Status = *qu.Status
	}
	d.Items[i].Baseline = &baseline
	return d
}

// MarkPersisted turns a new item into a saved one once the backend has created it.
// The baseline takes load and status from what the backend returned, so a value the
// backend did not store is sent again on the next submission.
func (d Draft) MarkPersisted(tempID string, activity model.HaulingActivity) Draft {
	i := d.index(tempID)
	if i < 0 {
		return d
	}
	d = d.clone()
	item := d.Items[i]
	item.IsExisting = true
	item.ActivityID = activity.ID
	item.ActivityNumber = activity.ActivityNumber
	baseline := item.Fields
	baseline.LoadWeight = copyFloat(activity.LoadWeight)
	baseline.Status = activity.Status
	if baseline.Status == "" {
		baseline.Status = model.HaulingLoading
	}
	item.Baseline = &baseline
	d.Items[i] = item
	return d
}

func (d Draft) existingCount() int {
	count := 0
	for _, item := range d.Items {
		if item.IsExisting {
			count++
		}
	}
	return count
}

func (it *Item) setTruck(truck model.Truck) {
	it.TruckID = truck.ID
	it.TruckCode = truck.Code
	it.TruckCapacity = truck.Capacity
}

func (it *Item) setExcavator(exc model.Excavator) {
	it.ExcavatorID = exc.ID
	it.ExcavatorCode = exc.Code
	it.ExcavatorModel = exc.Model
}

func (it *Item) refreshNames(catalog model.Catalog) {
	if truck, ok := catalog.Truck(it.TruckID); ok {
		it.setTruck(truck)
	}
	if exc, ok := catalog.Excavator(it.ExcavatorID); ok {
		it.setExcavator(exc)
	}
	it.OperatorName = operatorName(catalog, it.TruckOperatorID)
	it.ExcavatorOperatorName = operatorName(catalog, it.ExcavatorOperatorID)
	if lp, ok := catalog.LoadingPoint(it.LoadingPointID); ok {
		it.LoadingPointName = lp.Name
	}
	if dp, ok := catalog.DumpingPoint(it.DumpingPointID); ok {
		it.DumpingPointName = dp.Name
	}
	if road, ok := catalog.RoadSegment(it.RoadSegmentID); ok {
		it.RoadSegmentName = road.Name
	}
}

func (it Item) effectiveTarget(defaults Defaults) float64 {
	if it.TargetWeight > 0 {
		return it.TargetWeight
	}
	return defaults.TargetWeight
}

func quickUpdate(before, after Item) (model.QuickUpdate, bool) {
	var qu model.QuickUpdate
	changed := false
	if !sameFloat(before.LoadWeight, after.LoadWeight) && after.LoadWeight != nil {
		qu.LoadWeight = copyFloat(after.LoadWeight)
		changed = true
	}
	if before.Status != after.Status {
		status := after.Status
		qu.Status = &status
		changed = true
	}
	return qu, changed
}

func operatorName(catalog model.Catalog, id string) string {
	if id == "" {
		return ""
	}
	if op, ok := catalog.Operator(id); ok {
		return op.DisplayName()
	}
	return ""
}

func parseWeight(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return v, nil
}

func parseOptionalWeight(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := parseWeight(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
