package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/estimate"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

// BuildProduction aggregates the linked outcomes into the production record body.
// Fuel and cycle time come from the backend when it reported them and are estimated otherwise.
func BuildProduction(d draft.Draft, outcomes []Outcome, catalog model.Catalog) model.ProductionRecord {
	header := d.Header
	day := header.RecordDate
	if day.IsZero() {
		day = time.Now()
	}

	record := model.ProductionRecord{
		ID:           header.ProductionID,
		RecordDate:   model.RecordDay(day),
		Shift:        header.Shift,
		MiningSiteID: header.MiningSiteID,
	}

	trucks := newDistinct()
	excavators := newDistinct()
	operators := newDistinct()
	var ids []string
	var totalCycle, targetSum, loadSum float64
	cycles := 0

	for _, o := range outcomes {
		if !o.Linked() {
			continue
		}
		item := o.item
		ids = append(ids, o.ActivityID)
		trucks.add(item.TruckID)
		excavators.add(item.ExcavatorID)
		operators.add(item.TruckOperatorID)
		if item.ExcavatorID != "" {
			operators.add(item.ExcavatorOperatorID)
		}

		record.TotalTrips++
		record.TotalDistance += item.Distance * 2
		targetSum += item.TargetWeight
		load := item.LoadWeight
		if o.activity != nil && o.activity.LoadWeight != nil {
			load = o.activity.LoadWeight
		}
		if load != nil {
			loadSum += *load
		}

		truck, _ := catalog.Truck(item.TruckID)
		if o.activity != nil && o.activity.FuelConsumed != nil {
			record.TotalFuel += *o.activity.FuelConsumed
		} else if truck.FuelConsumption > 0 {
			record.TotalFuel += estimate.FuelConsumption(item.Distance*2, truck.FuelConsumption, header.RiskLevel)
		}

		cycle := 0.0
		if o.activity != nil && o.activity.TotalCycleTime != nil {
			cycle = *o.activity.TotalCycleTime
		} else {
			capacity := item.TruckCapacity
			if capacity <= 0 {
				capacity = truck.Capacity
			}
			exc, _ := catalog.Excavator(item.ExcavatorID)
			cycle = estimate.CycleTime(estimate.Cycle{
				TruckCapacity: capacity,
				LoadingRate:   exc.ProductionRate,
				Distance:      item.Distance,
				Speed:         truck.AverageSpeed,
				Weather:       header.Weather,
				Road:          header.RoadCondition,
			})
		}
		if cycle > 0 {
			totalCycle += cycle
			cycles++
		}
	}

	record.TotalDistance = estimate.Round2(record.TotalDistance)
	record.TotalFuel = estimate.Round2(record.TotalFuel)
	if cycles > 0 {
		record.AvgCycleTime = estimate.Round2(totalCycle / float64(cycles))
	}
	record.UtilizationRate = estimate.Round2(estimate.Utilization(totalCycle, trucks.len()))

	record.TargetProduction = header.TotalTarget
	if record.TargetProduction <= 0 {
		record.TargetProduction = estimate.Round2(targetSum)
	}
	// A value the dispatcher typed wins; otherwise the linked load weights decide and the
	// opened record's value only survives when nothing has been loaded yet.
	switch {
	case header.ActualEntered && header.ActualProduction > 0:
		record.ActualProduction = header.ActualProduction
	case loadSum > 0:
		record.ActualProduction = estimate.Round2(loadSum)
	default:
		record.ActualProduction = header.ActualProduction
	}

	record.TrucksOperating = trucks.len()
	record.ExcavatorsOperating = excavators.len()
	record.EquipmentAllocation = &model.EquipmentAllocation{
		TruckIDs:           trucks.values,
		ExcavatorIDs:       excavators.values,
		OperatorIDs:        operators.values,
		TruckCount:         trucks.len(),
		ExcavatorCount:     excavators.len(),
		HaulingActivityIDs: ids,
		CreatedFrom:        header.Source,
	}

	record.Remarks = header.Remarks
	if record.Remarks == "" && !header.EditMode() && header.Source == model.AllocationManual {
		record.Remarks = manualRemarks(ids)
	}
	return record
}

func manualRemarks(ids []string) string {
	shown := ids
	suffix := ""
	if len(ids) > 3 {
		shown = ids[:3]
		suffix = "..."
	}
	return fmt.Sprintf("Manual hauling: %d trips | IDs: %s%s", len(ids), strings.Join(shown, ", "), suffix)
}

type distinct struct {
	seen   map[string]struct{}
	values []string
}

func newDistinct() *distinct {
	return &distinct{seen: make(map[string]struct{}), values: []string{}}
}

func (d *distinct) add(v string) {
	if v == "" {
		return
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.values = append(d.values, v)
}

func (d *distinct) len() int {
	return len(d.values)
}
