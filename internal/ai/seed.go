package ai

import (
	"fmt"
	"strings"

	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

// Seed is what a strategy contributes to a new production draft.
type Seed struct {
	Rank        int
	Header      draft.Header
	Items       int
	Excavators  int
	Allocations []HaulingAllocation
}

// ToDraftSeed maps a strategy onto draft header values. fallbackSite is used
// when the strategy does not name a mining site.
func ToDraftSeed(s Strategy, fallbackSite string) Seed {
	raw := s.Raw

	shift, ok := model.ParseShift(raw.Shift)
	if !ok {
		shift = model.Shift1
	}
	site := strings.TrimSpace(raw.MiningSiteID)
	if site == "" {
		site = fallbackSite
	}

	distance := raw.DistanceKm.Float()
	if distance <= 0 && raw.CompletedCycles > 0 {
		distance = raw.TotalDistanceKm.Float() / raw.CompletedCycles.Float() / 2
	}

	remarks := fmt.Sprintf("AI Strategy #%d - %s", s.Rank, s.Objective)
	if route := strings.TrimSpace(s.Instructions.HaulRoute); route != "" {
		remarks += " | Route: " + route
	}

	trucks := s.Trucks
	if trucks <= 0 {
		trucks = int(raw.TruckCount)
	}
	if n := distinctTrucks(raw.HaulingAllocations); n > 0 {
		trucks = n
	}
	excavators := s.Excavators
	if excavators <= 0 {
		excavators = int(raw.ExcavatorCount)
	}

	return Seed{
		Rank: s.Rank,
		Header: draft.Header{
			MiningSiteID:     site,
			Shift:            shift,
			TotalTarget:      raw.TotalTonnage.Float(),
			ActualProduction: raw.TotalTonnage.Float(),
			HaulDistance:     distance,
			Weather:          weatherOf(raw.WeatherCondition),
			RoadCondition:    roadOf(raw.RoadCondition),
			RiskLevel:        riskOf(raw.DelayRiskLevel),
			Remarks:          remarks,
			Source:           model.AllocationAISimulation,
		},
		Items:       trucks,
		Excavators:  excavators,
		Allocations: raw.HaulingAllocations,
	}
}

// Draft opens a draft for the seed and adds up to Items hauling items, never more
// than there are eligible trucks. Allocated trucks, excavators and operators are
// applied to the items in order when the catalog knows them.
func (seed Seed) Draft(env draft.Env, defaults draft.Defaults) (draft.Draft, error) {
	d := draft.New(draft.Header{Shift: seed.Header.Shift, Source: seed.Header.Source}, defaults)
	if seed.Header.MiningSiteID != "" {
		d = d.SelectSite(env.Catalog, seed.Header.MiningSiteID)
	}
	d = overlay(d, seed.Header)

	pools := fleet.Filter(fleet.Input{Catalog: env.Catalog, Busy: env.Busy, Shift: seed.Header.Shift})
	count := seed.Items
	if count > len(pools.Trucks) {
		count = len(pools.Trucks)
	}

	for i := 0; i < count; i++ {
		var (
			item draft.Item
			err  error
		)
		d, item, err = d.AddItem(env)
		if err != nil {
			return d, err
		}
		if i < len(seed.Allocations) {
			if d, err = applyAllocation(d, env, item.TempID, seed.Allocations[i]); err != nil {
				return d, err
			}
		}
	}
	return d.SetTotalTarget(seed.Header.TotalTarget), nil
}

func overlay(d draft.Draft, h draft.Header) draft.Draft {
	if h.HaulDistance > 0 {
		d.Header.HaulDistance = h.HaulDistance
	}
	if h.Weather != "" {
		d.Header.Weather = h.Weather
	}
	if h.RoadCondition != "" {
		d.Header.RoadCondition = h.RoadCondition
	}
	if h.RiskLevel != "" {
		d.Header.RiskLevel = h.RiskLevel
	}
	d.Header.ActualProduction = h.ActualProduction
	d.Header.Remarks = h.Remarks
	return d
}

func applyAllocation(d draft.Draft, env draft.Env, tempID string, a HaulingAllocation) (draft.Draft, error) {
	set := func(field draft.Field, id string, known bool) error {
		if id == "" || !known {
			return nil
		}
		var err error
		d, _, err = d.UpdateItem(env, tempID, field, id)
		return err
	}
	_, truckKnown := env.Catalog.Truck(a.TruckID)
	_, truckBusy := env.Busy.Truck(a.TruckID)
	if err := set(draft.FieldTruck, a.TruckID, truckKnown && !truckBusy); err != nil {
		return d, err
	}
	_, excKnown := env.Catalog.Excavator(a.ExcavatorID)
	if err := set(draft.FieldExcavator, a.ExcavatorID, excKnown); err != nil {
		return d, err
	}
	_, opKnown := env.Catalog.Operator(a.OperatorID)
	_, opBusy := env.Busy.Operator(a.OperatorID)
	if err := set(draft.FieldTruckOperator, a.OperatorID, opKnown && !opBusy); err != nil {
		return d, err
	}
	_, lpKnown := env.Catalog.LoadingPoint(a.LoadingPointID)
	if err := set(draft.FieldLoadingPoint, a.LoadingPointID, lpKnown); err != nil {
		return d, err
	}
	_, dpKnown := env.Catalog.DumpingPoint(a.DumpingPointID)
	if err := set(draft.FieldDumpingPoint, a.DumpingPointID, dpKnown); err != nil {
		return d, err
	}
	_, roadKnown := env.Catalog.RoadSegment(a.RoadSegmentID)
	return d, set(draft.FieldRoadSegment, a.RoadSegmentID, roadKnown)
}

func distinctTrucks(allocs []HaulingAllocation) int {
	seen := make(map[string]struct{}, len(allocs))
	for _, a := range allocs {
		if a.TruckID != "" {
			seen[a.TruckID] = struct{}{}
		}
	}
	return len(seen)
}

func weatherOf(raw string) model.WeatherCondition {
	switch w := model.WeatherCondition(strings.ToUpper(strings.TrimSpace(raw))); w {
	case model.WeatherCerah, model.WeatherBerawan, model.WeatherHujanRingan, model.WeatherHujanSedang,
		model.WeatherHujanLebat, model.WeatherKabut, model.WeatherBadai:
		return w
	default:
		return ""
	}
}

func roadOf(raw string) model.RoadCondition {
	switch r := model.RoadCondition(strings.ToUpper(strings.TrimSpace(raw))); r {
	case model.RoadExcellent, model.RoadGood, model.RoadFair, model.RoadPoor, model.RoadCritical:
		return r
	default:
		return ""
	}
}

func riskOf(raw string) model.RiskLevel {
	switch r := model.RiskLevel(strings.ToUpper(strings.TrimSpace(raw))); r {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
		return r
	default:
		return ""
	}
}
