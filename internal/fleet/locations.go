package fleet

import "github.com/nurpe/minefleet-dispatch/internal/model"

// SiteContext is what selecting a mining site scopes and auto-fills.
type SiteContext struct {
	SiteID          string
	LoadingPoints   []model.LoadingPoint
	DumpingPoints   []model.DumpingPoint
	RoadSegments    []model.RoadSegment
	AverageDistance float64
	RoadCondition   model.RoadCondition
	RiskLevel       model.RiskLevel
	Weather         model.WeatherCondition
}

var riskByRoad = map[model.RoadCondition]model.RiskLevel{
	model.RoadExcellent: model.RiskLow,
	model.RoadGood:      model.RiskLow,
	model.RoadFair:      model.RiskMedium,
	model.RoadPoor:      model.RiskHigh,
	model.RoadCritical:  model.RiskCritical,
}

var weatherByRisk = map[model.RiskLevel]model.WeatherCondition{
	model.RiskLow:      model.WeatherCerah,
	model.RiskMedium:   model.WeatherBerawan,
	model.RiskHigh:     model.WeatherHujanRingan,
	model.RiskCritical: model.WeatherHujanSedang,
}

func RiskForRoad(cond model.RoadCondition) model.RiskLevel {
	if risk, ok := riskByRoad[cond]; ok {
		return risk
	}
	return model.RiskLow
}

// SiteLocations returns the active locations of a site and the derived haul context.
// A site without road segments gets GOOD road, LOW risk and clear weather.
func SiteLocations(catalog model.Catalog, siteID string) SiteContext {
	ctx := SiteContext{
		SiteID:        siteID,
		RoadCondition: model.RoadGood,
		RiskLevel:     model.RiskLow,
		Weather:       model.WeatherCerah,
	}
	if siteID == "" {
		return ctx
	}

	for _, lp := range catalog.LoadingPoints {
		if lp.MiningSiteID == siteID && lp.IsActive {
			ctx.LoadingPoints = append(ctx.LoadingPoints, lp)
		}
	}
	for _, dp := range catalog.DumpingPoints {
		if dp.MiningSiteID == siteID && dp.IsActive {
			ctx.DumpingPoints = append(ctx.DumpingPoints, dp)
		}
	}
	for _, rs := range catalog.RoadSegments {
		if rs.MiningSiteID == siteID && rs.IsActive {
			ctx.RoadSegments = append(ctx.RoadSegments, rs)
		}
	}

	if len(ctx.RoadSegments) == 0 {
		return ctx
	}

	total := 0.0
	counts := make(map[model.RoadCondition]int)
	var order []model.RoadCondition
	for _, rs := range ctx.RoadSegments {
		total += rs.Distance
		cond := rs.RoadCondition
		if cond == "" {
			cond = model.RoadGood
		}
		if counts[cond] == 0 {
			order = append(order, cond)
		}
		counts[cond]++
	}
	ctx.AverageDistance = total / float64(len(ctx.RoadSegments))

	dominant := order[0]
	for _, cond := range order[1:] {
		if counts[cond] > counts[dominant] {
			dominant = cond
		}
	}
	ctx.RoadCondition = dominant
	ctx.RiskLevel = RiskForRoad(dominant)
	ctx.Weather = weatherByRisk[ctx.RiskLevel]
	return ctx
}
