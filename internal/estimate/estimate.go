// Package estimate holds the haul-cycle arithmetic used when the backend does not
// report a figure itself.
package estimate

import (
	"math"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const (
	ShiftMinutes = 480.0
	// LoadFactor inflates fuel burn for a loaded truck.
	LoadFactor = 1.3
	// DumpRateFactor approximates dump speed relative to the excavator's loading rate.
	DumpRateFactor = 0.8
	DefaultSpeed   = 30.0
)

var weatherSpeed = map[model.WeatherCondition]float64{
	model.WeatherCerah:       1.0,
	model.WeatherBerawan:     0.95,
	model.WeatherHujanRingan: 0.85,
	model.WeatherHujanSedang: 0.75,
	model.WeatherHujanLebat:  0.6,
	model.WeatherKabut:       0.8,
	model.WeatherBadai:       0.5,
}

var roadSpeed = map[model.RoadCondition]float64{
	model.RoadExcellent: 1.0,
	model.RoadGood:      0.95,
	model.RoadFair:      0.85,
	model.RoadPoor:      0.7,
	model.RoadCritical:  0.5,
}

var riskFuel = map[model.RiskLevel]float64{
	model.RiskLow:      1.0,
	model.RiskMedium:   1.15,
	model.RiskHigh:     1.3,
	model.RiskCritical: 1.5,
}

func WeatherSpeedFactor(w model.WeatherCondition) float64 {
	return factor(weatherSpeed, w)
}

func RoadFactor(r model.RoadCondition) float64 {
	return factor(roadSpeed, r)
}

func FuelRiskFactor(r model.RiskLevel) float64 {
	return factor(riskFuel, r)
}

func factor[K comparable](table map[K]float64, key K) float64 {
	if f, ok := table[key]; ok {
		return f
	}
	return 1.0
}

// LoadingTime returns minutes to fill a truck of capacity tons at rate tons per minute.
func LoadingTime(capacity, rate float64) float64 {
	if capacity <= 0 || rate <= 0 {
		return 0
	}
	capacityKg := capacity * 1000
	kgPerSecond := rate * 1000 / 60
	return capacityKg / kgPerSecond / 60
}

// TravelTime returns minutes to cover distance km at speed km/h.
func TravelTime(distance, speed float64) float64 {
	if distance <= 0 || speed <= 0 {
		return 0
	}
	return distance / speed * 60
}

type Cycle struct {
	TruckCapacity float64
	LoadingRate   float64
	Distance      float64
	Speed         float64
	Weather       model.WeatherCondition
	Road          model.RoadCondition
}

// CycleTime is load, haul, dump and return in minutes.
func CycleTime(c Cycle) float64 {
	speed := c.Speed
	if speed <= 0 {
		speed = DefaultSpeed
	}
	adjusted := speed * WeatherSpeedFactor(c.Weather) * RoadFactor(c.Road)
	load := LoadingTime(c.TruckCapacity, c.LoadingRate)
	dump := LoadingTime(c.TruckCapacity, c.LoadingRate*DumpRateFactor)
	travel := TravelTime(c.Distance, adjusted)
	return load + travel + dump + travel
}

func TripsRequired(target, capacity float64) int {
	if target <= 0 || capacity <= 0 {
		return 0
	}
	return int(math.Ceil(target / capacity))
}

// TotalDistance counts both legs of every trip.
func TotalDistance(trips int, distance float64) float64 {
	return float64(trips) * distance * 2
}

func FuelConsumption(totalDistance, rate float64, risk model.RiskLevel) float64 {
	return totalDistance * rate * FuelRiskFactor(risk) * LoadFactor
}

// Utilization is the share of available truck-minutes in one shift consumed by cycles, capped at 100.
func Utilization(totalCycleMinutes float64, trucks int) float64 {
	if trucks <= 0 || totalCycleMinutes <= 0 {
		return 0
	}
	return math.Min(totalCycleMinutes/(ShiftMinutes*float64(trucks))*100, 100)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
