package model

import "time"

type AllocationSource string

const (
	AllocationManual       AllocationSource = "manual"
	AllocationManualEdit   AllocationSource = "manual_edit"
	AllocationAIApplied    AllocationSource = "ai_hauling_applied"
	AllocationAISimulation AllocationSource = "ai_simulation"
)

type EquipmentAllocation struct {
	TruckIDs           []string         `json:"truck_ids"`
	ExcavatorIDs       []string         `json:"excavator_ids"`
	OperatorIDs        []string         `json:"operator_ids"`
	TruckCount         int              `json:"truck_count"`
	ExcavatorCount     int              `json:"excavator_count"`
	HaulingActivityIDs []string         `json:"hauling_activity_ids"`
	CreatedFrom        AllocationSource `json:"created_from,omitempty"`
}

type ProductionRecord struct {
	ID                  string               `json:"id,omitempty"`
	RecordDate          string               `json:"recordDate"`
	Shift               Shift                `json:"shift"`
	MiningSiteID        string               `json:"miningSiteId"`
	TargetProduction    float64              `json:"targetProduction"`
	ActualProduction    float64              `json:"actualProduction"`
	TotalTrips          int                  `json:"totalTrips"`
	TotalDistance       float64              `json:"totalDistance"`
	TotalFuel           float64              `json:"totalFuel,omitempty"`
	AvgCycleTime        float64              `json:"avgCycleTime,omitempty"`
	TrucksOperating     int                  `json:"trucksOperating"`
	ExcavatorsOperating int                  `json:"excavatorsOperating"`
	UtilizationRate     float64              `json:"utilizationRate,omitempty"`
	Remarks             string               `json:"remarks,omitempty"`
	EquipmentAllocation *EquipmentAllocation `json:"equipmentAllocation,omitempty"`
}

// RecordDay formats a calendar day the way the backend keys production records.
func RecordDay(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format("2006-01-02T15:04:05.000Z")
}

type ProductionQuery struct {
	Date         string
	Shift        Shift
	MiningSiteID string
}
