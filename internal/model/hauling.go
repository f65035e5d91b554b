package model

import "time"

type HaulingStatus string

const (
	HaulingPlanned   HaulingStatus = "PLANNED"
	HaulingInQueue   HaulingStatus = "IN_QUEUE"
	HaulingLoading   HaulingStatus = "LOADING"
	HaulingHauling   HaulingStatus = "HAULING"
	HaulingDumping   HaulingStatus = "DUMPING"
	HaulingReturning HaulingStatus = "RETURNING"
	HaulingCompleted HaulingStatus = "COMPLETED"
	HaulingDelayed   HaulingStatus = "DELAYED"
	HaulingCancelled HaulingStatus = "CANCELLED"
	HaulingIncident  HaulingStatus = "INCIDENT"
)

var haulingStatuses = map[HaulingStatus]struct{}{
	HaulingPlanned:   {},
	HaulingInQueue:   {},
	HaulingLoading:   {},
	HaulingHauling:   {},
	HaulingDumping:   {},
	HaulingReturning: {},
	HaulingCompleted: {},
	HaulingDelayed:   {},
	HaulingCancelled: {},
	HaulingIncident:  {},
}

func (s HaulingStatus) Valid() bool {
	_, ok := haulingStatuses[s]
	return ok
}

// InProgress reports whether an activity in this status holds its truck and operators.
func (s HaulingStatus) InProgress() bool {
	switch s {
	case HaulingLoading, HaulingHauling, HaulingDumping, HaulingInQueue:
		return true
	default:
		return false
	}
}

type HaulingActivity struct {
	ID                  string        `json:"id"`
	ActivityNumber      string        `json:"activityNumber"`
	TruckID             string        `json:"truckId"`
	ExcavatorID         string        `json:"excavatorId,omitempty"`
	OperatorID          string        `json:"operatorId"`
	ExcavatorOperatorID string        `json:"excavatorOperatorId,omitempty"`
	LoadingPointID      string        `json:"loadingPointId"`
	DumpingPointID      string        `json:"dumpingPointId"`
	RoadSegmentID       string        `json:"roadSegmentId,omitempty"`
	Shift               Shift         `json:"shift"`
	Status              HaulingStatus `json:"status"`
	LoadWeight          *float64      `json:"loadWeight"`
	TargetWeight        float64       `json:"targetWeight"`
	Distance            float64       `json:"distance"`
	FuelConsumed        *float64      `json:"fuelConsumed"`
	TotalCycleTime      *float64      `json:"totalCycleTime,omitempty"`
	LoadingStartTime    *time.Time    `json:"loadingStartTime,omitempty"`
	DumpingEndTime      *time.Time    `json:"dumpingEndTime,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
}

func (a HaulingActivity) IsAchieved() bool {
	return a.Status == HaulingCompleted && a.LoadWeight != nil && *a.LoadWeight >= a.TargetWeight
}

// HaulingInput is the request body for creating or fully updating an activity.
// Nil pointers are left out of the request.
type HaulingInput struct {
	ActivityNumber      string         `json:"activityNumber,omitempty"`
	TruckID             *string        `json:"truckId,omitempty"`
	ExcavatorID         *string        `json:"excavatorId,omitempty"`
	OperatorID          *string        `json:"operatorId,omitempty"`
	ExcavatorOperatorID *string        `json:"excavatorOperatorId,omitempty"`
	LoadingPointID      *string        `json:"loadingPointId,omitempty"`
	DumpingPointID      *string        `json:"dumpingPointId,omitempty"`
	RoadSegmentID       *string        `json:"roadSegmentId,omitempty"`
	Shift               Shift          `json:"shift,omitempty"`
	TargetWeight        *float64       `json:"targetWeight,omitempty"`
	LoadWeight          *float64       `json:"loadWeight,omitempty"`
	Distance            *float64       `json:"distance,omitempty"`
	Status              *HaulingStatus `json:"status,omitempty"`
}

// Empty reports whether the input would change nothing.
func (in HaulingInput) Empty() bool {
	return in.TruckID == nil && in.ExcavatorID == nil && in.OperatorID == nil &&
		in.ExcavatorOperatorID == nil && in.LoadingPointID == nil && in.DumpingPointID == nil &&
		in.RoadSegmentID == nil && in.Shift == "" && in.TargetWeight == nil &&
		in.LoadWeight == nil && in.Distance == nil && in.Status == nil && in.ActivityNumber == ""
}

// QuickUpdate only carries the two fields operators change from the field.
type QuickUpdate struct {
	LoadWeight *float64       `json:"loadWeight,omitempty"`
	Status     *HaulingStatus `json:"status,omitempty"`
}

type AchievementQuery struct {
	HaulingActivityIDs []string `json:"haulingActivityIds,omitempty"`
	TruckIDs           []string `json:"truckIds,omitempty"`
	ExcavatorIDs       []string `json:"excavatorIds,omitempty"`
	StartDate          string   `json:"startDate,omitempty"`
	EndDate            string   `json:"endDate,omitempty"`
	TargetProduction   float64  `json:"targetProduction,omitempty"`
}

type Achievement struct {
	Achievement        float64 `json:"achievement"`
	CompletedCount     int     `json:"completedCount"`
	TotalCount         int     `json:"totalCount"`
	TotalLoadWeight    float64 `json:"totalLoadWeight"`
	TotalTargetWeight  float64 `json:"totalTargetWeight"`
	LoadWeightProgress float64 `json:"loadWeightProgress"`
}
