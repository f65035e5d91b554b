package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const pathAI = "/ai"

type FinancialParams struct {
	FuelPrice            float64 `json:"fuelPrice,omitempty"`
	CoalPrice            float64 `json:"coalPrice,omitempty"`
	OperatorSalary       float64 `json:"operatorSalary,omitempty"`
	TruckMaintenance     float64 `json:"truckMaintenance,omitempty"`
	ExcavatorMaintenance float64 `json:"excavatorMaintenance,omitempty"`
	DemurragePerDay      float64 `json:"demurragePerDay,omitempty"`
}

type RecommendationRequest struct {
	WeatherCondition      model.WeatherCondition `json:"weatherCondition,omitempty"`
	RoadCondition         model.RoadCondition    `json:"roadCondition,omitempty"`
	Shift                 model.Shift            `json:"shift,omitempty"`
	TargetRoadID          string                 `json:"targetRoadId,omitempty"`
	TargetExcavatorID     string                 `json:"targetExcavatorId,omitempty"`
	TargetScheduleID      string                 `json:"targetScheduleId,omitempty"`
	MinTrucks             int                    `json:"minTrucks,omitempty"`
	MaxTrucks             int                    `json:"maxTrucks,omitempty"`
	MinExcavators         int                    `json:"minExcavators,omitempty"`
	MaxExcavators         int                    `json:"maxExcavators,omitempty"`
	FinancialParams       *FinancialParams       `json:"financialParams,omitempty"`
	TotalProductionTarget float64                `json:"totalProductionTarget,omitempty"`
}

// Recommendations returns the AI service payload untouched; decoding the
// strategy shape belongs to the caller.
func (c *Client) Recommendations(ctx context.Context, req RecommendationRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{
		client: c.aiHTTP,
		method: http.MethodPost,
		path:   pathAI + "/recommendations",
		body:   req,
		out:    &raw,
	})
	if err != nil {
		return nil, fmt.Errorf("ai recommendations: %w", err)
	}
	return raw, nil
}

type AIHealth struct {
	Status    string    `json:"status"`
	Service   string    `json:"service,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (h AIHealth) Online() bool {
	return h.Status == "online"
}

// AIHealth never fails: an unreachable backend or AI service reads as offline.
func (c *Client) AIHealth(ctx context.Context) AIHealth {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var health AIHealth
	if err := c.get(ctx, pathAI+"/health", nil, &health); err != nil {
		return AIHealth{Status: "offline", Error: err.Error(), Timestamp: time.Now().UTC()}
	}
	if health.Status == "" {
		health.Status = "offline"
	}
	return health
}

type WeatherReading struct {
	Condition   string    `json:"condition"`
	Temperature float64   `json:"temperature"`
	Rainfall    float64   `json:"rainfall"`
	WindSpeed   float64   `json:"windSpeed,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type OperationalSummary struct {
	ActiveHauling       int     `json:"activeHauling"`
	AvailableTrucks     int     `json:"availableTrucks"`
	AvailableExcavators int     `json:"availableExcavators"`
	TotalTrucks         int     `json:"totalTrucks"`
	TotalExcavators     int     `json:"totalExcavators"`
	RecentIncidents     int     `json:"recentIncidents"`
	TodayProduction     float64 `json:"todayProduction"`
}

type RealtimeConditions struct {
	Weather     WeatherReading     `json:"weather"`
	Operational OperationalSummary `json:"operational"`
	Timestamp   time.Time          `json:"timestamp"`
}

func (c *Client) RealtimeConditions(ctx context.Context) (*RealtimeConditions, error) {
	var conditions RealtimeConditions
	if err := c.get(ctx, pathAI+"/realtime-conditions", nil, &conditions); err != nil {
		return nil, fmt.Errorf("realtime conditions: %w", err)
	}
	return &conditions, nil
}

type ApplyAction string

const (
	ApplyCreate ApplyAction = "create"
	ApplyUpdate ApplyAction = "update"
)

type ApplyRequest struct {
	Action            ApplyAction     `json:"action"`
	ExistingHaulingID string          `json:"existingHaulingId,omitempty"`
	Recommendation    json.RawMessage `json:"recommendation,omitempty"`
	TruckIDs          []string        `json:"truckIds"`
	ExcavatorIDs      []string        `json:"excavatorIds"`
	OperatorIDs       []string        `json:"operatorIds"`
	LoadingPointID    string          `json:"loadingPointId,omitempty"`
	DumpingPointID    string          `json:"dumpingPointId,omitempty"`
	RoadSegmentID     string          `json:"roadSegmentId,omitempty"`
	Shift             model.Shift     `json:"shift,omitempty"`
	LoadWeight        float64         `json:"loadWeight,omitempty"`
	TargetWeight      float64         `json:"targetWeight,omitempty"`
	Distance          float64         `json:"distance,omitempty"`
}

type ApplyResult struct {
	Action      ApplyAction             `json:"action"`
	ActivityIDs []string                `json:"activityIds"`
	Activities  []model.HaulingActivity `json:"activities,omitempty"`
	Message     string                  `json:"message,omitempty"`
}

// ApplyHaulingRecommendation asks the backend to turn a strategy into hauling
// activities. Activity ids are taken from activityIds when present and from
// the returned activities otherwise.
func (c *Client) ApplyHaulingRecommendation(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	var result ApplyResult
	env, err := c.do(ctx, call{
		client: c.aiHTTP,
		method: http.MethodPost,
		path:   pathAI + "/apply-hauling-recommendation",
		body:   req,
		out:    &result,
	})
	if err != nil {
		return nil, fmt.Errorf("apply hauling recommendation: %w", err)
	}
	if result.Action == "" {
		result.Action = req.Action
	}
	if len(result.ActivityIDs) == 0 {
		for _, a := range result.Activities {
			if a.ID != "" {
				result.ActivityIDs = append(result.ActivityIDs, a.ID)
			}
		}
	}
	if result.Message == "" {
		result.Message = env.Message
	}
	return &result, nil
}

type ChatRequest struct {
	Question string                 `json:"question"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

func (c *Client) Chatbot(ctx context.Context, req ChatRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	_, err := c.do(ctx, call{
		client: c.aiHTTP,
		method: http.MethodPost,
		path:   pathAI + "/chatbot",
		body:   req,
		out:    &raw,
	})
	if err != nil {
		return nil, fmt.Errorf("ai chatbot: %w", err)
	}
	return raw, nil
}
