// Package ai decodes AI service strategies at the integration boundary, maps a
// chosen strategy onto a production draft and watches the service's health.
package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNoStrategies    = errors.New("ai service returned no strategies")
	ErrInvalidStrategy = errors.New("invalid ai strategy")
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("units", func(fl validator.FieldLevel) bool {
		_, ok := ParseUnits(fl.Field().String())
		return ok
	})
}

type Instructions struct {
	DumpTrucks       string `json:"JUMLAH_DUMP_TRUCK" validate:"required,units"`
	Excavators       string `json:"JUMLAH_EXCAVATOR" validate:"required,units"`
	HaulRoute        string `json:"JALUR_ANGKUT,omitempty"`
	LoadingEquipment string `json:"ALAT_MUAT_TARGET,omitempty"`
}

// KPI values are display strings ("Rp 1.2 M", "45 menit") and are passed through as is.
type KPI struct {
	Profit     string `json:"PROFIT,omitempty"`
	Production string `json:"PRODUKSI,omitempty"`
	FuelRatio  string `json:"FUEL_RATIO,omitempty"`
	Duration   string `json:"ESTIMASI_DURASI,omitempty"`
	QueueIdle  string `json:"IDLE_ANTRIAN,omitempty"`
}

type HaulingAllocation struct {
	TruckID             string `json:"truckId" validate:"required"`
	ExcavatorID         string `json:"excavatorId,omitempty"`
	OperatorID          string `json:"operatorId,omitempty"`
	ExcavatorOperatorID string `json:"excavatorOperatorId,omitempty"`
	LoadingPointID      string `json:"loadingPointId,omitempty"`
	DumpingPointID      string `json:"dumpingPointId,omitempty"`
	RoadSegmentID       string `json:"roadSegmentId,omitempty"`
}

type RawData struct {
	MiningSiteID       string              `json:"miningSiteId,omitempty"`
	Shift              string              `json:"shift,omitempty"`
	StrategyObjective  string              `json:"strategy_objective,omitempty"`
	WeatherCondition   string              `json:"weatherCondition,omitempty"`
	RoadCondition      string              `json:"roadCondition,omitempty"`
	DelayRiskLevel     string              `json:"delay_risk_level,omitempty"`
	TotalTonnage       Number              `json:"total_tonase"`
	TruckCount         Number              `json:"alokasi_truk"`
	ExcavatorCount     Number              `json:"jumlah_excavator"`
	CompletedCycles    Number              `json:"jumlah_siklus_selesai"`
	TotalDistanceKm    Number              `json:"total_distance_km"`
	TotalFuelLiter     Number              `json:"total_bbm_liter"`
	TotalCycleHours    Number              `json:"total_cycle_time_hours"`
	DistanceKm         Number              `json:"distance_km"`
	Financial          map[string]Number   `json:"financial_breakdown,omitempty"`
	HaulingAllocations []HaulingAllocation `json:"hauling_allocations,omitempty" validate:"dive"`
}

type option struct {
	Instructions *Instructions          `json:"INSTRUKSI_FLAT" validate:"required"`
	KPI          *KPI                   `json:"KPI_PREDIKSI"`
	Explanations map[string]interface{} `json:"EXPLANATIONS"`
	Raw          RawData                `json:"RAW_DATA"`
	ShipAnalysis string                 `json:"ANALISIS_KAPAL"`
	SafetySOP    string                 `json:"SOP_KESELAMATAN"`
}

// Strategy is one validated entry of top_3_strategies.
type Strategy struct {
	Rank         int                    `json:"rank"`
	Key          string                 `json:"key"`
	Objective    string                 `json:"objective"`
	Trucks       int                    `json:"trucks"`
	Excavators   int                    `json:"excavators"`
	Instructions Instructions           `json:"instructions"`
	KPI          KPI                    `json:"kpi"`
	Explanations map[string]interface{} `json:"explanations,omitempty"`
	Raw          RawData                `json:"raw"`
	ShipAnalysis string                 `json:"shipAnalysis,omitempty"`
	SafetySOP    string                 `json:"safetySop,omitempty"`

	// Payload is the option exactly as the AI service sent it.
	Payload json.RawMessage `json:"payload"`
}

func (s Strategy) Insight() string {
	return strings.TrimSpace(s.ShipAnalysis + " " + s.SafetySOP)
}

type Rejection struct {
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

type Recommendations struct {
	Strategies []Strategy  `json:"strategies"`
	Rejected   []Rejection `json:"rejected,omitempty"`
}

const defaultObjective = "Optimal Configuration"

// DecodeStrategies reads top_3_strategies. Entries that fail validation are left out
// and listed in Rejected; when none survive the call fails.
func DecodeStrategies(raw json.RawMessage) (*Recommendations, error) {
	var body struct {
		Top3 []map[string]json.RawMessage `json:"top_3_strategies"`
	}
	if len(raw) == 0 {
		return nil, ErrNoStrategies
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
	}
	if len(body.Top3) == 0 {
		return nil, ErrNoStrategies
	}

	recs := &Recommendations{Strategies: []Strategy{}}
	for i, entry := range body.Top3 {
		s, err := decodeEntry(i+1, entry)
		if err != nil {
			recs.Rejected = append(recs.Rejected, Rejection{Position: i + 1, Reason: err.Error()})
			continue
		}
		recs.Strategies = append(recs.Strategies, s)
	}
	if len(recs.Strategies) == 0 {
		reasons := make([]string, 0, len(recs.Rejected))
		for _, r := range recs.Rejected {
			reasons = append(reasons, fmt.Sprintf("#%d %s", r.Position, r.Reason))
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrategy, strings.Join(reasons, "; "))
	}
	return recs, nil
}

func decodeEntry(rank int, entry map[string]json.RawMessage) (Strategy, error) {
	key := optionKey(entry)
	if key == "" {
		return Strategy{}, errors.New("no OPSI_ key")
	}
	payload := entry[key]

	var opt option
	if err := json.Unmarshal(payload, &opt); err != nil {
		return Strategy{}, fmt.Errorf("%s: %v", key, err)
	}
	if err := validate.Struct(opt); err != nil {
		return Strategy{}, fmt.Errorf("%s: %s", key, describe(err))
	}

	trucks, _ := ParseUnits(opt.Instructions.DumpTrucks)
	excavators, _ := ParseUnits(opt.Instructions.Excavators)
	objective := strings.TrimSpace(opt.Raw.StrategyObjective)
	if objective == "" {
		objective = defaultObjective
	}

	s := Strategy{
		Rank:         rank,
		Key:          key,
		Objective:    objective,
		Trucks:       trucks,
		Excavators:   excavators,
		Instructions: *opt.Instructions,
		Explanations: opt.Explanations,
		Raw:          opt.Raw,
		ShipAnalysis: opt.ShipAnalysis,
		SafetySOP:    opt.SafetySOP,
		Payload:      payload,
	}
	if opt.KPI != nil {
		s.KPI = *opt.KPI
	}
	return s, nil
}

// optionKey returns the first OPSI_* key in sorted order.
func optionKey(entry map[string]json.RawMessage) string {
	keys := make([]string, 0, len(entry))
	for k, v := range entry {
		if strings.HasPrefix(k, "OPSI_") && len(v) > 0 && string(v) != "null" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
