// Package draft models one production batch under construction as a plain value.
// Every transition returns a new Draft and never mutates its receiver, so a draft
// can be stored, replayed and compared freely.
package draft

import (
	"errors"
	"time"

	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

var (
	ErrSiteRequired     = errors.New("select a mining site before adding hauling")
	ErrNoLoadingPoint   = errors.New("no active loading point for this site")
	ErrNoDumpingPoint   = errors.New("no active dumping point for this site")
	ErrNoOperators      = errors.New("no operators available")
	ErrItemNotFound     = errors.New("hauling item not found")
	ErrLastExistingItem = errors.New("the only saved hauling of this record cannot be removed")
	ErrUnknownField     = errors.New("unknown hauling field")
	ErrInvalidValue     = errors.New("invalid field value")
)

type Defaults struct {
	TargetWeight float64 `json:"targetWeight"`
	Distance     float64 `json:"distance"`
}

// Header is the batch-level part of the form.
type Header struct {
	MiningSiteID     string                 `json:"miningSiteId"`
	Shift            model.Shift            `json:"shift"`
	RecordDate       time.Time              `json:"recordDate"`
	TotalTarget      float64                `json:"totalTarget"`
	ActualProduction float64                `json:"actualProduction"`
	ActualEntered    bool                   `json:"actualEntered,omitempty"`
	Remarks          string                 `json:"remarks,omitempty"`
	HaulDistance     float64                `json:"haulDistance,omitempty"`
	RoadCondition    model.RoadCondition    `json:"roadCondition,omitempty"`
	RiskLevel        model.RiskLevel        `json:"riskLevel,omitempty"`
	Weather          model.WeatherCondition `json:"weather,omitempty"`

	// ProductionID is set when the batch edits an already saved production record.
	ProductionID string                 `json:"productionId,omitempty"`
	Source       model.AllocationSource `json:"source"`
}

func (h Header) EditMode() bool {
	return h.ProductionID != ""
}

// Fields are the persisted attributes of a hauling item.
type Fields struct {
	TruckID             string              `json:"truckId"`
	ExcavatorID         string              `json:"excavatorId,omitempty"`
	TruckOperatorID     string              `json:"truckOperatorId"`
	ExcavatorOperatorID string              `json:"excavatorOperatorId,omitempty"`
	LoadingPointID      string              `json:"loadingPointId"`
	DumpingPointID      string              `json:"dumpingPointId"`
	RoadSegmentID       string              `json:"roadSegmentId,omitempty"`
	LoadWeight          *float64            `json:"loadWeight"`
	TargetWeight        float64             `json:"targetWeight"`
	Distance            float64             `json:"distance"`
	Status              model.HaulingStatus `json:"status"`
}

type Item struct {
	TempID         string `json:"tempId"`
	IsExisting     bool   `json:"isExisting"`
	ActivityID     string `json:"activityId,omitempty"`
	ActivityNumber string `json:"activityNumber,omitempty"`
	Fields

	TruckCode             string  `json:"truckCode,omitempty"`
	TruckCapacity         float64 `json:"truckCapacity,omitempty"`
	ExcavatorCode         string  `json:"excavatorCode,omitempty"`
	ExcavatorModel        string  `json:"excavatorModel,omitempty"`
	OperatorName          string  `json:"operatorName,omitempty"`
	ExcavatorOperatorName string  `json:"excavatorOperatorName,omitempty"`
	LoadingPointName      string  `json:"loadingPointName,omitempty"`
	DumpingPointName      string  `json:"dumpingPointName,omitempty"`
	RoadSegmentName       string  `json:"roadSegmentName,omitempty"`

	// Baseline is what the backend last confirmed for an existing item.
	Baseline *Fields `json:"baseline,omitempty"`
}

type Draft struct {
	Header   Header   `json:"header"`
	Items    []Item   `json:"items"`
	Defaults Defaults `json:"defaults"`
}

type EffectKind string

const (
	EffectQuickUpdate EffectKind = "quick_update"
	EffectDelete      EffectKind = "delete"
)

// Effect is a backend call a transition asks its caller to perform.
type Effect struct {
	Kind        EffectKind        `json:"kind"`
	TempID      string            `json:"tempId"`
	ActivityID  string            `json:"activityId"`
	QuickUpdate model.QuickUpdate `json:"quickUpdate,omitempty"`
}

// Env is the read-only context transitions pick defaults from.
type Env struct {
	Catalog model.Catalog
	Busy    fleet.Busy
}

func New(header Header, defaults Defaults) Draft {
	if defaults.TargetWeight <= 0 {
		defaults.TargetWeight = 30
	}
	if defaults.Distance <= 0 {
		defaults.Distance = 3
	}
	if header.Source == "" {
		header.Source = model.AllocationManual
	}
	if header.EditMode() && header.Source == model.AllocationManual {
		header.Source = model.AllocationManualEdit
	}
	return Draft{Header: header, Items: []Item{}, Defaults: defaults}
}

// Reset drops every item and header value, keeping only the defaults.
func (d Draft) Reset() Draft {
	return New(Header{}, d.Defaults)
}

func (d Draft) clone() Draft {
	items := make([]Item, len(d.Items))
	copy(items, d.Items)
	d.Items = items
	return d
}

func (d Draft) Item(tempID string) (Item, bool) {
	if i := d.index(tempID); i >= 0 {
		return d.Items[i], true
	}
	return Item{}, false
}

func (d Draft) index(tempID string) int {
	for i, item := range d.Items {
		if item.TempID == tempID {
			return i
		}
	}
	return -1
}

func (d Draft) NewItems() []Item {
	var out []Item
	for _, item := range d.Items {
		if !item.IsExisting {
			out = append(out, item)
		}
	}
	return out
}

// TotalTargetWeight sums item targets.
func (d Draft) TotalTargetWeight() float64 {
	total := 0.0
	for _, item := range d.Items {
		total += item.TargetWeight
	}
	return total
}

// SetShift changes the form shift. Existing picks are kept; eligibility is re-evaluated on the next add.
func (d Draft) SetShift(shift model.Shift) Draft {
	d = d.clone()
	d.Header.Shift = shift
	return d
}

func (d Draft) SetRecordDate(date time.Time) Draft {
	d = d.clone()
	d.Header.RecordDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return d
}

func (d Draft) SetRemarks(remarks string) Draft {
	d = d.clone()
	d.Header.Remarks = remarks
	return d
}

func (d Draft) SetActualProduction(value float64) Draft {
	d = d.clone()
	d.Header.ActualProduction = value
	d.Header.ActualEntered = value > 0
	return d
}

// SetTotalTarget sets the batch target and spreads it over the new items.
func (d Draft) SetTotalTarget(total float64) Draft {
	d = d.clone()
	d.Header.TotalTarget = total
	return d.redistribute()
}

// SelectSite switches the batch to a site, refreshes the derived haul context and
// moves new items onto the site's locations when their current ones do not belong to it.
func (d Draft) SelectSite(catalog model.Catalog, siteID string) Draft {
	d = d.clone()
	site := fleet.SiteLocations(catalog, siteID)
	d.Header.MiningSiteID = siteID
	d.Header.HaulDistance = site.AverageDistance
	d.Header.RoadCondition = site.RoadCondition
	d.Header.RiskLevel = site.RiskLevel
	d.Header.Weather = site.Weather

	for i, item := range d.Items {
		if item.IsExisting {
			continue
		}
		if !containsLoadingPoint(site.LoadingPoints, item.LoadingPointID) && len(site.LoadingPoints) > 0 {
			item.LoadingPointID = site.LoadingPoints[0].ID
			item.LoadingPointName = site.LoadingPoints[0].Name
		}
		if !containsDumpingPoint(site.DumpingPoints, item.DumpingPointID) && len(site.DumpingPoints) > 0 {
			item.DumpingPointID = site.DumpingPoints[0].ID
			item.DumpingPointName = site.DumpingPoints[0].Name
		}
		if !containsRoad(site.RoadSegments, item.RoadSegmentID) {
			item.RoadSegmentID = ""
			item.RoadSegmentName = ""
			if len(site.RoadSegments) > 0 {
				item.RoadSegmentID = site.RoadSegments[0].ID
				item.RoadSegmentName = site.RoadSegments[0].Name
			}
		}
		item.Distance = d.distanceFor(catalog, item.RoadSegmentID)
		d.Items[i] = item
	}
	return d
}

// redistribute spreads the batch target evenly over new items. Existing items keep the
// target they were saved with. Without a batch target nothing changes.
func (d Draft) redistribute() Draft {
	if d.Header.TotalTarget <= 0 {
		return d
	}
	count := 0
	for _, item := range d.Items {
		if !item.IsExisting {
			count++
		}
	}
	if count == 0 {
		return d
	}
	share := d.Header.TotalTarget / float64(count)
	for i := range d.Items {
		if !d.Items[i].IsExisting {
			d.Items[i].TargetWeight = share
		}
	}
	return d
}

func (d Draft) distanceFor(catalog model.Catalog, roadID string) float64 {
	if road, ok := catalog.RoadSegment(roadID); ok && road.Distance > 0 {
		return road.Distance
	}
	if d.Header.HaulDistance > 0 {
		return d.Header.HaulDistance
	}
	return d.Defaults.Distance
}

func containsLoadingPoint(points []model.LoadingPoint, id string) bool {
	for _, p := range points {
		if p.ID == id {
			return true
		}
	}
	return false
}

func containsDumpingPoint(points []model.DumpingPoint, id string) bool {
	for _, p := range points {
		if p.ID == id {
			return true
		}
	}
	return false
}

func containsRoad(roads []model.RoadSegment, id string) bool {
	for _, r := range roads {
		if r.ID == id {
			return true
		}
	}
	return false
}
