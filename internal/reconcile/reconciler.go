// Package reconcile turns a validated batch draft into backend hauling activities
// and one production record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type HaulingWriter interface {
	CreateHauling(ctx context.Context, input model.HaulingInput) (*model.HaulingActivity, error)
	UpdateHauling(ctx context.Context, id string, input model.HaulingInput) (*model.HaulingActivity, error)
	QuickUpdateHauling(ctx context.Context, id string, update model.QuickUpdate) (*model.HaulingActivity, error)
}

type ProductionStore interface {
	ListProduction(ctx context.Context, query model.ProductionQuery) ([]model.ProductionRecord, error)
	CreateProduction(ctx context.Context, record model.ProductionRecord) (*model.ProductionRecord, error)
	UpdateProduction(ctx context.Context, id string, record model.ProductionRecord) (*model.ProductionRecord, error)
}

type Backend interface {
	HaulingWriter
	ProductionStore
}

type Outcome struct {
	Position       int              `json:"position"`
	TempID         string           `json:"tempId"`
	ActivityID     string           `json:"activityId,omitempty"`
	ActivityNumber string           `json:"activityNumber,omitempty"`
	TruckID        string           `json:"truckId"`
	OperatorID     string           `json:"operatorId"`
	Action         model.ItemAction `json:"action"`
	Message        string           `json:"message,omitempty"`

	item     draft.Item
	activity *model.HaulingActivity
}

// Linked reports whether the outcome refers to an activity that exists on the backend.
func (o Outcome) Linked() bool {
	return o.ActivityID != ""
}

// Activity is the backend's view of the item after dispatch. Fields the backend did
// not echo back are left empty.
func (o Outcome) Activity() model.HaulingActivity {
	var a model.HaulingActivity
	if o.activity != nil {
		a = *o.activity
	}
	a.ID = o.ActivityID
	if a.ActivityNumber == "" {
		a.ActivityNumber = o.ActivityNumber
	}
	return a
}

type Result struct {
	Outcomes    []Outcome               `json:"outcomes"`
	Created     int                     `json:"created"`
	Updated     int                     `json:"updated"`
	Unchanged   int                     `json:"unchanged"`
	Failed      int                     `json:"failed"`
	Warnings    []string                `json:"warnings,omitempty"`
	ActivityIDs []string                `json:"activityIds"`
	Production  *model.ProductionRecord `json:"production,omitempty"`
	Overwrote   bool                    `json:"overwrote"`
}

func (r Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Action == model.ItemFailed {
			out = append(out, o)
		}
	}
	return out
}

func (r Result) Status() model.SubmissionStatus {
	switch {
	case r.Production == nil:
		return model.SubmissionFailed
	case r.Failed > 0:
		return model.SubmissionPartial
	default:
		return model.SubmissionSucceeded
	}
}

// Summary is the end-of-submission message shown to the dispatcher.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d created, %d updated, %d unchanged, %d failed", r.Created, r.Updated, r.Unchanged, r.Failed)
	for _, f := range r.Failures() {
		fmt.Fprintf(&b, "\nHauling %d: %s", f.Position, f.Message)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\n%s", w)
	}
	return b.String()
}

type Reconciler struct {
	backend Backend
	log     zerolog.Logger
	now     func() time.Time
}

func New(backend Backend, log zerolog.Logger) *Reconciler {
	return &Reconciler{backend: backend, log: log, now: time.Now}
}

// Submit validates the draft and then dispatches one hauling call per item, strictly in
// list order and one at a time. Each call must be visible to the backend before the next
// one is issued, so the loop is never parallelised. A failing item is recorded and the
// loop moves on. The production record is written last from the items that are linked
// to a backend activity; when that write fails the partial Result is returned together
// with an error wrapping ErrProductionFailed.
func (r *Reconciler) Submit(ctx context.Context, d draft.Draft, snap Snapshot) (*Result, error) {
	if err := Validate(d, snap); err != nil {
		return nil, err
	}

	day := d.Header.RecordDate
	if day.IsZero() {
		day = r.now()
	}
	numbers := NewActivityNumbers(day, snap.KnownNumbers)

	result := &Result{ActivityIDs: []string{}}
	for i, item := range d.Items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome := r.dispatch(ctx, d.Header, item, numbers)
		outcome.Position = i + 1
		r.log.Debug().
			Int("position", outcome.Position).
			Str("action", string(outcome.Action)).
			Str("activity_id", outcome.ActivityID).
			Str("message", outcome.Message).
			Msg("hauling item dispatched")

		switch outcome.Action {
		case model.ItemCreated:
			result.Created++
			if outcome.Message != "" {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Hauling %d: %s", outcome.Position, outcome.Message))
			}
		case model.ItemUpdated:
			result.Updated++
		case model.ItemUnchanged:
			result.Unchanged++
		case model.ItemFailed:
			result.Failed++
		}
		if outcome.Linked() {
			result.ActivityIDs = append(result.ActivityIDs, outcome.ActivityID)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if len(result.ActivityIDs) == 0 {
		r.log.Warn().Int("failed", result.Failed).Msg("no hauling activity saved, production record skipped")
		return result, ErrNothingPersisted
	}

	record := BuildProduction(d, result.Outcomes, snap.Catalog)
	saved, overwrote, err := r.upsertProduction(ctx, d.Header, record)
	if err != nil {
		r.log.Error().Err(err).Msg("production record save failed")
		return result, fmt.Errorf("%w: %s", ErrProductionFailed, serverMessage(err))
	}
	result.Production = saved
	result.Overwrote = overwrote
	if overwrote {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Production record for %s %s already existed and was overwritten", record.RecordDate[:10], record.Shift))
	}

	r.log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Int("failed", result.Failed).
		Str("production_id", saved.ID).
		Msg("production batch submitted")
	return result, nil
}

func (r *Reconciler) dispatch(ctx context.Context, header draft.Header, item draft.Item, numbers *ActivityNumbers) Outcome {
	outcome := Outcome{
		TempID:         item.TempID,
		ActivityID:     item.ActivityID,
		ActivityNumber: item.ActivityNumber,
		TruckID:        item.TruckID,
		OperatorID:     item.TruckOperatorID,
		item:           item,
	}

	if item.IsExisting {
		input := diff(item)
		if input.Empty() {
			outcome.Action = model.ItemUnchanged
			return outcome
		}
		updated, err := r.backend.UpdateHauling(ctx, item.ActivityID, input)
		if err != nil {
			outcome.Action = model.ItemFailed
			outcome.Message = serverMessage(err)
			return outcome
		}
		outcome.Action = model.ItemUpdated
		outcome.activity = updated
		return outcome
	}

	number, err := numbers.Next()
	if err != nil {
		outcome.Action = model.ItemFailed
		outcome.Message = err.Error()
		return outcome
	}
	outcome.ActivityNumber = number

	created, err := r.backend.CreateHauling(ctx, createInput(header, item, number))
	if err != nil {
		outcome.Action = model.ItemFailed
		outcome.Message = serverMessage(err)
		return outcome
	}
	outcome.Action = model.ItemCreated
	outcome.ActivityID = created.ID
	if created.ActivityNumber != "" {
		outcome.ActivityNumber = created.ActivityNumber
	}
	outcome.activity = created

	// The create endpoint always stores LOADING, so load and status are applied afterwards.
	if qu, ok := followUp(item, created); ok {
		synced, err := r.backend.QuickUpdateHauling(ctx, created.ID, qu)
		if err != nil {
			outcome.Message = "created but load/status not applied: " + serverMessage(err)
			return outcome
		}
		if synced != nil {
			outcome.activity = synced
		} else {
			applied := *created
			if qu.LoadWeight != nil {
				applied.LoadWeight = qu.LoadWeight
			}
			if qu.Status != nil {
				applied.Status = *qu.Status
			}
			outcome.activity = &applied
		}
	}
	return outcome
}

func followUp(item draft.Item, created *model.HaulingActivity) (model.QuickUpdate, bool) {
	var qu model.QuickUpdate
	if item.LoadWeight != nil && (created.LoadWeight == nil || *created.LoadWeight != *item.LoadWeight) {
		v := *item.LoadWeight
		qu.LoadWeight = &v
	}
	wantsStatus := item.Status != "" && item.Status != model.HaulingLoading
	if qu.LoadWeight == nil && !wantsStatus {
		return qu, false
	}
	if item.Status != "" && item.Status != created.Status {
		v := item.Status
		qu.Status = &v
	}
	return qu, qu.LoadWeight != nil || qu.Status != nil
}

func (r *Reconciler) upsertProduction(ctx context.Context, header draft.Header, record model.ProductionRecord) (*model.ProductionRecord, bool, error) {
	if header.ProductionID != "" {
		saved, err := r.backend.UpdateProduction(ctx, header.ProductionID, record)
		return saved, false, err
	}

	existing, err := r.backend.ListProduction(ctx, model.ProductionQuery{
		Date:         record.RecordDate[:10],
		Shift:        record.Shift,
		MiningSiteID: record.MiningSiteID,
	})
	if err != nil {
		return nil, false, err
	}
	for _, rec := range existing {
		if sameRecordKey(rec, record) && rec.ID != "" {
			saved, err := r.backend.UpdateProduction(ctx, rec.ID, record)
			return saved, err == nil, err
		}
	}

	saved, err := r.backend.CreateProduction(ctx, record)
	return saved, false, err
}

func sameRecordKey(a, b model.ProductionRecord) bool {
	return len(a.RecordDate) >= 10 && len(b.RecordDate) >= 10 &&
		a.RecordDate[:10] == b.RecordDate[:10] &&
		a.Shift == b.Shift &&
		a.MiningSiteID == b.MiningSiteID
}

func createInput(header draft.Header, item draft.Item, number string) model.HaulingInput {
	target := item.TargetWeight
	distance := item.Distance
	status := item.Status
	if status == "" {
		status = model.HaulingLoading
	}
	input := model.HaulingInput{
		ActivityNumber: number,
		TruckID:        strPtr(item.TruckID),
		OperatorID:     strPtr(item.TruckOperatorID),
		LoadingPointID: strPtr(item.LoadingPointID),
		DumpingPointID: strPtr(item.DumpingPointID),
		Shift:          header.Shift,
		TargetWeight:   &target,
		Distance:       &distance,
		Status:         &status,
	}
	if item.ExcavatorID != "" {
		input.ExcavatorID = strPtr(item.ExcavatorID)
		input.ExcavatorOperatorID = strPtr(item.ExcavatorOperatorID)
	}
	if item.RoadSegmentID != "" {
		input.RoadSegmentID = strPtr(item.RoadSegmentID)
	}
	if item.LoadWeight != nil && *item.LoadWeight > 0 {
		load := *item.LoadWeight
		input.LoadWeight = &load
	}
	return input
}

// diff keeps only the fields that moved away from what the backend last confirmed.
func diff(item draft.Item) model.HaulingInput {
	var input model.HaulingInput
	base := item.Baseline
	if base == nil {
		base = &draft.Fields{}
	}
	cur := item.Fields

	changedStr := func(a, b string) *string {
		if a == b {
			return nil
		}
		return strPtr(b)
	}
	input.TruckID = changedStr(base.TruckID, cur.TruckID)
	input.OperatorID = changedStr(base.TruckOperatorID, cur.TruckOperatorID)
	input.ExcavatorID = changedStr(base.ExcavatorID, cur.ExcavatorID)
	input.ExcavatorOperatorID = changedStr(base.ExcavatorOperatorID, cur.ExcavatorOperatorID)
	input.LoadingPointID = changedStr(base.LoadingPointID, cur.LoadingPointID)
	input.DumpingPointID = changedStr(base.DumpingPointID, cur.DumpingPointID)
	input.RoadSegmentID = changedStr(base.RoadSegmentID, cur.RoadSegmentID)

	if base.TargetWeight != cur.TargetWeight {
		v := cur.TargetWeight
		input.TargetWeight = &v
	}
	if base.Distance != cur.Distance {
		v := cur.Distance
		input.Distance = &v
	}
	if cur.LoadWeight != nil && (base.LoadWeight == nil || *base.LoadWeight != *cur.LoadWeight) {
		v := *cur.LoadWeight
		input.LoadWeight = &v
	}
	if base.Status != cur.Status && cur.Status != "" {
		v := cur.Status
		input.Status = &v
	}
	return input
}

// serverMessage prefers the backend's own error text.
func serverMessage(err error) string {
	var msgErr interface{ ServerMessage() string }
	if errors.As(err, &msgErr) {
		if msg := strings.TrimSpace(msgErr.ServerMessage()); msg != "" {
			return msg
		}
	}
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return "request failed"
	}
	return err.Error()
}

func strPtr(v string) *string {
	return &v
}
