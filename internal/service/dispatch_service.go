package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/cache"
	"github.com/nurpe/minefleet-dispatch/internal/config"
	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/messaging"
	"github.com/nurpe/minefleet-dispatch/internal/model"
	"github.com/nurpe/minefleet-dispatch/internal/reconcile"
	"github.com/nurpe/minefleet-dispatch/internal/repository"
)

// Backend is the part of the mining-operations API the dispatch flow uses.
type Backend interface {
	reconcile.Backend
	LoadCatalog(ctx context.Context) (*model.Catalog, error)
	ActiveHauling(ctx context.Context) ([]model.HaulingActivity, error)
	ActivityNumbersForDay(ctx context.Context, day time.Time) ([]string, error)
	HaulingByIDs(ctx context.Context, ids []string) ([]model.HaulingActivity, error)
	DeleteHauling(ctx context.Context, id string) error
	GetProduction(ctx context.Context, id string) (*model.ProductionRecord, error)
	CalculateAchievement(ctx context.Context, query model.AchievementQuery) (*model.Achievement, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, sub model.Submission) (*model.Submission, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	List(ctx context.Context, filter repository.SubmissionFilter) ([]model.Submission, error)
}

type DispatchService struct {
	backend     Backend
	sessions    *sessionStore
	submissions SubmissionStore
	publisher   messaging.Publisher
	reconciler  *reconcile.Reconciler
	defaults    draft.Defaults
	log         zerolog.Logger
	now         func() time.Time
}

func NewDispatchService(
	api Backend,
	store cache.Store,
	submissions SubmissionStore,
	publisher messaging.Publisher,
	cfg *config.Config,
	log zerolog.Logger,
) *DispatchService {
	return &DispatchService{
		backend:     api,
		sessions:    &sessionStore{store: store, ttl: cfg.Redis.SessionTTL},
		submissions: submissions,
		publisher:   publisher,
		reconciler:  reconcile.New(api, log),
		defaults: draft.Defaults{
			TargetWeight: cfg.Dispatch.DefaultTargetWeight,
			Distance:     cfg.Dispatch.DefaultDistance,
		},
		log: log,
		now: time.Now,
	}
}

type OpenSessionInput struct {
	Principal    model.Principal
	MiningSiteID string
	Shift        model.Shift
	RecordDate   time.Time
	TotalTarget  float64
	Remarks      string
	// ProductionID opens the batch on a saved production record and attaches its activities.
	ProductionID string
}

func (s *DispatchService) OpenSession(ctx context.Context, input OpenSessionInput) (*Session, error) {
	if !input.Principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	if input.TotalTarget < 0 {
		return nil, fmt.Errorf("%w: total target must not be negative", ErrInvalidInput)
	}
	ctx = backend.WithToken(ctx, input.Principal.Token)

	header := draft.Header{
		MiningSiteID: strings.TrimSpace(input.MiningSiteID),
		Shift:        input.Shift,
		RecordDate:   input.RecordDate,
		TotalTarget:  input.TotalTarget,
		Remarks:      input.Remarks,
	}
	var existing []model.HaulingActivity
	if id := strings.TrimSpace(input.ProductionID); id != "" {
		record, err := s.backend.GetProduction(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		header = headerFromRecord(*record)
		if alloc := record.EquipmentAllocation; alloc != nil && len(alloc.HaulingActivityIDs) > 0 {
			existing, err = s.backend.HaulingByIDs(ctx, alloc.HaulingActivityIDs)
			if err != nil {
				return nil, translate(err)
			}
		}
	}

	return s.open(ctx, input.Principal, func(env draft.Env) (draft.Draft, error) {
		d := draft.New(header, s.defaults)
		if header.MiningSiteID != "" {
			if _, ok := env.Catalog.MiningSite(header.MiningSiteID); !ok {
				return d, fmt.Errorf("%w: unknown mining site %s", ErrInvalidInput, header.MiningSiteID)
			}
			d = d.SelectSite(env.Catalog, header.MiningSiteID)
		}
		for _, activity := range existing {
			var err error
			if d, _, err = d.AddExisting(env, activity); err != nil {
				return d, err
			}
		}
		if header.TotalTarget > 0 {
			d = d.SetTotalTarget(header.TotalTarget)
		}
		return d, nil
	})
}

// open loads the backend snapshot once, builds the draft against it and stores the session.
func (s *DispatchService) open(ctx context.Context, principal model.Principal, build func(env draft.Env) (draft.Draft, error)) (*Session, error) {
	catalog, err := s.backend.LoadCatalog(ctx)
	if err != nil {
		return nil, translate(err)
	}
	active, err := s.backend.ActiveHauling(ctx)
	if err != nil {
		return nil, translate(err)
	}

	now := s.now()
	sess := &Session{
		ID:         uuid.New(),
		UserID:     principal.UserID,
		Catalog:    *catalog,
		InProgress: active,
		CreatedAt:  now,
	}
	d, err := build(draft.Env{Catalog: sess.Catalog, Busy: fleet.Assignments(active)})
	if err != nil {
		return nil, translate(err)
	}
	sess.Draft = d

	if err := s.sessions.put(ctx, sess, now); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", principal.UserID).
		Int("items", len(d.Items)).
		Msg("dispatch session opened")
	return sess, nil
}

func (s *DispatchService) GetSession(ctx context.Context, principal model.Principal, id uuid.UUID) (*Session, error) {
	return s.sessions.get(ctx, principal, id)
}

func (s *DispatchService) CloseSession(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	unlock := s.sessions.lock(id)
	defer unlock()
	if _, err := s.sessions.get(ctx, principal, id); err != nil {
		return err
	}
	return s.sessions.drop(ctx, id)
}

// HeaderUpdate changes only the fields that are set.
type HeaderUpdate struct {
	MiningSiteID     *string
	Shift            *model.Shift
	RecordDate       *time.Time
	TotalTarget      *float64
	ActualProduction *float64
	Remarks          *string
}

func (s *DispatchService) UpdateHeader(ctx context.Context, principal model.Principal, id uuid.UUID, update HeaderUpdate) (*Session, error) {
	return s.mutate(ctx, principal, id, func(_ context.Context, sess *Session) error {
		d := sess.Draft
		if update.MiningSiteID != nil {
			site := strings.TrimSpace(*update.MiningSiteID)
			if _, ok := sess.Catalog.MiningSite(site); !ok {
				return fmt.Errorf("%w: unknown mining site %s", ErrInvalidInput, site)
			}
			d = d.SelectSite(sess.Catalog, site)
		}
		if update.Shift != nil {
			d = d.SetShift(*update.Shift)
		}
		if update.RecordDate != nil {
			d = d.SetRecordDate(*update.RecordDate)
		}
		if update.TotalTarget != nil {
			if *update.TotalTarget < 0 {
				return fmt.Errorf("%w: total target must not be negative", ErrInvalidInput)
			}
			d = d.SetTotalTarget(*update.TotalTarget)
		}
		if update.ActualProduction != nil {
			if *update.ActualProduction < 0 {
				return fmt.Errorf("%w: actual production must not be negative", ErrInvalidInput)
			}
			d = d.SetActualProduction(*update.ActualProduction)
		}
		if update.Remarks != nil {
			d = d.SetRemarks(*update.Remarks)
		}
		sess.Draft = d
		return nil
	})
}

// Eligibility returns the candidate pools for one item, or for a new item when tempID is empty.
func (s *DispatchService) Eligibility(ctx context.Context, principal model.Principal, id uuid.UUID, tempID string) (*fleet.Pools, error) {
	sess, err := s.sessions.get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	var selected fleet.Selection
	if tempID != "" {
		item, ok := sess.Draft.Item(tempID)
		if !ok {
			return nil, fmt.Errorf("%w: hauling item %s", ErrNotFound, tempID)
		}
		selected = fleet.Selection{
			TruckID:             item.TruckID,
			ExcavatorID:         item.ExcavatorID,
			TruckOperatorID:     item.TruckOperatorID,
			ExcavatorOperatorID: item.ExcavatorOperatorID,
		}
	}
	env := sess.Env()
	pools := fleet.Filter(fleet.Input{
		Catalog:  env.Catalog,
		Busy:     env.Busy,
		Shift:    sess.Draft.Header.Shift,
		Selected: selected,
	})
	return &pools, nil
}

func (s *DispatchService) AddItem(ctx context.Context, principal model.Principal, id uuid.UUID) (*Session, *draft.Item, error) {
	var added draft.Item
	sess, err := s.mutate(ctx, principal, id, func(_ context.Context, sess *Session) error {
		d, item, err := sess.Draft.AddItem(sess.Env())
		if err != nil {
			return err
		}
		sess.Draft = d
		added = item
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, &added, nil
}

// AddExisting attaches saved activities by id. Ids the backend does not return are reported as not found.
func (s *DispatchService) AddExisting(ctx context.Context, principal model.Principal, id uuid.UUID, activityIDs []string) (*Session, error) {
	return s.attach(ctx, principal, id, activityIDs, "")
}

func (s *DispatchService) attach(ctx context.Context, principal model.Principal, id uuid.UUID, activityIDs []string, source model.AllocationSource) (*Session, error) {
	ids := uniqueIDs(activityIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one activity id is required", ErrInvalidInput)
	}
	return s.mutate(ctx, principal, id, func(ctx context.Context, sess *Session) error {
		activities, err := s.backend.HaulingByIDs(ctx, ids)
		if err != nil {
			return err
		}
		found := make(map[string]model.HaulingActivity, len(activities))
		for _, a := range activities {
			found[a.ID] = a
		}
		var missing []string
		for _, activityID := range ids {
			if _, ok := found[activityID]; !ok {
				missing = append(missing, activityID)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: hauling activities %s", ErrNotFound, strings.Join(missing, ", "))
		}

		d := sess.Draft
		for _, activityID := range ids {
			if d, _, err = d.AddExisting(sess.Env(), found[activityID]); err != nil {
				return err
			}
		}
		if source != "" {
			d.Header.Source = source
		}
		sess.Draft = d
		return nil
	})
}

func (s *DispatchService) UpdateItem(ctx context.Context, principal model.Principal, id uuid.UUID, tempID string, field draft.Field, value string) (*Session, error) {
	return s.mutate(ctx, principal, id, func(ctx context.Context, sess *Session) error {
		d, effects, err := sess.Draft.UpdateItem(sess.Env(), tempID, field, value)
		if err != nil {
			return err
		}
		d, err = s.execute(ctx, sess, d, effects)
		if err != nil {
			return err
		}
		sess.Draft = d
		return nil
	})
}

func (s *DispatchService) RemoveItem(ctx context.Context, principal model.Principal, id uuid.UUID, tempID string) (*Session, error) {
	return s.mutate(ctx, principal, id, func(ctx context.Context, sess *Session) error {
		d, effects, err := sess.Draft.RemoveItem(tempID)
		if err != nil {
			return err
		}
		d, err = s.execute(ctx, sess, d, effects)
		if err != nil {
			return err
		}
		sess.Draft = d
		return nil
	})
}

// execute performs the backend calls a draft transition asked for. The first failure
// stops the run and the caller keeps its previous draft.
func (s *DispatchService) execute(ctx context.Context, sess *Session, d draft.Draft, effects []draft.Effect) (draft.Draft, error) {
	for _, e := range effects {
		switch e.Kind {
		case draft.EffectQuickUpdate:
			if _, err := s.backend.QuickUpdateHauling(ctx, e.ActivityID, e.QuickUpdate); err != nil {
				return d, err
			}
			d = d.MarkSynced(e.TempID, e.QuickUpdate)
		case draft.EffectDelete:
			if err := s.backend.DeleteHauling(ctx, e.ActivityID); err != nil {
				return d, err
			}
			d = d.ConfirmRemoved(e.TempID)
			sess.forget(e.ActivityID)
		default:
			return d, fmt.Errorf("unknown draft effect %q", e.Kind)
		}
		s.log.Debug().
			Str("session_id", sess.ID.String()).
			Str("effect", string(e.Kind)).
			Str("activity_id", e.ActivityID).
			Msg("draft effect applied")
	}
	return d, nil
}

func (s *DispatchService) mutate(ctx context.Context, principal model.Principal, id uuid.UUID, fn func(ctx context.Context, sess *Session) error) (*Session, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	unlock := s.sessions.lock(id)
	defer unlock()

	sess, err := s.sessions.get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := fn(backend.WithToken(ctx, principal.Token), sess); err != nil {
		return nil, translate(err)
	}
	if err := s.sessions.put(ctx, sess, s.now()); err != nil {
		return nil, err
	}
	return sess, nil
}

type SubmitResult struct {
	SubmissionID uuid.UUID              `json:"submissionId"`
	Status       model.SubmissionStatus `json:"status"`
	Summary      string                 `json:"summary"`
	Result       *reconcile.Result      `json:"result"`
}

// Submit reconciles the session's batch with the backend. The in-progress list and the
// day's activity numbers are read once up front. A run that got past validation is
// always recorded and published. The session is dropped when the run succeeds and kept
// otherwise, with created items turned into saved ones so a retry does not duplicate them.
func (s *DispatchService) Submit(ctx context.Context, principal model.Principal, id uuid.UUID) (*SubmitResult, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	unlock := s.sessions.lock(id)
	defer unlock()

	sess, err := s.sessions.get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	apiCtx := backend.WithToken(ctx, principal.Token)

	inProgress, err := s.backend.ActiveHauling(apiCtx)
	if err != nil {
		return nil, translate(err)
	}
	day := sess.Draft.Header.RecordDate
	if day.IsZero() {
		day = s.now()
	}
	known, err := s.backend.ActivityNumbersForDay(apiCtx, day)
	if err != nil {
		return nil, translate(err)
	}

	result, runErr := s.reconciler.Submit(apiCtx, sess.Draft, reconcile.Snapshot{
		Catalog:      sess.Catalog,
		InProgress:   inProgress,
		KnownNumbers: known,
	})
	if result == nil {
		return nil, translate(runErr)
	}

	// The backend has already changed, so bookkeeping must not be cut short by the caller.
	bgCtx := context.WithoutCancel(ctx)
	sub := s.record(bgCtx, principal, sess, day, result, runErr)
	s.publish(bgCtx, sub, result)

	out := &SubmitResult{
		SubmissionID: sub.ID,
		Status:       result.Status(),
		Summary:      result.Summary(),
		Result:       result,
	}

	if runErr == nil {
		if err := s.sessions.drop(bgCtx, sess.ID); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("failed to drop submitted session")
		}
		return out, nil
	}

	d := sess.Draft
	for _, o := range result.Outcomes {
		if o.Action == model.ItemCreated {
			d = d.MarkPersisted(o.TempID, o.Activity())
		}
	}
	sess.Draft = d
	sess.InProgress = inProgress
	if err := s.sessions.put(bgCtx, sess, s.now()); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to keep session after failed submission")
	}
	return out, translate(runErr)
}

func (s *DispatchService) record(ctx context.Context, principal model.Principal, sess *Session, day time.Time, result *reconcile.Result, runErr error) model.Submission {
	header := sess.Draft.Header
	sub := model.Submission{
		SessionID:           sess.ID,
		UserID:              principal.UserID,
		RecordDate:          time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Shift:               header.Shift,
		MiningSiteID:        header.MiningSiteID,
		Status:              result.Status(),
		CreatedCount:        result.Created,
		UpdatedCount:        result.Updated,
		UnchangedCount:      result.Unchanged,
		FailedCount:         result.Failed,
		ProductionOverwrite: result.Overwrote,
		CreatedAt:           s.now(),
	}
	if result.Production != nil && result.Production.ID != "" {
		sub.ProductionRecordID = optional(result.Production.ID)
	}
	if runErr != nil {
		sub.ErrorMessage = optional(runErr.Error())
	}
	for _, o := range result.Outcomes {
		sub.Items = append(sub.Items, model.SubmissionItem{
			Position:          o.Position,
			HaulingActivityID: optional(o.ActivityID),
			ActivityNumber:    optional(o.ActivityNumber),
			TruckID:           o.TruckID,
			OperatorID:        o.OperatorID,
			Action:            o.Action,
			Message:           optional(o.Message),
		})
	}

	saved, err := s.submissions.Create(ctx, sub)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to record submission")
		return sub
	}
	return *saved
}

func (s *DispatchService) publish(ctx context.Context, sub model.Submission, result *reconcile.Result) {
	event := messaging.BatchSubmitted{
		SessionID:    sub.SessionID.String(),
		UserID:       sub.UserID,
		RecordDate:   sub.RecordDate.Format("2006-01-02"),
		Shift:        string(sub.Shift),
		MiningSiteID: sub.MiningSiteID,
		Status:       string(sub.Status),
		ActivityIDs:  result.ActivityIDs,
		Created:      result.Created,
		Updated:      result.Updated,
		Unchanged:    result.Unchanged,
		Failed:       result.Failed,
	}
	if sub.ID != uuid.Nil {
		event.SubmissionID = sub.ID.String()
	}
	if sub.ProductionRecordID != nil {
		event.ProductionRecordID = *sub.ProductionRecordID
	}
	if err := s.publisher.Publish(ctx, messaging.EventBatchSubmitted, event); err != nil {
		s.log.Warn().Err(err).Str("session_id", event.SessionID).Msg("failed to publish submission event")
	}
}

func (s *DispatchService) ListSubmissions(ctx context.Context, principal model.Principal, filter repository.SubmissionFilter) ([]model.Submission, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	return s.submissions.List(ctx, filter)
}

func (s *DispatchService) GetSubmission(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Submission, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	sub, err := s.submissions.Get(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, id)
	}
	return sub, nil
}

// Achievement asks the backend how far the activities saved by a submission have got.
func (s *DispatchService) Achievement(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Achievement, error) {
	sub, err := s.GetSubmission(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, item := range sub.Items {
		if item.HaulingActivityID != nil {
			ids = append(ids, *item.HaulingActivityID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: submission %s saved no hauling", ErrNotFound, id)
	}

	day := sub.RecordDate.Format("2006-01-02")
	achievement, err := s.backend.CalculateAchievement(backend.WithToken(ctx, principal.Token), model.AchievementQuery{
		HaulingActivityIDs: ids,
		StartDate:          day,
		EndDate:            day,
	})
	if err != nil {
		return nil, translate(err)
	}
	return achievement, nil
}

func translateStoreErr(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: submission %s", ErrNotFound, id)
	}
	return err
}

func headerFromRecord(record model.ProductionRecord) draft.Header {
	header := draft.Header{
		MiningSiteID:     record.MiningSiteID,
		Shift:            record.Shift,
		TotalTarget:      record.TargetProduction,
		ActualProduction: record.ActualProduction,
		Remarks:          record.Remarks,
		ProductionID:     record.ID,
	}
	if len(record.RecordDate) >= 10 {
		if day, err := time.Parse("2006-01-02", record.RecordDate[:10]); err == nil {
			header.RecordDate = day
		}
	}
	return header
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
