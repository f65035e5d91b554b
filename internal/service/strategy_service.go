package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/ai"
	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/cache"
	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type AIBackend interface {
	Recommendations(ctx context.Context, req backend.RecommendationRequest) (json.RawMessage, error)
	ApplyHaulingRecommendation(ctx context.Context, req backend.ApplyRequest) (*backend.ApplyResult, error)
	Chatbot(ctx context.Context, req backend.ChatRequest) (json.RawMessage, error)
}

type StatusReader interface {
	Status() ai.Status
}

type StrategyService struct {
	api      AIBackend
	dispatch *DispatchService
	store    cache.Store
	monitor  StatusReader
	ttl      time.Duration
	log      zerolog.Logger
}

func NewStrategyService(api AIBackend, dispatch *DispatchService, store cache.Store, monitor StatusReader, ttl time.Duration, log zerolog.Logger) *StrategyService {
	return &StrategyService{
		api:      api,
		dispatch: dispatch,
		store:    store,
		monitor:  monitor,
		ttl:      ttl,
		log:      log,
	}
}

func (s *StrategyService) Recommend(ctx context.Context, principal model.Principal, req backend.RecommendationRequest) (*ai.Recommendations, error) {
	if req.MinTrucks > 0 && req.MaxTrucks > 0 && req.MinTrucks > req.MaxTrucks {
		return nil, fmt.Errorf("%w: minTrucks must not exceed maxTrucks", ErrInvalidInput)
	}
	if req.MinExcavators > 0 && req.MaxExcavators > 0 && req.MinExcavators > req.MaxExcavators {
		return nil, fmt.Errorf("%w: minExcavators must not exceed maxExcavators", ErrInvalidInput)
	}
	if req.TotalProductionTarget < 0 {
		return nil, fmt.Errorf("%w: totalProductionTarget must not be negative", ErrInvalidInput)
	}

	raw, err := s.api.Recommendations(backend.WithToken(ctx, principal.Token), req)
	if err != nil {
		return nil, translate(err)
	}
	recs, err := ai.DecodeStrategies(raw)
	if err != nil {
		return nil, translate(err)
	}
	for _, r := range recs.Rejected {
		s.log.Warn().Int("position", r.Position).Str("reason", r.Reason).Msg("ai strategy rejected")
	}
	return recs, nil
}

// Select remembers the strategy the dispatcher picked until a draft is opened from it.
func (s *StrategyService) Select(ctx context.Context, principal model.Principal, strategy ai.Strategy) error {
	if !principal.CanDispatch() {
		return ErrPermissionDenied
	}
	if strategy.Trucks <= 0 && len(strategy.Raw.HaulingAllocations) == 0 {
		return fmt.Errorf("%w: strategy has no trucks", ErrInvalidInput)
	}
	return s.store.Set(ctx, strategyKey(principal.UserID), strategy, s.ttl)
}

func (s *StrategyService) Selected(ctx context.Context, principal model.Principal) (*ai.Strategy, error) {
	var strategy ai.Strategy
	if err := s.store.Get(ctx, strategyKey(principal.UserID), &strategy); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("%w: no strategy selected", ErrNotFound)
		}
		return nil, err
	}
	return &strategy, nil
}

// OpenFromSelected consumes the selected strategy and opens a draft session seeded from it.
func (s *StrategyService) OpenFromSelected(ctx context.Context, principal model.Principal, fallbackSite string) (*Session, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	strategy, err := s.Selected(ctx, principal)
	if err != nil {
		return nil, err
	}

	seed := ai.ToDraftSeed(*strategy, strings.TrimSpace(fallbackSite))
	if seed.Header.MiningSiteID == "" {
		return nil, fmt.Errorf("%w: strategy names no mining site, pass one", ErrInvalidInput)
	}

	sess, err := s.dispatch.open(backend.WithToken(ctx, principal.Token), principal, func(env draft.Env) (draft.Draft, error) {
		return seed.Draft(env, s.dispatch.defaults)
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, strategyKey(principal.UserID)); err != nil {
		s.log.Warn().Err(err).Str("user_id", principal.UserID).Msg("failed to clear selected strategy")
	}
	return sess, nil
}

type ApplyOutcome struct {
	Result  *backend.ApplyResult `json:"result"`
	Session *Session             `json:"session,omitempty"`
}

// Apply asks the backend to create or update hauling from a strategy. When a session is
// given, the activities the backend reports are attached to it as saved items.
func (s *StrategyService) Apply(ctx context.Context, principal model.Principal, sessionID *uuid.UUID, req backend.ApplyRequest) (*ApplyOutcome, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}
	switch req.Action {
	case backend.ApplyCreate:
		if len(req.TruckIDs) == 0 {
			return nil, fmt.Errorf("%w: truckIds are required", ErrInvalidInput)
		}
	case backend.ApplyUpdate:
		if strings.TrimSpace(req.ExistingHaulingID) == "" {
			return nil, fmt.Errorf("%w: existingHaulingId is required for update", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: action must be create or update", ErrInvalidInput)
	}

	if len(req.Recommendation) == 0 {
		if strategy, err := s.Selected(ctx, principal); err == nil {
			req.Recommendation = strategy.Payload
		}
	}

	result, err := s.api.ApplyHaulingRecommendation(backend.WithToken(ctx, principal.Token), req)
	if err != nil {
		return nil, translate(err)
	}
	out := &ApplyOutcome{Result: result}
	if sessionID == nil || len(result.ActivityIDs) == 0 {
		return out, nil
	}

	sess, err := s.dispatch.attach(ctx, principal, *sessionID, result.ActivityIDs, model.AllocationAIApplied)
	if err != nil {
		return out, err
	}
	out.Session = sess
	return out, nil
}

func (s *StrategyService) Chat(ctx context.Context, principal model.Principal, req backend.ChatRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	raw, err := s.api.Chatbot(backend.WithToken(ctx, principal.Token), req)
	if err != nil {
		return nil, translate(err)
	}
	return raw, nil
}

func (s *StrategyService) Status() ai.Status {
	if s.monitor == nil {
		return ai.Status{Health: backend.AIHealth{Status: "offline"}}
	}
	return s.monitor.Status()
}
