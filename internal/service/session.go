package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/minefleet-dispatch/internal/cache"
	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

// Session is one dispatcher's batch under construction together with the backend
// state it was opened against. The catalog and in-progress list are loaded once.
type Session struct {
	ID         uuid.UUID               `json:"id"`
	UserID     string                  `json:"userId"`
	Draft      draft.Draft             `json:"draft"`
	Catalog    model.Catalog           `json:"catalog"`
	InProgress []model.HaulingActivity `json:"inProgress"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

// Env is the draft environment. Activities the batch already carries do not count
// as busy against themselves.
func (s Session) Env() draft.Env {
	var own []string
	for _, item := range s.Draft.Items {
		if item.IsExisting && item.ActivityID != "" {
			own = append(own, item.ActivityID)
		}
	}
	return draft.Env{
		Catalog: s.Catalog,
		Busy:    fleet.Assignments(s.InProgress, own...),
	}
}

func (s *Session) forget(activityID string) {
	kept := make([]model.HaulingActivity, 0, len(s.InProgress))
	for _, a := range s.InProgress {
		if a.ID != activityID {
			kept = append(kept, a)
		}
	}
	s.InProgress = kept
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func strategyKey(userID string) string {
	return "strategy:" + userID
}

type sessionStore struct {
	store cache.Store
	ttl   time.Duration
	locks sync.Map
}

func (s *sessionStore) get(ctx context.Context, principal model.Principal, id uuid.UUID) (*Session, error) {
	var sess Session
	if err := s.store.Get(ctx, sessionKey(id), &sess); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			s.locks.Delete(id)
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
		}
		return nil, err
	}
	if sess.UserID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	return &sess, nil
}

func (s *sessionStore) put(ctx context.Context, sess *Session, now time.Time) error {
	sess.UpdatedAt = now
	return s.store.Set(ctx, sessionKey(sess.ID), sess, s.ttl)
}

func (s *sessionStore) drop(ctx context.Context, id uuid.UUID) error {
	s.locks.Delete(id)
	return s.store.Delete(ctx, sessionKey(id))
}

// lock serialises changes to one session within this process. Entries are removed
// when the session is dropped or found expired.
func (s *sessionStore) lock(id uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
