package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nurpe/minefleet-dispatch/internal/ai"
	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/cache"
	"github.com/nurpe/minefleet-dispatch/internal/draft"
	"github.com/nurpe/minefleet-dispatch/internal/reconcile"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrUpstream         = errors.New("upstream request failed")
)

// translate maps package errors onto the service sentinels. Validation errors keep
// their own type so callers can list the problems.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var validation *reconcile.ValidationError
	if errors.As(err, &validation) {
		return err
	}

	var apiErr *backend.APIError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConflict), errors.Is(err, ErrUpstream):
		return err
	case errors.Is(err, draft.ErrItemNotFound), errors.Is(err, cache.ErrMiss):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, draft.ErrLastExistingItem):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, draft.ErrSiteRequired), errors.Is(err, draft.ErrNoLoadingPoint),
		errors.Is(err, draft.ErrNoDumpingPoint), errors.Is(err, draft.ErrNoOperators),
		errors.Is(err, draft.ErrUnknownField), errors.Is(err, draft.ErrInvalidValue),
		errors.Is(err, reconcile.ErrEmptyBatch), errors.Is(err, reconcile.ErrSiteRequired),
		errors.Is(err, reconcile.ErrShiftRequired), errors.Is(err, ai.ErrInvalidStrategy):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.ServerMessage())
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, apiErr.ServerMessage())
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, ai.ErrNoStrategies),
		errors.Is(err, reconcile.ErrNothingPersisted), errors.Is(err, reconcile.ErrProductionFailed),
		errors.Is(err, reconcile.ErrSequenceExhausted):
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	default:
		return err
	}
}
