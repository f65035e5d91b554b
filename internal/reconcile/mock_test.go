package reconcile

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateHauling(ctx context.Context, input model.HaulingInput) (*model.HaulingActivity, error) {
	args := m.Called(ctx, input)
	if a := args.Get(0); a != nil {
		return a.(*model.HaulingActivity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) UpdateHauling(ctx context.Context, id string, input model.HaulingInput) (*model.HaulingActivity, error) {
	args := m.Called(ctx, id, input)
	if a := args.Get(0); a != nil {
		return a.(*model.HaulingActivity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) QuickUpdateHauling(ctx context.Context, id string, update model.QuickUpdate) (*model.HaulingActivity, error) {
	args := m.Called(ctx, id, update)
	if a := args.Get(0); a != nil {
		return a.(*model.HaulingActivity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) ListProduction(ctx context.Context, query model.ProductionQuery) ([]model.ProductionRecord, error) {
	args := m.Called(ctx, query)
	if a := args.Get(0); a != nil {
		return a.([]model.ProductionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) CreateProduction(ctx context.Context, record model.ProductionRecord) (*model.ProductionRecord, error) {
	args := m.Called(ctx, record)
	if a := args.Get(0); a != nil {
		return a.(*model.ProductionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) UpdateProduction(ctx context.Context, id string, record model.ProductionRecord) (*model.ProductionRecord, error) {
	args := m.Called(ctx, id, record)
	if a := args.Get(0); a != nil {
		return a.(*model.ProductionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type serverErr struct {
	msg string
}

func (e serverErr) Error() string         { return "backend: " + e.msg }
func (e serverErr) ServerMessage() string { return e.msg }
