package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/model"
	"github.com/nurpe/minefleet-dispatch/internal/repository"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	args := m.Called(ctx)
	catalog, _ := args.Get(0).(*model.Catalog)
	return catalog, args.Error(1)
}

func (m *mockBackend) ActiveHauling(ctx context.Context) ([]model.HaulingActivity, error) {
	args := m.Called(ctx)
	activities, _ := args.Get(0).([]model.HaulingActivity)
	return activities, args.Error(1)
}

func (m *mockBackend) ActivityNumbersForDay(ctx context.Context, day time.Time) ([]string, error) {
	args := m.Called(ctx, day)
	numbers, _ := args.Get(0).([]string)
	return numbers, args.Error(1)
}

func (m *mockBackend) HaulingByIDs(ctx context.Context, ids []string) ([]model.HaulingActivity, error) {
	args := m.Called(ctx, ids)
	activities, _ := args.Get(0).([]model.HaulingActivity)
	return activities, args.Error(1)
}

func (m *mockBackend) QuickUpdateHauling(ctx context.Context, id string, update model.QuickUpdate) (*model.HaulingActivity, error) {
	args := m.Called(ctx, id, update)
	activity, _ := args.Get(0).(*model.HaulingActivity)
	return activity, args.Error(1)
}

func (m *mockBackend) DeleteHauling(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBackend) GetProduction(ctx context.Context, id string) (*model.ProductionRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*model.ProductionRecord)
	return record, args.Error(1)
}

func (m *mockBackend) CalculateAchievement(ctx context.Context, query model.AchievementQuery) (*model.Achievement, error) {
	args := m.Called(ctx, query)
	achievement, _ := args.Get(0).(*model.Achievement)
	return achievement, args.Error(1)
}

func (m *mockBackend) CreateHauling(ctx context.Context, input model.HaulingInput) (*model.HaulingActivity, error) {
	args := m.Called(ctx, input)
	activity, _ := args.Get(0).(*model.HaulingActivity)
	return activity, args.Error(1)
}

func (m *mockBackend) UpdateHauling(ctx context.Context, id string, input model.HaulingInput) (*model.HaulingActivity, error) {
	args := m.Called(ctx, id, input)
	activity, _ := args.Get(0).(*model.HaulingActivity)
	return activity, args.Error(1)
}

func (m *mockBackend) ListProduction(ctx context.Context, query model.ProductionQuery) ([]model.ProductionRecord, error) {
	args := m.Called(ctx, query)
	records, _ := args.Get(0).([]model.ProductionRecord)
	return records, args.Error(1)
}

func (m *mockBackend) CreateProduction(ctx context.Context, record model.ProductionRecord) (*model.ProductionRecord, error) {
	args := m.Called(ctx, record)
	saved, _ := args.Get(0).(*model.ProductionRecord)
	return saved, args.Error(1)
}

func (m *mockBackend) UpdateProduction(ctx context.Context, id string, record model.ProductionRecord) (*model.ProductionRecord, error) {
	args := m.Called(ctx, id, record)
	saved, _ := args.Get(0).(*model.ProductionRecord)
	return saved, args.Error(1)
}

type mockSubmissions struct {
	mock.Mock
}

func (m *mockSubmissions) Create(ctx context.Context, sub model.Submission) (*model.Submission, error) {
	args := m.Called(ctx, sub)
	saved, _ := args.Get(0).(*model.Submission)
	return saved, args.Error(1)
}

func (m *mockSubmissions) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*model.Submission)
	return sub, args.Error(1)
}

func (m *mockSubmissions) List(ctx context.Context, filter repository.SubmissionFilter) ([]model.Submission, error) {
	args := m.Called(ctx, filter)
	subs, _ := args.Get(0).([]model.Submission)
	return subs, args.Error(1)
}

type mockAI struct {
	mock.Mock
}

func (m *mockAI) Recommendations(ctx context.Context, req backend.RecommendationRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockAI) ApplyHaulingRecommendation(ctx context.Context, req backend.ApplyRequest) (*backend.ApplyResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*backend.ApplyResult)
	return result, args.Error(1)
}

func (m *mockAI) Chatbot(ctx context.Context, req backend.ChatRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	last   interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.last = payload
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
