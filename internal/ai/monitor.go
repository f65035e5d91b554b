package ai

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/backend"
)

const pollTimeout = 20 * time.Second

type StatusSource interface {
	AIHealth(ctx context.Context) backend.AIHealth
	RealtimeConditions(ctx context.Context) (*backend.RealtimeConditions, error)
}

// Status is the latest snapshot the monitor has seen.
type Status struct {
	Health          backend.AIHealth            `json:"health"`
	Conditions      *backend.RealtimeConditions `json:"conditions,omitempty"`
	ConditionsError string                      `json:"conditionsError,omitempty"`
	CheckedAt       time.Time                   `json:"checkedAt"`
}

// Monitor polls AI health and realtime conditions on a fixed interval.
type Monitor struct {
	source   StatusSource
	interval time.Duration
	token    string
	log      zerolog.Logger

	mu        sync.RWMutex
	status    Status
	scheduler gocron.Scheduler
}

func NewMonitor(source StatusSource, interval time.Duration, token string, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		source:   source,
		interval: interval,
		token:    token,
		log:      log,
		status:   Status{Health: backend.AIHealth{Status: "offline"}},
	}
}

// Start polls once and then schedules the poll every interval until Stop.
func (m *Monitor) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() {
			m.Poll(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	m.Poll(ctx)
	scheduler.Start()

	m.mu.Lock()
	m.scheduler = scheduler
	m.mu.Unlock()
	m.log.Info().Dur("interval", m.interval).Msg("ai monitor started")
	return nil
}

func (m *Monitor) Stop() error {
	m.mu.Lock()
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()
	if scheduler == nil {
		return nil
	}
	return scheduler.Shutdown()
}

// Poll refreshes the snapshot once. A failed conditions call keeps the previous
// conditions and records the error.
func (m *Monitor) Poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	if m.token != "" {
		ctx = backend.WithToken(ctx, m.token)
	}

	health := m.source.AIHealth(ctx)
	conditions, err := m.source.RealtimeConditions(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	wasOnline := m.status.Health.Online()
	m.status.Health = health
	m.status.CheckedAt = time.Now().UTC()
	if err != nil {
		m.status.ConditionsError = err.Error()
		m.log.Warn().Err(err).Msg("realtime conditions poll failed")
	} else {
		m.status.Conditions = conditions
		m.status.ConditionsError = ""
	}
	if wasOnline != health.Online() {
		m.log.Info().Str("status", health.Status).Msg("ai service status changed")
	}
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
