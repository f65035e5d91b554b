// Package messaging publishes dispatch events for downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/config"
)

const (
	EventBatchSubmitted = "production.batch.submitted"

	source = "minefleet-dispatch"
)

// BatchSubmitted is emitted once per submission run, whatever its outcome.
type BatchSubmitted struct {
	SubmissionID       string   `json:"submissionId"`
	SessionID          string   `json:"sessionId"`
	UserID             string   `json:"userId"`
	RecordDate         string   `json:"recordDate"`
	Shift              string   `json:"shift"`
	MiningSiteID       string   `json:"miningSiteId"`
	Status             string   `json:"status"`
	ProductionRecordID string   `json:"productionRecordId,omitempty"`
	ActivityIDs        []string `json:"activityIds"`
	Created            int      `json:"created"`
	Updated            int      `json:"updated"`
	Unchanged          int      `json:"unchanged"`
	Failed             int      `json:"failed"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

type sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

type ServiceBusPublisher struct {
	client *azservicebus.Client
	sender sender
	queue  string
	now    func() time.Time
}

func NewServiceBusPublisher(cfg config.ServiceBusConfig) (*ServiceBusPublisher, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("service bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service bus client: %w", err)
	}

	s, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to create service bus sender: %w", err)
	}

	return &ServiceBusPublisher{client: client, sender: s, queue: cfg.QueueName, now: time.Now}, nil
}

func (p *ServiceBusPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:        data,
		ContentType: &contentType,
		Subject:     &eventType,
		ApplicationProperties: map[string]interface{}{
			"source": source,
			"type":   eventType,
			"time":   p.now().UTC().Format(time.RFC3339),
		},
	}
	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("send %s to %s: %w", eventType, p.queue, err)
	}
	return nil
}

func (p *ServiceBusPublisher) Close() error {
	if p.sender != nil {
		if err := p.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(context.Background())
	}
	return nil
}

// LogPublisher stands in when no service bus is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	p.log.Debug().Str("event", eventType).RawJSON("payload", data).Msg("event not published, service bus disabled")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
