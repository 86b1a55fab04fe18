package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventChannel = "consult:events"

// envelope wraps a ConsultationEvent with the emitting instance so
// subscribers can skip their own events.
type envelope struct {
	EventID    string                    `json:"event_id"`
	InstanceID string                    `json:"instance_id"`
	Event      *domain.ConsultationEvent `json:"event"`
}

// EventBus publishes consultation events over Redis pub/sub for
// audit/analytics consumers and for reacting to transport-level signals
// from other instances.
type EventBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.SugaredLogger
}

var _ ports.EventBus = (*EventBus)(nil)

// NewEventBus creates a Redis-backed event bus.
func NewEventBus(client *redis.Client, logger *zap.SugaredLogger) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Emit publishes one event. Failures surface to the caller; whether they
// matter is the caller's call (tracking paths swallow them, lifecycle
// paths log them).
func (eb *EventBus) Emit(ctx context.Context, event *domain.ConsultationEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(&envelope{
		EventID:    uuid.NewString(),
		InstanceID: eb.instanceID,
		Event:      event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event",
		"type", event.Type,
		"appointment_id", event.AppointmentID,
	)
	return nil
}

// Subscribe delivers events from other instances to handler until ctx is
// done.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(*domain.ConsultationEvent)) error {
	pubsub := eb.client.Subscribe(ctx, eventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				eb.logger.Warnw("failed to unmarshal event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}
			if env.InstanceID == eb.instanceID || env.Event == nil {
				continue
			}
			handler(env.Event)
		}
	}
}
