package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/config"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
)

const schemaVersion = "1.0"

// Event types, prefixed with the configured topic prefix on publish.
const (
	EventIdentityRegistered   = "identity.registered"
	EventSessionStarted       = "session.started"
	EventSessionRotated       = "session.rotated"
	EventSessionEnded         = "session.ended"
	EventRefreshReuseDetected = "session.reuse_detected"
	EventPasswordChanged      = "identity.password.changed"
)

// EventPublisher implements port.EventPublisher using Kafka. Messages are
// keyed by identity id so one identity's events stay ordered.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	IdentityID string            `json:"identity_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Payload    any               `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type clientPayload struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func maskedClient(meta domain.ClientMeta) clientPayload {
	return clientPayload{IP: logger.MaskIP(meta.IP), UserAgent: meta.UserAgent}
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, identityID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:    eventID,
		EventType:  eventType,
		IdentityID: identityID,
		Timestamp:  ts.UTC(),
		Version:    schemaVersion,
		Payload:    payload,
		Metadata:   metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(identityID),
		Value: sarama.ByteEncoder(body),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishIdentityRegistered publishes identity.registered events.
func (p *EventPublisher) PublishIdentityRegistered(ctx context.Context, event domain.IdentityRegisteredEvent) error {
	payload := struct {
		IdentityID   string         `json:"identity_id"`
		Username     string         `json:"username"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{event.IdentityID, event.Username, event.RegisteredAt.UTC(), event.Metadata}

	return p.publish(ctx, event.EventID, EventIdentityRegistered, event.IdentityID, event.RegisteredAt, payload)
}

// PublishSessionStarted publishes session.started events.
func (p *EventPublisher) PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error {
	payload := struct {
		IdentityID string        `json:"identity_id"`
		StartedAt  time.Time     `json:"started_at"`
		Client     clientPayload `json:"client"`
	}{event.IdentityID, event.StartedAt.UTC(), maskedClient(event.Client)}

	return p.publish(ctx, event.EventID, EventSessionStarted, event.IdentityID, event.StartedAt, payload)
}

// PublishSessionRotated publishes session.rotated events. Token values are never included.
func (p *EventPublisher) PublishSessionRotated(ctx context.Context, event domain.SessionRotatedEvent) error {
	payload := struct {
		IdentityID string        `json:"identity_id"`
		RotatedAt  time.Time     `json:"rotated_at"`
		Source     string        `json:"source"`
		Client     clientPayload `json:"client"`
	}{event.IdentityID, event.RotatedAt.UTC(), event.Source, maskedClient(event.Client)}

	return p.publish(ctx, event.EventID, EventSessionRotated, event.IdentityID, event.RotatedAt, payload)
}

// PublishSessionEnded publishes session.ended events.
func (p *EventPublisher) PublishSessionEnded(ctx context.Context, event domain.SessionEndedEvent) error {
	payload := struct {
		IdentityID string        `json:"identity_id"`
		EndedAt    time.Time     `json:"ended_at"`
		Reason     string        `json:"reason"`
		Client     clientPayload `json:"client"`
	}{event.IdentityID, event.EndedAt.UTC(), event.Reason, maskedClient(event.Client)}

	return p.publish(ctx, event.EventID, EventSessionEnded, event.IdentityID, event.EndedAt, payload)
}

// PublishRefreshReuseDetected publishes session.reuse_detected events.
func (p *EventPublisher) PublishRefreshReuseDetected(ctx context.Context, event domain.RefreshReuseDetectedEvent) error {
	payload := struct {
		IdentityID       string        `json:"identity_id"`
		DetectedAt       time.Time     `json:"detected_at"`
		Source           string        `json:"source"`
		HadActiveSession bool          `json:"had_active_session"`
		Client           clientPayload `json:"client"`
	}{event.IdentityID, event.DetectedAt.UTC(), event.Source, event.HadActiveSession, maskedClient(event.Client)}

	return p.publish(ctx, event.EventID, EventRefreshReuseDetected, event.IdentityID, event.DetectedAt, payload)
}

// PublishPasswordChanged publishes identity.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		IdentityID string        `json:"identity_id"`
		ChangedAt  time.Time     `json:"changed_at"`
		Client     clientPayload `json:"client"`
	}{event.IdentityID, event.ChangedAt.UTC(), maskedClient(event.Client)}

	return p.publish(ctx, event.EventID, EventPasswordChanged, event.IdentityID, event.ChangedAt, payload)
}
