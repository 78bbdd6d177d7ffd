package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) log(eventType, identityID string, fields ...zap.Field) {
	p.logger.Info("Stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("identity_id", identityID),
		}, fields...)...,
	)
}

func (p *StubPublisher) PublishIdentityRegistered(_ context.Context, event domain.IdentityRegisteredEvent) error {
	p.log(EventIdentityRegistered, event.IdentityID, zap.Time("registered_at", event.RegisteredAt))
	return nil
}

func (p *StubPublisher) PublishSessionStarted(_ context.Context, event domain.SessionStartedEvent) error {
	p.log(EventSessionStarted, event.IdentityID,
		zap.Time("started_at", event.StartedAt),
		zap.String("client_ip", logger.MaskIP(event.Client.IP)),
	)
	return nil
}

func (p *StubPublisher) PublishSessionRotated(_ context.Context, event domain.SessionRotatedEvent) error {
	p.log(EventSessionRotated, event.IdentityID,
		zap.Time("rotated_at", event.RotatedAt),
		zap.String("source", event.Source),
	)
	return nil
}

func (p *StubPublisher) PublishSessionEnded(_ context.Context, event domain.SessionEndedEvent) error {
	p.log(EventSessionEnded, event.IdentityID,
		zap.Time("ended_at", event.EndedAt),
		zap.String("reason", event.Reason),
	)
	return nil
}

func (p *StubPublisher) PublishRefreshReuseDetected(_ context.Context, event domain.RefreshReuseDetectedEvent) error {
	p.log(EventRefreshReuseDetected, event.IdentityID,
		zap.Time("detected_at", event.DetectedAt),
		zap.String("source", event.Source),
		zap.Bool("had_active_session", event.HadActiveSession),
	)
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.log(EventPasswordChanged, event.IdentityID, zap.Time("changed_at", event.ChangedAt))
	return nil
}
