package port

import (
	"context"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

//go:generate mockgen -destination=mocks/events_mock.go -package=mocks . EventPublisher

// EventPublisher publishes session lifecycle events to the message bus.
type EventPublisher interface {
	PublishIdentityRegistered(ctx context.Context, event domain.IdentityRegisteredEvent) error
	PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error
	PublishSessionRotated(ctx context.Context, event domain.SessionRotatedEvent) error
	PublishSessionEnded(ctx context.Context, event domain.SessionEndedEvent) error
	PublishRefreshReuseDetected(ctx context.Context, event domain.RefreshReuseDetectedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}
