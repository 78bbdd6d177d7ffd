package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/kafka"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
	"github.com/ndk123-web/backend-structure/internal/infra/telemetry"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

// RegisterInput captures a sign-up request.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
	Client     domain.ClientMeta
}

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	store     port.CredentialStore
	passwords *passwordCheck
	policy    port.PasswordPolicyValidator
	events    port.EventPublisher
	logger    *zap.Logger
	clock     func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	store port.CredentialStore,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	events port.EventPublisher,
	metrics port.AuthMetrics,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = kafka.NewStubPublisher(log)
	}
	if metrics == nil {
		metrics = (*telemetry.AuthMetrics)(nil)
	}
	return &RegistrationService{
		store:     store,
		passwords: &passwordCheck{hasher: hasher, metrics: metrics},
		policy:    policy,
		events:    events,
		logger:    log.Named("registration"),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for timestamps.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Register creates a new identity and returns it sanitized.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (domain.Identity, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	avatar := strings.TrimSpace(in.Avatar)

	required := []struct{ field, value string }{
		{"username", username},
		{"email", email},
		{"fullname", fullName},
		{"password", in.Password},
		{"avatar", avatar},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.Identity{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, r.field)
		}
	}
	if !strings.Contains(email, "@") {
		return domain.Identity{}, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}

	if s.policy != nil {
		if err := s.policy.Validate(in.Password, domain.PasswordContext{
			Username: username,
			Email:    email,
			FullName: fullName,
		}); err != nil {
			return domain.Identity{}, fmt.Errorf("%w: %w", ErrPasswordPolicyViolation, err)
		}
	}

	passwordHash, err := s.passwords.hash(in.Password)
	if err != nil {
		s.logger.Error("Password hashing failed", zap.Error(err))
		return domain.Identity{}, fmt.Errorf("%w: hash password: %w", ErrInternalFailure, err)
	}

	now := s.clock()
	identity := domain.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatar,
		CoverImage:   strings.TrimSpace(in.CoverImage),
		PasswordHash: passwordHash,
		PasswordAlgo: s.passwords.hasher.Algorithm(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Identity{}, ErrIdentityExists
		}
		return domain.Identity{}, storeError("create identity", err)
	}

	s.logger.Info("Identity registered",
		zap.String("identity_id", identity.ID),
		zap.String("email", logger.MaskEmail(email)),
	)
	if err := s.events.PublishIdentityRegistered(ctx, domain.IdentityRegisteredEvent{
		EventID:      uuid.NewString(),
		IdentityID:   identity.ID,
		Username:     identity.Username,
		RegisteredAt: now,
		Metadata: map[string]any{
			"has_cover_image": identity.CoverImage != "",
		},
	}); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event", "identity registered"), zap.Error(err))
	}

	return identity.Sanitized(), nil
}
