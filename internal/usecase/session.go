package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/kafka"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
	"github.com/ndk123-web/backend-structure/internal/infra/telemetry"
	"github.com/ndk123-web/backend-structure/internal/repository"
)

// SessionConfig carries the session tunables resolved at startup.
type SessionConfig struct {
	// RotationThreshold is the remaining access-token lifetime below which
	// the authenticator rotates the pair. Zero disables proactive rotation.
	RotationThreshold time.Duration
}

// LoginInput captures the credentials submitted to Login.
type LoginInput struct {
	Identifier string
	Password   string
	Client     domain.ClientMeta
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Identity domain.Identity
	Tokens   domain.TokenPair
}

// RefreshInput captures a refresh request.
type RefreshInput struct {
	RefreshToken string
	// Source labels the caller in events and metrics; defaults to the refresh endpoint.
	Source string
	// IdentityID, when set, must match the identity the refresh token was issued to.
	IdentityID string
	Client     domain.ClientMeta
}

// RefreshResult is returned by a successful rotation.
type RefreshResult struct {
	Identity domain.Identity
	Tokens   domain.TokenPair
}

// ChangePasswordInput captures a password change request.
type ChangePasswordInput struct {
	IdentityID  string
	OldPassword string
	NewPassword string
	Client      domain.ClientMeta
}

// SessionService owns the refresh-token field of every identity: login sets
// it, refresh rotates it, logout and reuse detection clear it.
type SessionService struct {
	cfg       SessionConfig
	store     port.CredentialStore
	passwords *passwordCheck
	signer    port.TokenSigner
	policy    port.PasswordPolicyValidator
	events    port.EventPublisher
	metrics   port.AuthMetrics
	logger    *zap.Logger
	tracer    trace.Tracer
	clock     func() time.Time
}

// NewSessionService constructs a SessionService. Nil publisher, metrics and
// logger fall back to no-op implementations.
func NewSessionService(
	cfg SessionConfig,
	store port.CredentialStore,
	hasher port.PasswordHasher,
	signer port.TokenSigner,
	policy port.PasswordPolicyValidator,
	events port.EventPublisher,
	metrics port.AuthMetrics,
	log *zap.Logger,
) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = kafka.NewStubPublisher(log)
	}
	if metrics == nil {
		metrics = (*telemetry.AuthMetrics)(nil)
	}
	return &SessionService{
		cfg:       cfg,
		store:     store,
		passwords: &passwordCheck{hasher: hasher, metrics: metrics},
		signer:    signer,
		policy:    policy,
		events:    events,
		metrics:   metrics,
		logger:    log.Named("session"),
		tracer:    otel.Tracer(telemetry.TracerName),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for event timestamps.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// RotationThreshold exposes the configured proactive rotation window.
func (s *SessionService) RotationThreshold() time.Duration {
	return s.cfg.RotationThreshold
}

// Login verifies credentials, issues a token pair and stores the refresh
// token, replacing any previous session of the identity.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Login")
	defer span.End()

	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" || in.Password == "" {
		s.metrics.ObserveLogin(outcomeInvalidInput)
		return nil, fail(span, fmt.Errorf("%w: identifier and password are required", ErrInvalidInput))
	}

	identity, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.passwords.burn(in.Password)
			s.metrics.ObserveLogin(outcomeInvalidCredentials)
			return nil, fail(span, ErrInvalidCredentials)
		}
		s.metrics.ObserveLogin(outcomeStoreFailure)
		return nil, fail(span, storeError("lookup identity", err))
	}
	span.SetAttributes(attribute.String("identity.id", identity.ID))

	if !s.passwords.verify(in.Password, identity.PasswordHash) {
		s.metrics.ObserveLogin(outcomeInvalidCredentials)
		s.logger.Info("Login rejected",
			zap.String("identity_id", identity.ID),
			zap.String("client_ip", logger.MaskIP(in.Client.IP)),
		)
		return nil, fail(span, ErrInvalidCredentials)
	}

	pair, err := s.issuePair(*identity)
	if err != nil {
		s.metrics.ObserveLogin(outcomeInternal)
		s.logger.Error("Token issuance failed", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, fail(span, err)
	}

	if err := s.store.SetRefreshToken(ctx, identity.ID, &pair.RefreshToken); err != nil {
		err = storeError("store refresh token", err)
		s.metrics.ObserveLogin(storeOutcome(err))
		return nil, fail(span, err)
	}

	now := s.clock()
	s.metrics.ObserveLogin(outcomeSuccess)
	s.logger.Info("Session started",
		zap.String("identity_id", identity.ID),
		zap.String("email", logger.MaskEmail(identity.Email)),
		zap.String("client_ip", logger.MaskIP(in.Client.IP)),
	)
	s.publish(ctx, "session started", s.events.PublishSessionStarted(ctx, domain.SessionStartedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		StartedAt:  now,
		Client:     in.Client,
	}))

	return &LoginResult{Identity: identity.Sanitized(), Tokens: *pair}, nil
}

// Logout clears the stored refresh token. Logging out an unknown or already
// logged out identity succeeds.
func (s *SessionService) Logout(ctx context.Context, identityID string, client domain.ClientMeta) error {
	ctx, span := s.tracer.Start(ctx, "SessionService.Logout",
		trace.WithAttributes(attribute.String("identity.id", identityID)))
	defer span.End()

	if strings.TrimSpace(identityID) == "" {
		return fail(span, fmt.Errorf("%w: identity id is required", ErrInvalidInput))
	}

	if err := s.store.SetRefreshToken(ctx, identityID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fail(span, storeError("clear refresh token", err))
	}

	s.logger.Info("Session ended", zap.String("identity_id", identityID), zap.String("reason", domain.SessionEndLogout))
	s.publish(ctx, "session ended", s.events.PublishSessionEnded(ctx, domain.SessionEndedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identityID,
		EndedAt:    s.clock(),
		Reason:     domain.SessionEndLogout,
		Client:     client,
	}))
	return nil
}

// Refresh rotates a refresh token. A token that verifies but no longer
// matches the stored value clears the session and yields ErrReuseDetected.
func (s *SessionService) Refresh(ctx context.Context, in RefreshInput) (*RefreshResult, error) {
	source := in.Source
	if source == "" {
		source = domain.SessionSourceRefresh
	}
	ctx, span := s.tracer.Start(ctx, "SessionService.Refresh",
		trace.WithAttributes(attribute.String("session.source", source)))
	defer span.End()

	presented := strings.TrimSpace(in.RefreshToken)
	if presented == "" {
		s.metrics.ObserveRefresh(source, outcomeInvalidToken)
		return nil, fail(span, fmt.Errorf("%w: refresh token is required", ErrInvalidToken))
	}

	claims, err := s.signer.VerifyRefresh(presented)
	if err != nil {
		s.metrics.ObserveRefresh(source, outcomeInvalidToken)
		return nil, fail(span, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}
	if in.IdentityID != "" && claims.IdentityID != in.IdentityID {
		s.metrics.ObserveRefresh(source, outcomeInvalidToken)
		return nil, fail(span, fmt.Errorf("%w: refresh token belongs to another identity", ErrInvalidToken))
	}
	span.SetAttributes(attribute.String("identity.id", claims.IdentityID))

	identity, err := s.store.FindByID(ctx, claims.IdentityID)
	if err != nil {
		err = storeError("lookup identity", err)
		s.metrics.ObserveRefresh(source, storeOutcome(err))
		return nil, fail(span, err)
	}

	if !tokensEqual(identity.RefreshToken, presented) {
		s.metrics.ObserveRefresh(source, outcomeReuseDetected)
		return nil, fail(span, s.revokeOnReuse(ctx, identity, source, in.Client))
	}

	pair, err := s.issuePair(*identity)
	if err != nil {
		s.metrics.ObserveRefresh(source, outcomeInternal)
		s.logger.Error("Token issuance failed", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, fail(span, err)
	}

	swapped, err := s.store.CompareAndSetRefreshToken(ctx, identity.ID, &presented, &pair.RefreshToken)
	if err != nil {
		err = storeError("rotate refresh token", err)
		s.metrics.ObserveRefresh(source, storeOutcome(err))
		return nil, fail(span, err)
	}
	if !swapped {
		s.metrics.ObserveRefresh(source, outcomeConflict)
		s.logger.Debug("Refresh lost rotation race", zap.String("identity_id", identity.ID), zap.String("source", source))
		return nil, fail(span, ErrRotationConflict)
	}

	now := s.clock()
	s.metrics.ObserveRefresh(source, outcomeSuccess)
	s.logger.Info("Session rotated",
		zap.String("identity_id", identity.ID),
		zap.Time("rotated_at", now),
	)
	s.publish(ctx, "session rotated", s.events.PublishSessionRotated(ctx, domain.SessionRotatedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		RotatedAt:  now,
		Source:     source,
		Client:     in.Client,
	}))

	return &RefreshResult{Identity: identity.Sanitized(), Tokens: *pair}, nil
}

// revokeOnReuse clears the session of an identity whose rotated-out refresh
// token was replayed. It always returns an error wrapping ErrReuseDetected.
func (s *SessionService) revokeOnReuse(ctx context.Context, identity *domain.Identity, source string, client domain.ClientMeta) error {
	now := s.clock()
	hadSession := identity.HasActiveSession()
	s.logger.Warn("Refresh token reuse detected",
		zap.String("identity_id", identity.ID),
		zap.String("source", source),
		zap.Bool("had_active_session", hadSession),
		zap.String("client_ip", logger.MaskIP(client.IP)),
	)
	s.publish(ctx, "reuse detected", s.events.PublishRefreshReuseDetected(ctx, domain.RefreshReuseDetectedEvent{
		EventID:          uuid.NewString(),
		IdentityID:       identity.ID,
		DetectedAt:       now,
		Source:           source,
		HadActiveSession: hadSession,
		Client:           client,
	}))

	if err := s.store.SetRefreshToken(ctx, identity.ID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to clear session after reuse",
			zap.String("identity_id", identity.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: clear session: %w: %w", ErrReuseDetected, ErrTransientStoreFailure, err)
	}

	s.publish(ctx, "session ended", s.events.PublishSessionEnded(ctx, domain.SessionEndedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		EndedAt:    now,
		Reason:     domain.SessionEndReuseDetected,
		Client:     client,
	}))
	return ErrReuseDetected
}

// ChangePassword replaces the password hash after verifying the old
// password. Existing refresh tokens stay valid.
func (s *SessionService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	ctx, span := s.tracer.Start(ctx, "SessionService.ChangePassword",
		trace.WithAttributes(attribute.String("identity.id", in.IdentityID)))
	defer span.End()

	if strings.TrimSpace(in.IdentityID) == "" || in.OldPassword == "" || in.NewPassword == "" {
		return fail(span, fmt.Errorf("%w: old and new password are required", ErrInvalidInput))
	}

	identity, err := s.store.FindByID(ctx, in.IdentityID)
	if err != nil {
		return fail(span, storeError("lookup identity", err))
	}

	if !s.passwords.verify(in.OldPassword, identity.PasswordHash) {
		s.logger.Info("Password change rejected", zap.String("identity_id", identity.ID))
		return fail(span, ErrInvalidCredentials)
	}

	if s.policy != nil {
		if err := s.policy.Validate(in.NewPassword, domain.PasswordContext{
			Username: identity.Username,
			Email:    identity.Email,
			FullName: identity.FullName,
			Current:  in.OldPassword,
		}); err != nil {
			return fail(span, fmt.Errorf("%w: %w", ErrPasswordPolicyViolation, err))
		}
	}

	encoded, err := s.passwords.hash(in.NewPassword)
	if err != nil {
		s.logger.Error("Password hashing failed", zap.String("identity_id", identity.ID), zap.Error(err))
		return fail(span, fmt.Errorf("%w: hash password: %w", ErrInternalFailure, err))
	}

	now := s.clock()
	if err := s.store.SetPasswordHash(ctx, identity.ID, encoded, s.passwords.hasher.Algorithm(), now); err != nil {
		return fail(span, storeError("store password hash", err))
	}

	s.logger.Info("Password changed", zap.String("identity_id", identity.ID))
	s.publish(ctx, "password changed", s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		ChangedAt:  now,
		Client:     in.Client,
	}))
	return nil
}

// CurrentIdentity loads the sanitized identity for id.
func (s *SessionService) CurrentIdentity(ctx context.Context, id string) (domain.Identity, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Identity{}, ErrNotFound
	}
	identity, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Identity{}, storeError("lookup identity", err)
	}
	return identity.Sanitized(), nil
}

func (s *SessionService) issuePair(identity domain.Identity) (*domain.TokenPair, error) {
	access, accessExp, err := s.signer.IssueAccess(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: issue access token: %w", ErrInternalFailure, err)
	}
	refresh, refreshExp, err := s.signer.IssueRefresh(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: issue refresh token: %w", ErrInternalFailure, err)
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// publish logs event delivery failures; session state is already committed.
func (s *SessionService) publish(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	logger.WithContext(ctx, s.logger).Warn("Failed to publish event", zap.String("event", what), zap.Error(err))
}

func tokensEqual(stored *string, presented string) bool {
	if stored == nil || *stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
