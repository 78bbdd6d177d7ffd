package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/security"
	"github.com/ndk123-web/backend-structure/internal/infra/telemetry"
)

// Credentials are the raw tokens a transport extracted from a request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Client       domain.ClientMeta
}

// Authentication is the resolved caller of a request.
type Authentication struct {
	Identity domain.Identity
	Claims   domain.AccessClaims
	// Rotated is set when the request crossed the rotation threshold and a
	// new pair must be delivered to the client.
	Rotated *domain.TokenPair
}

// Authenticator verifies access tokens on every protected request and
// rotates the session when the access token is close to expiry.
type Authenticator struct {
	sessions  *SessionService
	signer    port.TokenSigner
	metrics   port.AuthMetrics
	logger    *zap.Logger
	tracer    trace.Tracer
	clock     func() time.Time
	threshold time.Duration
}

// NewAuthenticator constructs an Authenticator sharing the session service's
// store and rotation threshold.
func NewAuthenticator(sessions *SessionService, signer port.TokenSigner, metrics port.AuthMetrics, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*telemetry.AuthMetrics)(nil)
	}
	return &Authenticator{
		sessions:  sessions,
		signer:    signer,
		metrics:   metrics,
		logger:    log.Named("authenticator"),
		tracer:    otel.Tracer(telemetry.TracerName),
		clock:     func() time.Time { return time.Now().UTC() },
		threshold: sessions.RotationThreshold(),
	}
}

// WithClock overrides the clock used to compute remaining token lifetime.
func (a *Authenticator) WithClock(clock func() time.Time) *Authenticator {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// Authenticate resolves the caller behind creds.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*Authentication, error) {
	ctx, span := a.tracer.Start(ctx, "Authenticator.Authenticate")
	defer span.End()

	token := strings.TrimSpace(creds.AccessToken)
	if token == "" {
		a.metrics.ObserveAuthentication(outcomeUnauthorized)
		return nil, fail(span, ErrUnauthorized)
	}

	claims, err := a.signer.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			a.metrics.ObserveAuthentication(outcomeExpired)
			return nil, fail(span, fmt.Errorf("%w: %w", ErrTokenExpired, err))
		}
		a.metrics.ObserveAuthentication(outcomeUnauthorized)
		return nil, fail(span, fmt.Errorf("%w: %w: %w", ErrUnauthorized, ErrInvalidToken, err))
	}
	span.SetAttributes(attribute.String("identity.id", claims.IdentityID))

	identity, err := a.sessions.CurrentIdentity(ctx, claims.IdentityID)
	if err != nil {
		a.metrics.ObserveAuthentication(storeOutcome(err))
		return nil, fail(span, err)
	}

	result := &Authentication{Identity: identity, Claims: *claims}

	refresh := strings.TrimSpace(creds.RefreshToken)
	if refresh == "" || claims.Remaining(a.clock()) >= a.threshold {
		a.metrics.ObserveAuthentication(outcomeSuccess)
		return result, nil
	}

	rotated, err := a.sessions.Refresh(ctx, RefreshInput{
		RefreshToken: refresh,
		Source:       domain.SessionSourceMiddleware,
		IdentityID:   claims.IdentityID,
		Client:       creds.Client,
	})
	switch {
	case err == nil:
		result.Rotated = &rotated.Tokens
		a.metrics.ObserveAuthentication(outcomeRotated)
		return result, nil
	case errors.Is(err, ErrReuseDetected):
		a.metrics.ObserveAuthentication(outcomeReuseDetected)
		return nil, fail(span, fmt.Errorf("%w: %w", ErrUnauthorized, err))
	case errors.Is(err, ErrRotationConflict):
		a.logger.Debug("Rotation already performed by a concurrent request",
			zap.String("identity_id", identity.ID))
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrNotFound):
		a.logger.Warn("Ignoring unusable refresh token",
			zap.String("identity_id", identity.ID),
			zap.Error(err),
		)
	default:
		a.metrics.ObserveAuthentication(outcomeStoreFailure)
		return nil, err
	}

	a.metrics.ObserveAuthentication(outcomeSuccess)
	return result, nil
}

type identityContextKey struct{}

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return identity, ok
}
