package interceptors

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

const (
	authorizationKey = "authorization"
	bearerPrefix     = "bearer "

	// RefreshTokenKey carries the refresh token used for proactive rotation.
	RefreshTokenKey = "x-refresh-token"
	// AccessTokenHeaderKey returns a rotated access token in response headers.
	AccessTokenHeaderKey = "x-access-token"
	// RefreshTokenHeaderKey returns a rotated refresh token in response headers.
	RefreshTokenHeaderKey = "x-refresh-token"

	userAgentKey    = "user-agent"
	forwardedForKey = "x-forwarded-for"
)

// Authenticator resolves the caller of a request from its tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, creds usecase.Credentials) (*usecase.Authentication, error)
}

// AuthOptions fine-tunes interceptor behaviour.
type AuthOptions struct {
	AllowMethods []string
	Logger       *zap.Logger
}

// AuthInterceptor authenticates incoming requests with the session access token.
type AuthInterceptor struct {
	auth   Authenticator
	logger *zap.Logger
	allow  map[string]struct{}
}

// NewAuthInterceptor constructs a new AuthInterceptor instance.
func NewAuthInterceptor(auth Authenticator, opts AuthOptions) *AuthInterceptor {
	allow := make(map[string]struct{}, len(opts.AllowMethods))
	for _, method := range opts.AllowMethods {
		if method = strings.TrimSpace(method); method != "" {
			allow[method] = struct{}{}
		}
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthInterceptor{auth: auth, logger: log, allow: allow}
}

// UnaryServerInterceptor returns a gRPC unary interceptor that enforces authentication.
func (ai *AuthInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if ai == nil || ai.auth == nil {
			return handler(ctx, req)
		}

		if _, ok := ai.allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		token, err := tokenFromMetadata(ctx)
		if err != nil {
			ai.logger.Debug("gRPC authentication failed", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		result, err := ai.auth.Authenticate(ctx, usecase.Credentials{
			AccessToken:  token,
			RefreshToken: firstValue(ctx, RefreshTokenKey),
			Client:       clientMeta(ctx),
		})
		if err != nil {
			return nil, ai.statusFor(ctx, info.FullMethod, err)
		}

		if result.Rotated != nil {
			header := metadata.Pairs(
				AccessTokenHeaderKey, result.Rotated.AccessToken,
				RefreshTokenHeaderKey, result.Rotated.RefreshToken,
			)
			if err := grpc.SetHeader(ctx, header); err != nil {
				ai.logger.Warn("gRPC rotated tokens not delivered", zap.String("method", info.FullMethod),
					zap.String("identity_id", result.Identity.ID), zap.Error(err))
			}
		}

		return handler(usecase.WithIdentity(ctx, result.Identity), req)
	}
}

func (ai *AuthInterceptor) statusFor(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrTransientStoreFailure):
		logger.WithContext(ctx, ai.logger).Warn("gRPC authentication store unavailable", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, usecase.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "access token expired")
	case errors.Is(err, usecase.ErrUnauthorized), errors.Is(err, usecase.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, usecase.ErrNotFound):
		return status.Error(codes.NotFound, "identity not found")
	default:
		logger.WithContext(ctx, ai.logger).Error("gRPC authentication failed", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Internal, "authentication failed")
	}
}

// IdentityFromContext returns the identity attached by the interceptor.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	return usecase.IdentityFromContext(ctx)
}

func tokenFromMetadata(ctx context.Context) (string, error) {
	raw := firstValue(ctx, authorizationKey)
	if raw == "" {
		return "", errors.New("authorization token required")
	}

	if len(raw) < len(bearerPrefix) || !strings.HasPrefix(strings.ToLower(raw), bearerPrefix) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(raw[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("authorization token required")
	}

	return token, nil
}

// firstValue returns the first non-blank metadata value for key. Keys are
// lowercased by grpc, so lookups are case-insensitive.
func firstValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(key) {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func clientMeta(ctx context.Context) domain.ClientMeta {
	meta := domain.ClientMeta{UserAgent: firstValue(ctx, userAgentKey)}
	if forwarded := firstValue(ctx, forwardedForKey); forwarded != "" {
		meta.IP = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		return meta
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			meta.IP = host
		}
	}
	return meta
}
