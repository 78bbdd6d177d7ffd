package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/infra/config"
	"github.com/ndk123-web/backend-structure/internal/infra/logger"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

const expiredChallenge = `Bearer error="invalid_token", error_description="token expired"`

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Authenticate resolves the caller from the access token and rotates the
// session when the token is close to expiry.
func Authenticate(auth *usecase.Authenticator, cookies config.CookieSettings, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		refresh, refreshFromHeader := RefreshToken(c)
		result, err := auth.Authenticate(c.Request.Context(), usecase.Credentials{
			AccessToken:  AccessToken(c),
			RefreshToken: refresh,
			Client:       ClientMeta(c),
		})
		if err != nil {
			abortUnauthenticated(c, cookies, log, err)
			return
		}

		if result.Rotated != nil {
			SetSessionCookies(c, cookies, *result.Rotated)
			c.Header(AccessTokenHeader, result.Rotated.AccessToken)
			if refreshFromHeader {
				c.Header(RefreshTokenHeader, result.Rotated.RefreshToken)
			}
		}

		c.Set(IdentityKey, result.Identity)
		c.Request = c.Request.WithContext(usecase.WithIdentity(c.Request.Context(), result.Identity))
		GetRequestContext(c).IdentityID = result.Identity.ID

		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, cookies config.CookieSettings, log *zap.Logger, err error) {
	switch {
	// Checked before reuse: a replay whose session clear failed must be retried.
	case errors.Is(err, usecase.ErrTransientStoreFailure):
		logger.WithContext(c.Request.Context(), log).Warn("Authentication store unavailable", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, newErrorResponse(c, "service temporarily unavailable"))
	case errors.Is(err, usecase.ErrReuseDetected):
		ClearSessionCookies(c, cookies)
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "unauthorized"))
	case errors.Is(err, usecase.ErrTokenExpired):
		c.Header("WWW-Authenticate", expiredChallenge)
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "access token expired"))
	case errors.Is(err, usecase.ErrUnauthorized), errors.Is(err, usecase.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "unauthorized"))
	case errors.Is(err, usecase.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, newErrorResponse(c, "identity not found"))
	default:
		logger.WithContext(c.Request.Context(), log).Error("Authentication failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
	}
}

// CurrentIdentity retrieves the authenticated identity (helper for handlers)
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}
