package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary is the sanitized identity returned by the API.
type UserSummary struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"cover_image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newUserSummary(identity domain.Identity) UserSummary {
	return UserSummary{
		ID:         identity.ID,
		Username:   identity.Username,
		Email:      identity.Email,
		FullName:   identity.FullName,
		Avatar:     identity.Avatar,
		CoverImage: identity.CoverImage,
		CreatedAt:  identity.CreatedAt,
		UpdatedAt:  identity.UpdatedAt,
	}
}

// RegistrationRequest defines the payload for the register endpoint.
type RegistrationRequest struct {
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"required"`
	FullName   string `json:"fullname" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Avatar     string `json:"avatar" binding:"required"`
	CoverImage string `json:"cover_image"`
}

// LoginRequest accepts either a generic identifier or an explicit username or email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password" binding:"required"`
}

func (r LoginRequest) identifier() string {
	for _, candidate := range []string{r.Identifier, r.Username, r.Email} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return ""
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User         UserSummary `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
}

// TokenRefreshRequest carries the refresh token for non-cookie clients.
type TokenRefreshRequest struct {
	RefreshToken       string `json:"refresh_token"`
	RefreshTokenLegacy string `json:"refreshToken"`
}

func (r TokenRefreshRequest) token() string {
	if v := strings.TrimSpace(r.RefreshToken); v != "" {
		return v
	}
	return strings.TrimSpace(r.RefreshTokenLegacy)
}

// TokenRefreshResponse is returned by a successful rotation.
type TokenRefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// PasswordChangeRequest defines the payload for the change-password endpoint.
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func expiresIn(at time.Time) int {
	seconds := int(time.Until(at).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
