package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
	"github.com/ndk123-web/backend-structure/internal/infra/config"
)

const (
	// AccessTokenCookie carries the access token for browser clients.
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie carries the refresh token for browser clients.
	RefreshTokenCookie = "refreshToken"
	// AccessTokenHeader returns a rotated access token to bearer clients.
	AccessTokenHeader = "X-Access-Token"
	// RefreshTokenHeader carries the refresh token for non-cookie clients.
	RefreshTokenHeader = "X-Refresh-Token"
)

// SetSessionCookies writes both tokens as HttpOnly, SameSite=Strict cookies.
func SetSessionCookies(c *gin.Context, settings config.CookieSettings, pair domain.TokenPair) {
	writeCookie(c, settings, AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt)
	writeCookie(c, settings, RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt)
}

// ClearSessionCookies expires both token cookies.
func ClearSessionCookies(c *gin.Context, settings config.CookieSettings) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cookiePath(settings),
			Domain:   settings.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   settings.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func writeCookie(c *gin.Context, settings config.CookieSettings, name, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookiePath(settings),
		Domain:   settings.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   settings.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func cookiePath(settings config.CookieSettings) string {
	if settings.Path == "" {
		return "/"
	}
	return settings.Path
}

// AccessToken extracts the access token from the cookie or the bearer header.
func AccessToken(c *gin.Context) string {
	if value, err := c.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return bearerToken(c.GetHeader("Authorization"))
}

// RefreshToken extracts the refresh token from the cookie or X-Refresh-Token.
// fromHeader reports whether the client is a non-cookie client.
func RefreshToken(c *gin.Context) (token string, fromHeader bool) {
	if value, err := c.Cookie(RefreshTokenCookie); err == nil && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), false
	}
	if value := strings.TrimSpace(c.GetHeader(RefreshTokenHeader)); value != "" {
		return value, true
	}
	return "", false
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
