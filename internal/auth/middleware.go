package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// ClientIDKey is the echo context key holding the authenticated client ID
	ClientIDKey = "client_id"

	// AnonymousClient is used when authentication is disabled
	AnonymousClient = "anonymous"
)

// Middleware requires a valid bearer token, taken from the Authorization header
// or the token query parameter. A nil issuer disables authentication.
func Middleware(issuer *Issuer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if issuer == nil {
				c.Set(ClientIDKey, AnonymousClient)
				return next(c)
			}

			claims, err := issuer.Validate(TokenFromRequest(c.Request()))
			if err != nil {
				logger.Warn("Request rejected: invalid token",
					zap.String("path", c.Path()),
					zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
			}

			c.Set(ClientIDKey, claims.ClientID)
			return next(c)
		}
	}
}

// TokenFromRequest extracts the bearer token from the header, falling back to the query string
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return r.URL.Query().Get("token")
}

// ClientID returns the authenticated client ID stored by Middleware
func ClientID(c echo.Context) string {
	if id, ok := c.Get(ClientIDKey).(string); ok && id != "" {
		return id
	}
	return AnonymousClient
}
