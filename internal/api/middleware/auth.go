package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// Context keys set by Auth.
const (
	ClaimsKey = "auth.claims"
	TokenKey  = "auth.token"
)

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Claims, error)
}

// Auth validates the bearer token and injects its claims into the context.
// Every rejection is reported as domain.ErrInvalidToken.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			claims, err := verifier.Verify(c.Request().Context(), raw)
			if err != nil {
				return err
			}

			c.Set(ClaimsKey, claims)
			c.Set(TokenKey, raw)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrInvalidToken)
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, domain.TokenTypeBearer) || token == "" {
		return "", fmt.Errorf("%w: invalid authorization header", domain.ErrInvalidToken)
	}
	return token, nil
}
