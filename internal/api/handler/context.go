package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/paysecure/auth-service/internal/api/middleware"
	"github.com/paysecure/auth-service/internal/core/domain"
)

// ctxClaims extracts the claims injected by the Auth middleware. Their
// absence means the route was mounted without it, which is treated as an
// unauthenticated request.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*domain.Claims)
	if claims == nil || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// ctxToken returns the raw bearer token accepted by the Auth middleware.
func ctxToken(c echo.Context) (string, error) {
	token, _ := c.Get(middleware.TokenKey).(string)
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	return token, nil
}
