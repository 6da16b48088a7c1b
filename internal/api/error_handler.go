package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/paysecure/auth-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Code    string                  `json:"code"`
	Error   string                  `json:"error"`
	Details []domain.FieldViolation `json:"details,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status and stable code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"code", "error", "details"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorResponse{
			Code:    domain.ErrValidation.Code,
			Error:   domain.ErrValidation.Message,
			Details: verr.Fields,
		}
	}

	// Echo's own errors (bind failures, 404 from router, rate limiting, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, errorResponse{Code: statusCode(he.Code), Error: msg}
	}

	var derr *domain.Error
	if errors.As(err, &derr) {
		status := domainStatus(derr)
		if status >= http.StatusInternalServerError {
			logUnexpected(log, c, err)
		} else if sub := domain.TokenFailure(err); sub != nil {
			log.Debug().Str("reason", sub.Error()).Str("path", c.Path()).Msg("token rejected")
		}
		return status, errorResponse{Code: derr.Code, Error: derr.Message}
	}

	logUnexpected(log, c, err)
	return http.StatusInternalServerError, errorResponse{Code: domain.ErrInternal.Code, Error: domain.ErrInternal.Message}
}

func domainStatus(e *domain.Error) int {
	switch e {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrUsernameTaken, domain.ErrEmailTaken:
		return http.StatusConflict
	case domain.ErrInvalidCredentials, domain.ErrInvalidToken:
		return http.StatusUnauthorized
	case domain.ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusCode derives a stable code from an HTTP status, e.g. 429 -> TOO_MANY_REQUESTS.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

func logUnexpected(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
}
