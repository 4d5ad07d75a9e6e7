package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/platform/correlation"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
)

// correlationMiddleware reuses a well-formed inbound X-Request-ID or mints
// one, and echoes it on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

// ErrorRenderer writes the response for a structured error.
type ErrorRenderer func(c echo.Context, err *apperrors.Error) error

// ErrorHandlingMiddleware logs structured errors returned by handlers and
// hands them to render. echo.HTTPErrors pass through to echo's handler.
func ErrorHandlingMiddleware(render ErrorRenderer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)

			if err := render(c, structuredErr); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// renderError shows error.html with the mapped status. Unauthenticated
// requests go back to the landing page instead.
func (s *Server) renderError(c echo.Context, err *apperrors.Error) error {
	if err.Type == apperrors.TypeUnauthenticated {
		return c.Redirect(http.StatusFound, "/")
	}
	data := map[string]string{"Message": s.errorMessage(c, err)}
	return s.renderTemplateStatus(c, err.HTTPStatus(), "error.html", s.newPage(c, data))
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(ctxKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeUnauthenticated, apperrors.TypeForbidden:
		slog.WarnContext(ctx, "Access denied", attrs...)
	case apperrors.TypeAuth:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.WarnContext(ctx, "Authentication failed", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}
