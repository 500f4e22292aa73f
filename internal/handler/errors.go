package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"stationery-storefront/internal/apperr"
	"stationery-storefront/internal/dto"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {success:false, message, error}. Provider
// detail and causes are logged here and never reach the response.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			attrs := []any{"method", c.Request().Method, "path", c.Path(), "status", status, "err", err}
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Detail != "" {
				attrs = append(attrs, "detail", appErr.Detail)
			}
			logger.ErrorContext(c.Request().Context(), "request failed", attrs...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("write error response", "err", err)
		}
	}
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		return he.Code, dto.ErrorResponse{Success: false, Message: msg, Error: httpErrorCode(he.Code)}
	}

	return apperr.HTTPStatus(err), dto.ErrorResponse{
		Success: false,
		Message: apperr.Message(err),
		Error:   apperr.KindOf(err).String(),
	}
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindValidation.String()
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.KindUnauthorized.String()
	case http.StatusNotFound:
		return apperr.KindNotFound.String()
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return apperr.KindInternal.String()
	}
}
