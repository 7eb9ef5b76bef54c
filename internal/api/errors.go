package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"StockForecaster/internal/collector"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/service"
	"StockForecaster/internal/watchlist"

	"github.com/labstack/echo/v4"
)

// AppError is an error with the HTTP status and code it is reported with.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates an AppError wrapping err.
func NewAppError(status int, code string, err error) *AppError {
	return &AppError{Code: code, Message: err.Error(), Status: status, Err: err}
}

// NotFoundError creates a 404 error.
func NotFoundError(format string, a ...any) *AppError {
	return &AppError{Code: "ERR_NOT_FOUND", Message: fmt.Sprintf(format, a...), Status: http.StatusNotFound}
}

// FromError maps domain errors onto HTTP statuses.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return &AppError{
			Code:    fmt.Sprintf("ERR_HTTP_%d", he.Code),
			Message: fmt.Sprint(he.Message),
			Status:  he.Code,
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		return NewAppError(http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_DATA", err)
	case errors.Is(err, forecast.ErrInvalidParameter),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, watchlist.ErrEmptySymbol):
		return NewAppError(http.StatusBadRequest, "ERR_BAD_REQUEST", err)
	case errors.Is(err, collector.ErrSymbolNotFound):
		return NewAppError(http.StatusNotFound, "ERR_SYMBOL_NOT_FOUND", err)
	case errors.Is(err, collector.ErrSearchUnsupported),
		errors.Is(err, collector.ErrOverviewUnsupported):
		return NewAppError(http.StatusNotImplemented, "ERR_NOT_SUPPORTED", err)
	case errors.Is(err, collector.ErrUpstream):
		return NewAppError(http.StatusBadGateway, "ERR_UPSTREAM", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAppError(http.StatusGatewayTimeout, "ERR_TIMEOUT", err)
	case errors.Is(err, forecast.ErrComputation):
		return NewAppError(http.StatusInternalServerError, "ERR_COMPUTATION", err)
	default:
		return &AppError{Code: "ERR_INTERNAL", Message: "Something went wrong", Status: http.StatusInternalServerError, Err: err}
	}
}
