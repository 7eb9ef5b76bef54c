package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// DataResponse writes data with statusCode.
func DataResponse(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes a 200 response.
func SuccessResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusOK, data)
}

// CreatedResponse writes a 201 response.
func CreatedResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusCreated, data)
}

// errorHandler replaces echo's default so every error uses the envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var verrs validationErrors
	if errors.As(err, &verrs) {
		_ = DataResponse(c, http.StatusBadRequest, []ValidationError(verrs))
		return
	}

	appErr := FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.Status)
		return
	}
	_ = DataResponse(c, appErr.Status, []*AppError{appErr})
}
