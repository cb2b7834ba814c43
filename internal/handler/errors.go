package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/breaker"
	"github.com/iliyamo/neststay/internal/logger"
	"github.com/iliyamo/neststay/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 10 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError maps service errors to HTTP responses.  Unknown errors are
// logged and answered with a generic 500.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "field": ve.Field, "message": ve.Message})
	case errors.Is(err, service.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient_inventory", "message": "not enough rooms for the requested dates"})
	case errors.Is(err, service.ErrRoomTypeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "room type not found"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "booking not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "booking belongs to another guest"})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_state", "message": "booking status does not allow this action"})
	case errors.Is(err, breaker.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "unavailable", "message": "room catalog unavailable"})
	}
	logger.FromContext(c.Request().Context(), nil).Error("request failed",
		zap.String("route", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal error"})
}

func badRequest(c echo.Context, field, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "field": field, "message": msg})
}
