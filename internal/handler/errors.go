package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
)

// respondError maps engine errors to HTTP responses.  Anything unknown is
// logged and reported as 500 without details.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var unavailable *booking.UnavailableError
	var transition *booking.TransitionError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":               "resource_unavailable",
			"message":             unavailable.Error(),
			"resource_id":         unavailable.ResourceID,
			"resource_name":       unavailable.ResourceName,
			"next_available_date": unavailable.NextAvailable,
			"next_fit_date":       unavailable.NextFit,
		})
	case errors.As(err, &transition):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":   "invalid_transition",
			"message": transition.Error(),
			"from":    transition.From,
			"to":      transition.To,
		})
	case errors.Is(err, booking.ErrInvalidWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_window", "message": err.Error()})
	case errors.Is(err, booking.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, booking.ErrPersistenceConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "persistence_conflict", "message": "please retry"})
	}
	log.Error("request failed",
		zap.String("route", c.Path()),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": msg})
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
