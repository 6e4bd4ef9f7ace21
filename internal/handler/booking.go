// Package handler exposes the booking engine over HTTP: the public booking
// widget endpoints and the staff pipeline endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// ResourceLister lists the bookable catalog.
type ResourceLister interface {
	ListActive(ctx context.Context) ([]model.Resource, error)
}

// BookingHandler serves the customer-facing endpoints.  None of them
// require authentication.
type BookingHandler struct {
	engine  *booking.Engine
	catalog ResourceLister
	log     *zap.Logger
}

// NewBookingHandler panics if a dependency is nil.
func NewBookingHandler(engine *booking.Engine, catalog ResourceLister, log *zap.Logger) *BookingHandler {
	if engine == nil || catalog == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{engine: engine, catalog: catalog, log: log}
}

// Resources handles GET /v1/resources.
func (h *BookingHandler) Resources(c echo.Context) error {
	list, err := h.catalog.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"resources": list})
}

// Slots handles GET /v1/slots?date=YYYY-MM-DD and lists the pickup and
// return times offered that day.  Closed days return an empty list.
func (h *BookingHandler) Slots(c echo.Context) error {
	d, err := model.ParseDate(c.QueryParam("date"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	slots := h.engine.Calendar().ValidSlotsFor(d)
	return c.JSON(http.StatusOK, echo.Map{
		"date":   d,
		"closed": len(slots) == 0,
		"slots":  slots,
	})
}

// Quote handles POST /v1/quotes.  It prices a request without booking it;
// availability is not checked.
func (h *BookingHandler) Quote(c echo.Context) error {
	var req booking.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	q, err := h.engine.Quote(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Submit handles POST /v1/reservations.  A successful booking answers 201
// with the new reservation in pending status.
func (h *BookingHandler) Submit(c echo.Context) error {
	var req booking.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	id, err := h.engine.Submit(ctx, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.engine.Get(ctx, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id":      res.ID,
		"status":              res.Status,
		"billable_days":       res.BillableDays,
		"promo_applied":       res.PromoApplied,
		"total_price_cents":   res.TotalPriceCents,
		"deposit_total_cents": res.DepositTotalCents,
	})
}

// Availability handles GET /v1/resources/:id/availability.  end_date
// defaults to start_date.  next_available_date is the first free day on
// or after start_date.
func (h *BookingHandler) Availability(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid resource id")
	}
	start, err := model.ParseDate(c.QueryParam("start_date"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	end := start
	if raw := c.QueryParam("end_date"); raw != "" {
		if end, err = model.ParseDate(raw); err != nil {
			return badRequest(c, err.Error())
		}
	}
	if end.Before(start) {
		return badRequest(c, "end_date is before start_date")
	}

	ctx := c.Request().Context()
	idx := h.engine.Availability()
	free, err := idx.IsAvailable(ctx, id, model.TimeWindow{StartDate: start, EndDate: end})
	if err != nil {
		return respondError(c, h.log, err)
	}
	next, err := idx.NextAvailableDate(ctx, id, start)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"resource_id":         id,
		"available":           free,
		"next_available_date": next,
	})
}

// Calendar handles GET /v1/calendar?resource_ids=1,2&from=&to= and returns
// the active reservations per resource for the range.
func (h *BookingHandler) Calendar(c echo.Context) error {
	ids, err := parseIDList(c.QueryParam("resource_ids"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	from, err := model.ParseDate(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := model.ParseDate(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	byResource, err := h.engine.Availability().ReservationsInRange(c.Request().Context(), ids, from, to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "resources": byResource})
}

func parseIDList(raw string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid resource id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("resource_ids is required")
	}
	return ids, nil
}
