package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/middleware"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// StaffHandler serves the reservation pipeline.  Routes are mounted behind
// JWTAuth and RequireRole, so the actor is always known.
type StaffHandler struct {
	engine *booking.Engine
	log    *zap.Logger
}

func NewStaffHandler(engine *booking.Engine, log *zap.Logger) *StaffHandler {
	if engine == nil || log == nil {
		panic("nil dependency passed to NewStaffHandler")
	}
	return &StaffHandler{engine: engine, log: log}
}

// reservationView adds the statuses a reservation may move to next.
type reservationView struct {
	*model.Reservation
	AllowedTransitions []model.Status `json:"allowed_transitions"`
}

func view(r *model.Reservation) reservationView {
	return reservationView{Reservation: r, AllowedTransitions: booking.AllowedTransitions(r.Status)}
}

// Pipeline handles GET /v1/staff/pipeline?status=pending,confirmed&limit=N.
func (h *StaffHandler) Pipeline(c echo.Context) error {
	var statuses []model.Status
	for _, raw := range strings.Split(c.QueryParam("status"), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		st, err := model.ParseStatus(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		statuses = append(statuses, st)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "invalid limit")
		}
		limit = n
	}
	board, err := h.engine.Pipeline(c.Request().Context(), statuses, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pipeline": board})
}

// Get handles GET /v1/staff/reservations/:id.
func (h *StaffHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.engine.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(res))
}

// History handles GET /v1/staff/reservations/:id/history.
func (h *StaffHandler) History(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	entries, err := h.engine.History(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "history": entries})
}

type transitionRequest struct {
	To       string `json:"to"`
	Comment  string `json:"comment"`
	Override bool   `json:"override"`
}

// Transition handles POST /v1/staff/reservations/:id/transitions.  With
// override=true the regular transition table is bypassed; only ADMIN may
// do that.
func (h *StaffHandler) Transition(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var body transitionRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	to, err := model.ParseStatus(body.To)
	if err != nil {
		return badRequest(c, err.Error())
	}
	actor := middleware.Actor(c)
	ctx := c.Request().Context()

	var res *model.Reservation
	if body.Override {
		if middleware.Role(c) != middleware.RoleAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "override requires the ADMIN role"})
		}
		res, err = h.engine.Override(ctx, id, to, actor, body.Comment)
	} else {
		res, err = h.engine.Transition(ctx, id, to, actor, body.Comment)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(res))
}

// Reschedule handles PUT /v1/staff/reservations/:id/window.  The body is
// the new window.
func (h *StaffHandler) Reschedule(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var w model.TimeWindow
	if err := c.Bind(&w); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.engine.Reschedule(c.Request().Context(), id, w, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(res))
}
