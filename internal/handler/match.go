package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-rotation/internal/model"
)

// GetMatch handles GET /v1/matches/:id.  Only a FINISHED match may be
// cached; a running one is sent with Cache-Control: no-store.
func (h *Handler) GetMatch(c echo.Context) error {
	m, err := h.Engine.Matches.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if m.Status != model.MatchFinished {
		c.Response().Header().Set("Cache-Control", "no-store")
	}
	return c.JSON(http.StatusOK, m)
}

// EndMatch handles POST /v1/matches/:id/end.
func (h *Handler) EndMatch(c echo.Context) error {
	var body resultRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	m, err := h.Engine.Matches.EndMatch(c.Request().Context(), c.Param("id"), body.Result)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// QueuePosition handles GET /v1/players/:id/queue-position.  A player who
// is not waiting gets {"queued": false}.
func (h *Handler) QueuePosition(c echo.Context) error {
	id := c.Param("id")
	pos, ok, err := h.Engine.Queue.QueuePosition(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"player_id": id, "queued": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"player_id": id, "queued": true, "position": pos})
}

// TogglePlayerActive handles PATCH /v1/players/:id/toggle-inactive.
func (h *Handler) TogglePlayerActive(c echo.Context) error {
	p, err := h.Engine.Matches.TogglePlayerActive(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
