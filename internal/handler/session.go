package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/service"
)

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(c echo.Context) error {
	var body service.NewSession
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.Engine.Sessions.Create(c.Request().Context(), body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// GetSession handles GET /v1/sessions/:id and includes the roster.
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.Engine.Sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	players, err := h.Engine.Sessions.Players(ctx, s.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, struct {
		*model.Session
		Players []model.Player `json:"players"`
	}{s, players})
}

// StartSession handles POST /v1/sessions/:id/start.
func (h *Handler) StartSession(c echo.Context) error {
	s, err := h.Engine.Sessions.Start(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// FinishSession handles POST /v1/sessions/:id/finish.
func (h *Handler) FinishSession(c echo.Context) error {
	s, err := h.Engine.Sessions.Finish(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// AddPlayer handles POST /v1/sessions/:id/players.
func (h *Handler) AddPlayer(c echo.Context) error {
	var body service.NewPlayer
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Engine.Sessions.AddPlayer(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// WaitingQueue handles GET /v1/sessions/:id/waiting-queue.
func (h *Handler) WaitingQueue(c echo.Context) error {
	q, err := h.Engine.Queue.WaitingQueue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"players": q, "count": len(q)})
}

// Courts handles GET /v1/sessions/:id/courts.
func (h *Handler) Courts(c echo.Context) error {
	courts, err := h.Engine.Sessions.Courts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"courts": courts})
}

// MatchHistory handles GET /v1/sessions/:id/matches.
func (h *Handler) MatchHistory(c echo.Context) error {
	matches, err := h.Engine.Sessions.MatchHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"matches": matches})
}

// AdvanceWaitTimes handles PUT /v1/sessions/:id/wait-times.
func (h *Handler) AdvanceWaitTimes(c echo.Context) error {
	var body struct {
		Minutes   *int     `json:"minutes"`
		PlayerIDs []string `json:"player_ids"`
	}
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Minutes == nil {
		return badRequest(c, "minutes is required")
	}
	res, err := h.Engine.WaitTimes.AdvanceWaitTimes(c.Request().Context(), c.Param("id"), *body.Minutes, body.PlayerIDs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
