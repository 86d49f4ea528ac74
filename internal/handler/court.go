package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-rotation/internal/model"
)

type claimRequest struct {
	Players    []model.Assignment `json:"players"`
	MustBeFour *bool              `json:"must_be_four"`
}

type resultRequest struct {
	Result *model.MatchResult `json:"result"`
}

// SuggestedPlayers handles GET /v1/courts/:id/suggested-players?topCount=.
func (h *Handler) SuggestedPlayers(c echo.Context) error {
	top, ok := intQuery(c, "topCount")
	if !ok {
		return badRequest(c, "topCount must be an integer")
	}
	s, err := h.Engine.Courts.SuggestGroup(c.Request().Context(), c.Param("id"), top)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// AutoAssign handles POST /v1/courts/:id/auto-assign?topCount=.
func (h *Handler) AutoAssign(c echo.Context) error {
	top, ok := intQuery(c, "topCount")
	if !ok {
		return badRequest(c, "topCount must be an integer")
	}
	view, err := h.Engine.Courts.AutoAssign(c.Request().Context(), c.Param("id"), top)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// SelectPlayers handles POST /v1/courts/:id/select-players.  must_be_four
// defaults to true.
func (h *Handler) SelectPlayers(c echo.Context) error {
	var body claimRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	mustBeFour := body.MustBeFour == nil || *body.MustBeFour
	view, err := h.Engine.Courts.SelectPlayers(c.Request().Context(), c.Param("id"), body.Players, mustBeFour)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// DeselectPlayers handles POST /v1/courts/:id/deselect-players.
func (h *Handler) DeselectPlayers(c echo.Context) error {
	view, err := h.Engine.Courts.DeselectPlayers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// PreSelect handles POST /v1/courts/:id/pre-select.
func (h *Handler) PreSelect(c echo.Context) error {
	var body claimRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	view, err := h.Engine.Courts.PreSelect(c.Request().Context(), c.Param("id"), body.Players)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// CancelPreSelect handles DELETE /v1/courts/:id/pre-select.
func (h *Handler) CancelPreSelect(c echo.Context) error {
	view, err := h.Engine.Courts.CancelPreSelect(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// StartMatch handles POST /v1/courts/:id/start-match.
func (h *Handler) StartMatch(c echo.Context) error {
	m, err := h.Engine.Matches.StartMatch(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// EndMatchOnCourt handles POST /v1/courts/:id/end-match.
func (h *Handler) EndMatchOnCourt(c echo.Context) error {
	var body resultRequest
	if err := bind(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	m, err := h.Engine.Matches.EndMatchOnCourt(c.Request().Context(), c.Param("id"), body.Result)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
