// Package handler exposes the court rotation engine over HTTP.  Handlers
// only parse requests and map engine errors; all rules live in the
// service package.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/court-rotation/internal/service"
)

// Handler serves the host API.
type Handler struct {
	Engine *service.Engine
}

// NewHandler panics when engine is nil.
func NewHandler(engine *service.Engine) *Handler {
	if engine == nil {
		panic("nil engine passed to NewHandler")
	}
	return &Handler{Engine: engine}
}

// errorStatus maps engine errors to an HTTP status and a stable code.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrSessionNotActive, http.StatusConflict, "session_not_active"},
	{service.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{service.ErrPlayerUnavailable, http.StatusConflict, "player_unavailable"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrInsufficientPlayers, http.StatusUnprocessableEntity, "insufficient_players"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

// fail writes err as {"error": code, "message": text}.  Unknown errors are
// logged and reported as internal_error without detail.
func fail(c echo.Context, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.JSON(e.status, echo.Map{"error": e.code, "message": err.Error()})
		}
	}
	log.Error().Err(err).Str("component", "http").Str("method", c.Request().Method).Str("path", c.Path()).
		Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": msg})
}

// bind decodes the JSON body; an empty body leaves dst untouched.
func bind(c echo.Context, dst interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return (&echo.DefaultBinder{}).BindBody(c, dst)
}

// intQuery parses an optional integer query parameter.
func intQuery(c echo.Context, name string) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
