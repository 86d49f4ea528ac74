// Package router registers the HTTP routes.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-rotation/internal/handler"
	"github.com/iliyamo/court-rotation/internal/middleware"
	"github.com/iliyamo/court-rotation/internal/utils"
)

// HostOptions carries the Redis-backed middlewares.  A nil field disables
// that middleware.
type HostOptions struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterHost registers the engine API under /v1.  Every route requires a
// valid access token with the HOST role; mutating routes also pass
// through the rate limiter.  Only single match lookups go through the
// response cache: the handler marks running matches no-store, so only
// FINISHED matches, which never change, are replayed.
func RegisterHost(e *echo.Echo, h *handler.Handler, jwtSecret string, opts HostOptions) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleHost))

	var limited []echo.MiddlewareFunc
	if opts.RateLimit != nil {
		limited = append(limited, opts.RateLimit)
	}
	var cached []echo.MiddlewareFunc
	if opts.Cache != nil {
		cached = append(cached, opts.Cache)
	}

	// Sessions
	g.POST("/sessions", h.CreateSession, limited...)
	g.GET("/sessions/:id", h.GetSession)
	g.POST("/sessions/:id/start", h.StartSession, limited...)
	g.POST("/sessions/:id/finish", h.FinishSession, limited...)
	g.POST("/sessions/:id/players", h.AddPlayer, limited...)
	g.GET("/sessions/:id/waiting-queue", h.WaitingQueue)
	g.GET("/sessions/:id/courts", h.Courts)
	g.GET("/sessions/:id/matches", h.MatchHistory)
	g.PUT("/sessions/:id/wait-times", h.AdvanceWaitTimes, limited...)

	// Courts
	g.GET("/courts/:id/suggested-players", h.SuggestedPlayers)
	g.POST("/courts/:id/auto-assign", h.AutoAssign, limited...)
	g.POST("/courts/:id/select-players", h.SelectPlayers, limited...)
	g.POST("/courts/:id/deselect-players", h.DeselectPlayers, limited...)
	g.POST("/courts/:id/pre-select", h.PreSelect, limited...)
	g.DELETE("/courts/:id/pre-select", h.CancelPreSelect, limited...)
	g.POST("/courts/:id/start-match", h.StartMatch, limited...)
	g.POST("/courts/:id/end-match", h.EndMatchOnCourt, limited...)

	// Matches and players
	g.GET("/matches/:id", h.GetMatch, cached...)
	g.POST("/matches/:id/end", h.EndMatch, limited...)
	g.GET("/players/:id/queue-position", h.QueuePosition)
	g.PATCH("/players/:id/toggle-inactive", h.TogglePlayerActive, limited...)
}
