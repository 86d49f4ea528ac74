package service

import (
	"errors"

	"github.com/iliyamo/court-rotation/internal/pairing"
	"github.com/iliyamo/court-rotation/internal/repository"
)

// Errors returned by the engine.  They are sentinels: callers test them
// with errors.Is, the returned error may carry extra context.  Every
// failing operation has rolled back completely.
var (
	// ErrNotFound is returned when a session, court, player or match does
	// not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrConflict is returned when a concurrent writer changed the row
	// first.  Retrying with fresh state is safe.
	ErrConflict = repository.ErrConflict
	// ErrSessionNotActive is returned for engine mutations outside an
	// IN_PROGRESS session.
	ErrSessionNotActive = errors.New("session not active")
	// ErrInvalidState is returned when a court, match or player is not in a
	// state that allows the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrPlayerUnavailable is returned when a requested player is not
	// WAITING in the court's session.
	ErrPlayerUnavailable = errors.New("player unavailable")
	// ErrInsufficientPlayers is returned when fewer than four players wait.
	ErrInsufficientPlayers = pairing.ErrInsufficientPlayers
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)
