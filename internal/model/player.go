package model

import (
	"math"
	"time"
)

// MaxWaitMinutes caps both wait counters; the ticker saturates instead of
// overflowing.
const MaxWaitMinutes = math.MaxInt32

// Player is a participant of a single session.  Wait counters are in
// minutes.  CurrentWaitTime is the fairness clock and is reset whenever the
// player gets on court or comes off it; TotalWaitTime only grows.
type Player struct {
	ID              string       `json:"id"`
	SessionID       string       `json:"session_id"`
	PlayerNumber    int          `json:"player_number"`
	Name            string       `json:"name"`
	Level           Level        `json:"level"`
	Status          PlayerStatus `json:"status"`
	CurrentWaitTime int          `json:"current_wait_time"`
	TotalWaitTime   int          `json:"total_wait_time"`
	MatchesPlayed   int          `json:"matches_played"`
	CurrentCourtID  *string      `json:"current_court_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// QueuedPlayer is a waiting player together with its 1-based queue rank.
type QueuedPlayer struct {
	Player
	Position int `json:"queue_position"`
}
