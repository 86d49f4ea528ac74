package model

import "time"

// SlotKind tells whether a claim on a court is the group about to play
// (SELECTED) or the group reserved for after the current match
// (PRESELECTED).
type SlotKind string

const (
	SlotSelected    SlotKind = "SELECTED"
	SlotPreSelected SlotKind = "PRESELECTED"
)

// Assignment places a player at a position (0..3) of a court.  Positions 0
// and 1 form the first pair, 2 and 3 the second.
type Assignment struct {
	PlayerID string `json:"player_id"`
	Position int    `json:"position"`
}

// Court is a physical court of a session.  Version is bumped on every
// transition and is what concurrent writers compare against.
type Court struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"session_id"`
	CourtNumber    int         `json:"court_number"`
	Name           string      `json:"name"`
	Status         CourtStatus `json:"status"`
	CurrentMatchID *string     `json:"current_match_id,omitempty"`
	Version        int64       `json:"version"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// CourtView is a court with the players currently claimed for it.
type CourtView struct {
	Court
	Selected     []Assignment `json:"selected_players"`
	PreSelected  []Assignment `json:"pre_selected_players"`
	CurrentMatch *Match       `json:"current_match,omitempty"`
}
