package model

import "time"

// SetScore is the score of one set, team 1 (positions 0,1) against team 2
// (positions 2,3).
type SetScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Match is one game played on a court.  Matches are never deleted; once
// FINISHED they are history.
type Match struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	CourtID   string       `json:"court_id"`
	Status    MatchStatus  `json:"status"`
	StartTime time.Time    `json:"start_time"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
	Players   []Assignment `json:"players"`
	Scores    []SetScore   `json:"scores,omitempty"`
	WinnerIDs []string     `json:"winner_ids,omitempty"`
	IsDraw    bool         `json:"is_draw"`
	Notes     *string      `json:"notes,omitempty"`
}

// MatchResult is the optional outcome supplied when a match ends.
type MatchResult struct {
	Scores    []SetScore `json:"scores"`
	WinnerIDs []string   `json:"winner_ids"`
	IsDraw    bool       `json:"is_draw"`
	Notes     *string    `json:"notes"`
}

// HasPlayer reports whether playerID is one of the match's four players.
func (m Match) HasPlayer(playerID string) bool {
	for _, a := range m.Players {
		if a.PlayerID == playerID {
			return true
		}
	}
	return false
}

// PlayerIDs returns the match's players in position order.
func (m Match) PlayerIDs() []string {
	ids := make([]string, len(m.Players))
	for i, a := range m.Players {
		ids[i] = a.PlayerID
	}
	return ids
}
