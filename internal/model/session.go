package model

import "time"

// PlayersPerCourt is the size of a doubles group.
const PlayersPerCourt = 4

// Session is one timed activity block with a fixed set of courts and a
// roster of players.
//
// Fields:
//  ID                 – primary key (UUID).
//  Name               – display name chosen by the host.
//  Status             – PREPARING, IN_PROGRESS or FINISHED.
//  NumberOfCourts     – number of courts created with the session.
//  MaxPlayersPerCourt – group size per court (always 4 for doubles).
//  SessionDuration    – planned length in minutes.
//  StartTime/EndTime  – set on the matching transition.
type Session struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Status             SessionStatus `json:"status"`
	NumberOfCourts     int           `json:"number_of_courts"`
	MaxPlayersPerCourt int           `json:"max_players_per_court"`
	SessionDuration    int           `json:"session_duration_min"`
	StartTime          *time.Time    `json:"start_time,omitempty"`
	EndTime            *time.Time    `json:"end_time,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Active reports whether engine mutations are allowed.
func (s Session) Active() bool {
	return s.Status == SessionInProgress
}
