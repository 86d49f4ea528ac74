// Package queue carries match lifecycle events over RabbitMQ.  The engine
// publishes after each committed transition; a consumer appends them to
// logs/matches.log.  Delivery is best effort and never blocks the engine.
package queue

import "github.com/iliyamo/court-rotation/internal/model"

// EventsQueueName is the durable queue every lifecycle event is routed to.
const EventsQueueName = "court.events"

const (
	EventMatchStarted    = "match.started"
	EventMatchFinished   = "match.finished"
	EventSessionFinished = "session.finished"
)

// Event describes one committed lifecycle transition.  It carries enough
// context for downstream consumers to log or notify without querying the
// primary store.
type Event struct {
	Type       string           `json:"type"`
	SessionID  string           `json:"session_id"`
	CourtID    string           `json:"court_id,omitempty"`
	MatchID    string           `json:"match_id,omitempty"`
	MatchIDs   []string         `json:"match_ids,omitempty"`
	PlayerIDs  []string         `json:"player_ids,omitempty"`
	Scores     []model.SetScore `json:"scores,omitempty"`
	WinnerIDs  []string         `json:"winner_ids,omitempty"`
	IsDraw     bool             `json:"is_draw,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	OccurredAt string           `json:"occurred_at"`
}
