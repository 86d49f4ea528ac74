package model

// transitions is a closed state table: each key lists the states it may
// move to.  Anything not listed is illegal.
type transitions[S comparable] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SessionStatus is the lifecycle of a session.  It only moves forward.
type SessionStatus string

const (
	SessionPreparing  SessionStatus = "PREPARING"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionFinished   SessionStatus = "FINISHED"
)

var sessionTransitions = transitions[SessionStatus]{
	SessionPreparing:  {SessionInProgress},
	SessionInProgress: {SessionFinished},
}

// CanTransitionTo reports whether the session may move from s to next.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return sessionTransitions.allows(s, next)
}

// PlayerStatus is the lifecycle of a player inside a session.
type PlayerStatus string

const (
	PlayerWaiting  PlayerStatus = "WAITING"
	PlayerReady    PlayerStatus = "READY"
	PlayerPlaying  PlayerStatus = "PLAYING"
	PlayerInactive PlayerStatus = "INACTIVE"
	PlayerFinished PlayerStatus = "FINISHED"
)

var playerTransitions = transitions[PlayerStatus]{
	PlayerWaiting:  {PlayerReady, PlayerInactive, PlayerFinished},
	PlayerReady:    {PlayerWaiting, PlayerPlaying, PlayerFinished},
	PlayerPlaying:  {PlayerWaiting, PlayerFinished},
	PlayerInactive: {PlayerWaiting, PlayerFinished},
}

// CanTransitionTo reports whether a player may move from s to next.
func (s PlayerStatus) CanTransitionTo(next PlayerStatus) bool {
	return playerTransitions.allows(s, next)
}

// OnCourt reports whether the status implies a court assignment.
func (s PlayerStatus) OnCourt() bool {
	return s == PlayerReady || s == PlayerPlaying
}

// CourtStatus is the lifecycle of a physical court.
type CourtStatus string

const (
	CourtEmpty CourtStatus = "EMPTY"
	// CourtReady holds a claimed group waiting to start.  A full group is
	// four players; partial staging may leave one to three, and such a
	// court cannot start a match until it is filled.
	CourtReady CourtStatus = "READY"
	CourtInUse CourtStatus = "IN_USE"
)

var courtTransitions = transitions[CourtStatus]{
	CourtEmpty: {CourtReady},
	CourtReady: {CourtEmpty, CourtInUse},
	CourtInUse: {CourtEmpty, CourtReady},
}

// CanTransitionTo reports whether a court may move from s to next.
func (s CourtStatus) CanTransitionTo(next CourtStatus) bool {
	return courtTransitions.allows(s, next)
}

// MatchStatus is the lifecycle of a match.  FINISHED is terminal.
type MatchStatus string

const (
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchFinished   MatchStatus = "FINISHED"
)

var matchTransitions = transitions[MatchStatus]{
	MatchInProgress: {MatchFinished},
}

// CanTransitionTo reports whether a match may move from s to next.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	return matchTransitions.allows(s, next)
}
