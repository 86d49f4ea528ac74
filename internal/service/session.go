package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/queue"
)

// forcedEndNote marks matches closed by a session finish rather than by
// their players.
const forcedEndNote = "session finished"

// SessionService owns the session state machine and session setup.
type SessionService struct {
	*base
}

// NewPlayer is a roster entry for CreateSession and AddPlayer.
type NewPlayer struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// NewSession describes a session to create.
type NewSession struct {
	Name            string      `json:"name"`
	NumberOfCourts  int         `json:"number_of_courts"`
	SessionDuration int         `json:"session_duration_min"`
	Players         []NewPlayer `json:"players"`
}

// Create stores a PREPARING session with courts numbered from 1 and its
// players numbered in roster order.
func (s *SessionService) Create(ctx context.Context, in NewSession) (*model.Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, eris.Wrap(ErrInvalidInput, "name is required")
	}
	if in.NumberOfCourts < 1 {
		return nil, eris.Wrap(ErrInvalidInput, "at least one court is required")
	}
	if in.SessionDuration < 0 {
		return nil, eris.Wrap(ErrInvalidInput, "session duration must not be negative")
	}
	levels := make([]model.Level, len(in.Players))
	for i, p := range in.Players {
		if strings.TrimSpace(p.Name) == "" {
			return nil, eris.Wrapf(ErrInvalidInput, "player %d has no name", i+1)
		}
		l, err := model.ParseLevel(p.Level)
		if err != nil {
			return nil, eris.Wrap(ErrInvalidInput, err.Error())
		}
		levels[i] = l
	}

	now := s.clock()
	session := &model.Session{
		ID:                 uuid.NewString(),
		Name:               name,
		Status:             model.SessionPreparing,
		NumberOfCourts:     in.NumberOfCourts,
		MaxPlayersPerCourt: model.PlayersPerCourt,
		SessionDuration:    in.SessionDuration,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	courts := make([]model.Court, in.NumberOfCourts)
	for i := range courts {
		courts[i] = model.Court{
			ID:          uuid.NewString(),
			SessionID:   session.ID,
			CourtNumber: i + 1,
			Name:        fmt.Sprintf("Court %d", i+1),
			Status:      model.CourtEmpty,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	players := make([]model.Player, len(in.Players))
	for i, p := range in.Players {
		players[i] = newPlayer(session.ID, i+1, strings.TrimSpace(p.Name), levels[i], now)
	}

	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.Sessions.CreateTx(ctx, tx, session); err != nil {
			return err
		}
		if err := s.store.Courts.CreateBulkTx(ctx, tx, courts); err != nil {
			return err
		}
		return s.store.Players.CreateBulkTx(ctx, tx, players)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func newPlayer(sessionID string, number int, name string, level model.Level, now time.Time) model.Player {
	return model.Player{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		PlayerNumber: number,
		Name:         name,
		Level:        level,
		Status:       model.PlayerWaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Get returns a session.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.store.Sessions.GetByID(ctx, id)
}

// Players returns the session's roster by player number.
func (s *SessionService) Players(ctx context.Context, id string) ([]model.Player, error) {
	if _, err := s.store.Sessions.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Players.ListBySession(ctx, id)
}

// AddPlayer appends a WAITING player to a PREPARING or IN_PROGRESS
// session.  The player joins the queue with zero wait.
func (s *SessionService) AddPlayer(ctx context.Context, sessionID string, in NewPlayer) (*model.Player, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, eris.Wrap(ErrInvalidInput, "name is required")
	}
	level, err := model.ParseLevel(in.Level)
	if err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	var player model.Player
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		session, err := s.store.Sessions.GetByIDTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.Status == model.SessionFinished {
			return eris.Wrapf(ErrSessionNotActive, "session %s is %s", session.ID, session.Status)
		}
		number, err := s.store.Players.NextNumberTx(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		player = newPlayer(session.ID, number, name, level, s.clock())
		return s.store.Players.CreateBulkTx(ctx, tx, []model.Player{player})
	})
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// Start moves a PREPARING session to IN_PROGRESS.
func (s *SessionService) Start(ctx context.Context, id string) (*model.Session, error) {
	var session *model.Session
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := s.store.Sessions.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(model.SessionInProgress) {
			return eris.Wrapf(ErrInvalidState, "session %s is %s", id, current.Status)
		}
		ok, err := s.store.Sessions.TransitionTx(ctx, tx, id, current.Status, model.SessionInProgress, s.clock())
		if err != nil {
			return err
		}
		if !ok {
			return eris.Wrapf(ErrConflict, "session %s changed concurrently", id)
		}
		session, err = s.store.Sessions.GetByIDTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Finish closes an IN_PROGRESS session.  Running matches are ended
// without a result and without counting toward matchesPlayed, every
// player becomes FINISHED and every court is emptied.
func (s *SessionService) Finish(ctx context.Context, id string) (*model.Session, error) {
	var (
		session *model.Session
		forced  []string
	)
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()
		current, err := s.store.Sessions.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(model.SessionFinished) {
			return eris.Wrapf(ErrInvalidState, "session %s is %s", id, current.Status)
		}
		running, err := s.store.Matches.ListInProgressTx(ctx, tx, id)
		if err != nil {
			return err
		}
		note := forcedEndNote
		for _, m := range running {
			if err := s.store.Matches.FinishTx(ctx, tx, m.ID, now, model.MatchResult{Notes: &note}); err != nil {
				return err
			}
			forced = append(forced, m.ID)
		}
		if _, err := s.store.Players.FinishSessionTx(ctx, tx, id, now); err != nil {
			return err
		}
		if err := s.store.Courts.DeleteSessionSlotsTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.store.Courts.ResetSessionTx(ctx, tx, id, now); err != nil {
			return err
		}
		ok, err := s.store.Sessions.TransitionTx(ctx, tx, id, current.Status, model.SessionFinished, now)
		if err != nil {
			return err
		}
		if !ok {
			return eris.Wrapf(ErrConflict, "session %s changed concurrently", id)
		}
		session, err = s.store.Sessions.GetByIDTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.EventSessionFinished,
		SessionID: session.ID,
		MatchIDs:  forced,
		Notes:     forcedEndNote,
	})
	return session, nil
}

// Courts returns every court of the session with its claims and running
// match.
func (s *SessionService) Courts(ctx context.Context, sessionID string) ([]model.CourtView, error) {
	if _, err := s.store.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	courts, err := s.store.Courts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	slots, err := s.store.Courts.SlotsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]model.CourtView, len(courts))
	for i, c := range courts {
		out[i] = model.CourtView{
			Court:       c,
			Selected:    slots[c.ID][model.SlotSelected],
			PreSelected: slots[c.ID][model.SlotPreSelected],
		}
		if c.CurrentMatchID != nil {
			m, err := s.store.Matches.GetByID(ctx, *c.CurrentMatchID)
			if err != nil {
				return nil, err
			}
			out[i].CurrentMatch = m
		}
	}
	return out, nil
}

// MatchHistory returns the session's matches, newest first.
func (s *SessionService) MatchHistory(ctx context.Context, sessionID string) ([]model.Match, error) {
	if _, err := s.store.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.Matches.ListBySession(ctx, sessionID)
}
