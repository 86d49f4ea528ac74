package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/queue"
)

// MatchService starts and ends matches and toggles player availability.
type MatchService struct {
	*base
}

// StartMatch starts a match with the four players selected on a READY
// court.  The players become PLAYING and their current wait resets.
func (s *MatchService) StartMatch(ctx context.Context, courtID string) (*model.Match, error) {
	var match *model.Match
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()
		court, err := s.store.Courts.GetByIDTx(ctx, tx, courtID)
		if err != nil {
			return err
		}
		if _, err := s.activeSessionTx(ctx, tx, court.SessionID); err != nil {
			return err
		}
		if court.Status != model.CourtReady || court.CurrentMatchID != nil {
			return eris.Wrapf(ErrInvalidState, "court %s is %s", court.ID, court.Status)
		}
		selected, err := s.store.Courts.SlotsTx(ctx, tx, court.ID, model.SlotSelected)
		if err != nil {
			return err
		}
		if len(selected) != model.PlayersPerCourt {
			return eris.Wrapf(ErrInvalidState, "court %s has %d of %d players", court.ID, len(selected), model.PlayersPerCourt)
		}

		match = &model.Match{
			ID:        uuid.NewString(),
			SessionID: court.SessionID,
			CourtID:   court.ID,
			Status:    model.MatchInProgress,
			StartTime: now,
			Players:   selected,
		}
		ids := match.PlayerIDs()
		n, err := s.store.Players.StartPlayingTx(ctx, tx, court.ID, ids, now)
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			return eris.Wrapf(ErrConflict, "court %s: %d of %d players ready", court.ID, n, len(ids))
		}
		if err := s.store.Matches.CreateTx(ctx, tx, match); err != nil {
			return err
		}
		if err := s.store.Courts.TransitionTx(ctx, tx, court, model.CourtInUse, &match.ID, now); err != nil {
			return err
		}
		return s.store.Courts.DeleteSlotsTx(ctx, tx, court.ID, model.SlotSelected)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.Event{
		Type:      queue.EventMatchStarted,
		SessionID: match.SessionID,
		CourtID:   match.CourtID,
		MatchID:   match.ID,
		PlayerIDs: match.PlayerIDs(),
	})
	return match, nil
}

// Get returns a match with its players and result.
func (s *MatchService) Get(ctx context.Context, id string) (*model.Match, error) {
	return s.store.Matches.GetByID(ctx, id)
}

// EndMatch finishes a running match and records its result, which may be
// nil.  Players go back to the queue with matchesPlayed incremented.  The
// court then takes over a complete pre-selection (READY) or becomes EMPTY.
func (s *MatchService) EndMatch(ctx context.Context, matchID string, result *model.MatchResult) (*model.Match, error) {
	var match *model.Match
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := s.store.Matches.GetByIDTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if _, err := s.activeSessionTx(ctx, tx, m.SessionID); err != nil {
			return err
		}
		match, err = s.endTx(ctx, tx, m, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishFinished(ctx, match)
	return match, nil
}

// EndMatchOnCourt is EndMatch for the match currently running on a court.
func (s *MatchService) EndMatchOnCourt(ctx context.Context, courtID string, result *model.MatchResult) (*model.Match, error) {
	var match *model.Match
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		court, err := s.store.Courts.GetByIDTx(ctx, tx, courtID)
		if err != nil {
			return err
		}
		if _, err := s.activeSessionTx(ctx, tx, court.SessionID); err != nil {
			return err
		}
		if court.CurrentMatchID == nil {
			return eris.Wrapf(ErrInvalidState, "court %s has no match", court.ID)
		}
		m, err := s.store.Matches.GetByIDTx(ctx, tx, *court.CurrentMatchID)
		if err != nil {
			return err
		}
		match, err = s.endTx(ctx, tx, m, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishFinished(ctx, match)
	return match, nil
}

func (s *MatchService) endTx(ctx context.Context, tx *sql.Tx, m *model.Match, result *model.MatchResult) (*model.Match, error) {
	now := s.clock()
	if m.Status != model.MatchInProgress {
		return nil, eris.Wrapf(ErrInvalidState, "match %s is %s", m.ID, m.Status)
	}
	res, err := validateResult(m, result)
	if err != nil {
		return nil, err
	}
	court, err := s.store.Courts.GetByIDTx(ctx, tx, m.CourtID)
	if err != nil {
		return nil, err
	}
	if court.CurrentMatchID == nil || *court.CurrentMatchID != m.ID {
		return nil, eris.Wrapf(ErrConflict, "court %s no longer runs match %s", court.ID, m.ID)
	}
	if err := s.store.Matches.FinishTx(ctx, tx, m.ID, now, res); err != nil {
		return nil, err
	}
	ids := m.PlayerIDs()
	n, err := s.store.Players.FinishPlayingTx(ctx, tx, ids, now)
	if err != nil {
		return nil, err
	}
	if int(n) != len(ids) {
		return nil, eris.Wrapf(ErrConflict, "match %s: %d of %d players playing", m.ID, n, len(ids))
	}

	promote, err := s.preSelectionReadyTx(ctx, tx, court.ID)
	if err != nil {
		return nil, err
	}
	if promote {
		if err := s.store.Courts.PromoteSlotsTx(ctx, tx, court.ID); err != nil {
			return nil, err
		}
		if err := s.store.Courts.TransitionTx(ctx, tx, court, model.CourtReady, nil, now); err != nil {
			return nil, err
		}
	} else {
		if err := s.releaseTx(ctx, tx, court.ID, model.SlotPreSelected, now); err != nil {
			return nil, err
		}
		if err := s.store.Courts.TransitionTx(ctx, tx, court, model.CourtEmpty, nil, now); err != nil {
			return nil, err
		}
	}
	return s.store.Matches.GetByIDTx(ctx, tx, m.ID)
}

// preSelectionReadyTx reports whether the court holds a complete
// pre-selection whose players are all still READY on it.
func (s *MatchService) preSelectionReadyTx(ctx context.Context, tx *sql.Tx, courtID string) (bool, error) {
	slots, err := s.store.Courts.SlotsTx(ctx, tx, courtID, model.SlotPreSelected)
	if err != nil {
		return false, err
	}
	if len(slots) != model.PlayersPerCourt {
		return false, nil
	}
	players, err := s.store.Players.ListByIDsTx(ctx, tx, assignmentIDs(slots))
	if err != nil {
		return false, err
	}
	if len(players) != model.PlayersPerCourt {
		return false, nil
	}
	for _, p := range players {
		if p.Status != model.PlayerReady || p.CurrentCourtID == nil || *p.CurrentCourtID != courtID {
			return false, nil
		}
	}
	return true, nil
}

func (s *MatchService) publishFinished(ctx context.Context, m *model.Match) {
	ev := queue.Event{
		Type:      queue.EventMatchFinished,
		SessionID: m.SessionID,
		CourtID:   m.CourtID,
		MatchID:   m.ID,
		PlayerIDs: m.PlayerIDs(),
		Scores:    m.Scores,
		WinnerIDs: m.WinnerIDs,
		IsDraw:    m.IsDraw,
	}
	if m.Notes != nil {
		ev.Notes = *m.Notes
	}
	s.publish(ctx, ev)
}

// validateResult checks an optional match result against the match: set
// scores are non-negative, winners are distinct match players, and a draw
// has no winners.
func validateResult(m *model.Match, result *model.MatchResult) (model.MatchResult, error) {
	if result == nil {
		return model.MatchResult{}, nil
	}
	for i, sc := range result.Scores {
		if sc.Team1 < 0 || sc.Team2 < 0 {
			return model.MatchResult{}, eris.Wrapf(ErrInvalidInput, "set %d has a negative score", i+1)
		}
	}
	if result.IsDraw && len(result.WinnerIDs) > 0 {
		return model.MatchResult{}, eris.Wrap(ErrInvalidInput, "a draw has no winners")
	}
	seen := make(map[string]bool, len(result.WinnerIDs))
	for _, w := range result.WinnerIDs {
		if !m.HasPlayer(w) {
			return model.MatchResult{}, eris.Wrapf(ErrInvalidInput, "winner %s did not play match %s", w, m.ID)
		}
		if seen[w] {
			return model.MatchResult{}, eris.Wrapf(ErrInvalidInput, "winner %s listed twice", w)
		}
		seen[w] = true
	}
	return *result, nil
}

// TogglePlayerActive flips a player between WAITING and INACTIVE.
// INACTIVE players are skipped by the queue, pairing and the ticker.
func (s *MatchService) TogglePlayerActive(ctx context.Context, playerID string) (*model.Player, error) {
	var player *model.Player
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()
		p, err := s.store.Players.GetByIDTx(ctx, tx, playerID)
		if err != nil {
			return err
		}
		if _, err := s.activeSessionTx(ctx, tx, p.SessionID); err != nil {
			return err
		}
		n, err := s.store.Players.ToggleActiveTx(ctx, tx, p.ID, now)
		if err != nil {
			return err
		}
		if n != 1 {
			return eris.Wrapf(ErrInvalidState, "player %s is %s", p.ID, p.Status)
		}
		player, err = s.store.Players.GetByIDTx(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}
