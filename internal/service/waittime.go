package service

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
)

// WaitTimeService advances wait counters.
type WaitTimeService struct {
	*base
}

// WaitTimeUpdate is the outcome of AdvanceWaitTimes.
type WaitTimeUpdate struct {
	Players []model.Player `json:"players"`
	Count   int            `json:"count"`
}

// AdvanceWaitTimes adds minutes to the current and total wait of every
// WAITING player of the session, or of playerIDs when given.  Players
// that are not WAITING when the update applies are skipped.  Counters
// saturate at model.MaxWaitMinutes.  Zero minutes is a valid no-op.
func (s *WaitTimeService) AdvanceWaitTimes(ctx context.Context, sessionID string, minutes int, playerIDs []string) (*WaitTimeUpdate, error) {
	if minutes < 0 {
		return nil, eris.Wrapf(ErrInvalidInput, "minutes must not be negative, got %d", minutes)
	}
	if minutes > model.MaxWaitMinutes {
		minutes = model.MaxWaitMinutes
	}
	out := &WaitTimeUpdate{Players: []model.Player{}}
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.activeSessionTx(ctx, tx, sessionID); err != nil {
			return err
		}
		players, n, err := s.store.Players.AdvanceWaitTx(ctx, tx, sessionID, minutes, playerIDs, s.clock())
		if err != nil {
			return err
		}
		if players != nil {
			out.Players = players
		}
		out.Count = int(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
