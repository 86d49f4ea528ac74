package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/pairing"
)

// CourtService suggests groups for courts and claims players onto them.
type CourtService struct {
	*base
	queue *QueueService
}

// Suggestion is a previewed group for a court.  Pair1 takes positions 0
// and 1, Pair2 positions 2 and 3.
type Suggestion struct {
	CourtID         string         `json:"court_id"`
	Pair1           []model.Player `json:"pair1"`
	Pair2           []model.Player `json:"pair2"`
	ScoreDifference int            `json:"score_difference"`
	TopCount        int            `json:"top_count"`
}

// Assignments converts the suggestion into claim positions.
func (s Suggestion) Assignments() []model.Assignment {
	return []model.Assignment{
		{PlayerID: s.Pair1[0].ID, Position: 0},
		{PlayerID: s.Pair1[1].ID, Position: 1},
		{PlayerID: s.Pair2[0].ID, Position: 2},
		{PlayerID: s.Pair2[1].ID, Position: 3},
	}
}

// SuggestGroup previews the next group for a court.  topCount <= 0 uses
// four candidates per court.  Nothing is changed.
func (s *CourtService) SuggestGroup(ctx context.Context, courtID string, topCount int) (*Suggestion, error) {
	court, err := s.store.Courts.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}
	session, err := s.store.Sessions.GetByID(ctx, court.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, eris.Wrapf(ErrSessionNotActive, "session %s is %s", session.ID, session.Status)
	}
	players, err := s.queue.waiting(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if len(players) < pairing.GroupSize {
		return nil, eris.Wrapf(ErrInsufficientPlayers, "%d waiting", len(players))
	}

	n := pairing.PoolSize(topCount, session.NumberOfCourts, len(players))
	byID := make(map[string]model.Player, n)
	candidates := make([]pairing.Candidate, n)
	for i, p := range players[:n] {
		byID[p.ID] = p
		candidates[i] = pairing.Candidate{ID: p.ID, Wait: p.CurrentWaitTime, Score: p.Level.Score()}
	}
	g, err := pairing.Suggest(candidates, n)
	if err != nil {
		return nil, eris.Wrap(err, "suggest group")
	}
	return &Suggestion{
		CourtID:         court.ID,
		Pair1:           []model.Player{byID[g.Pair1[0].ID], byID[g.Pair1[1].ID]},
		Pair2:           []model.Player{byID[g.Pair2[0].ID], byID[g.Pair2[1].ID]},
		ScoreDifference: g.Difference,
		TopCount:        n,
	}, nil
}

// AutoAssign suggests a group and claims it in one call.  If another host
// claimed one of the suggested players in between, the claim fails with
// ErrPlayerUnavailable.
func (s *CourtService) AutoAssign(ctx context.Context, courtID string, topCount int) (*model.CourtView, error) {
	sg, err := s.SuggestGroup(ctx, courtID, topCount)
	if err != nil {
		return nil, err
	}
	return s.SelectPlayers(ctx, courtID, sg.Assignments(), true)
}

// SelectPlayers claims WAITING players for an EMPTY court, which becomes
// READY.  With mustBeFour false a partial group may be staged and a READY
// court without a match accepts more players up to four.  Either every
// player is claimed or none is.
func (s *CourtService) SelectPlayers(ctx context.Context, courtID string, players []model.Assignment, mustBeFour bool) (*model.CourtView, error) {
	if err := validateAssignments(players, mustBeFour); err != nil {
		return nil, err
	}
	var view *model.CourtView
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()
		court, err := s.store.Courts.GetByIDTx(ctx, tx, courtID)
		if err != nil {
			return err
		}
		session, err := s.activeSessionTx(ctx, tx, court.SessionID)
		if err != nil {
			return err
		}
		switch {
		case court.Status == model.CourtEmpty:
		case court.Status == model.CourtReady && !mustBeFour && court.CurrentMatchID == nil:
			existing, err := s.store.Courts.SlotsTx(ctx, tx, court.ID, model.SlotSelected)
			if err != nil {
				return err
			}
			if err := validateAssignments(append(existing, players...), false); err != nil {
				return err
			}
		default:
			return eris.Wrapf(ErrInvalidState, "court %s is %s", court.ID, court.Status)
		}

		if err := s.store.Courts.TransitionTx(ctx, tx, court, model.CourtReady, nil, now); err != nil {
			return err
		}
		if err := s.claimTx(ctx, tx, session.ID, court.ID, players, now); err != nil {
			return err
		}
		if err := s.store.Courts.InsertSlotsTx(ctx, tx, court.ID, model.SlotSelected, players); err != nil {
			return err
		}
		view, err = s.courtViewTx(ctx, tx, court)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeselectPlayers returns a READY court's group to the queue.  Their wait
// counters are untouched.
func (s *CourtService) DeselectPlayers(ctx context.Context, courtID string) (*model.CourtView, error) {
	var view *model.CourtView
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
		if err := s.releaseTx(ctx, tx, court.ID, model.SlotSelected, now); err != nil {
			return err
		}
		if err := s.store.Courts.TransitionTx(ctx, tx, court, model.CourtEmpty, nil, now); err != nil {
			return err
		}
		view, err = s.courtViewTx(ctx, tx, court)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// PreSelect reserves the next group of four for an IN_USE court.  They
// become READY on the court and move onto it when its match ends.
func (s *CourtService) PreSelect(ctx context.Context, courtID string, players []model.Assignment) (*model.CourtView, error) {
	if err := validateAssignments(players, true); err != nil {
		return nil, err
	}
	var view *model.CourtView
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()
		court, err := s.store.Courts.GetByIDTx(ctx, tx, courtID)
		if err != nil {
			return err
		}
		session, err := s.activeSessionTx(ctx, tx, court.SessionID)
		if err != nil {
			return err
		}
		if court.Status != model.CourtInUse {
			return eris.Wrapf(ErrInvalidState, "court %s is %s", court.ID, court.Status)
		}
		existing, err := s.store.Courts.SlotsTx(ctx, tx, court.ID, model.SlotPreSelected)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return eris.Wrapf(ErrInvalidState, "court %s already has a pre-selection", court.ID)
		}
		if err := s.store.Courts.TransitionTx(ctx, tx, court, model.CourtInUse, court.CurrentMatchID, now); err != nil {
			return err
		}
		if err := s.claimTx(ctx, tx, session.ID, court.ID, players, now); err != nil {
			return err
		}
		if err := s.store.Courts.InsertSlotsTx(ctx, tx, court.ID, model.SlotPreSelected, players); err != nil {
			return err
		}
		view, err = s.courtViewTx(ctx, tx, court)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CancelPreSelect returns a court's reserved group to the queue.
func (s *CourtService) CancelPreSelect(ctx context.Context, courtID string) (*model.CourtView, error) {
	var view *model.CourtView
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.clock()
		court, err := s.store.Courts.GetByIDTx(ctx, tx, courtID)
		if err != nil {
			return err
		}
		if _, err := s.activeSessionTx(ctx, tx, court.SessionID); err != nil {
			return err
		}
		existing, err := s.store.Courts.SlotsTx(ctx, tx, court.ID, model.SlotPreSelected)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return eris.Wrapf(ErrInvalidState, "court %s has no pre-selection", court.ID)
		}
		if err := s.releaseTx(ctx, tx, court.ID, model.SlotPreSelected, now); err != nil {
			return err
		}
		if err := s.store.Courts.TransitionTx(ctx, tx, court, court.Status, court.CurrentMatchID, now); err != nil {
			return err
		}
		view, err = s.courtViewTx(ctx, tx, court)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// claimTx moves every requested player from WAITING to READY on the
// court, or fails with ErrPlayerUnavailable naming the ones that were not
// available.  The caller's transaction is rolled back on failure, so a
// partial claim never survives.
func (b *base) claimTx(ctx context.Context, tx *sql.Tx, sessionID, courtID string, players []model.Assignment, now time.Time) error {
	ids := assignmentIDs(players)
	n, err := b.store.Players.ClaimTx(ctx, tx, sessionID, courtID, ids, now)
	if err != nil {
		return err
	}
	if int(n) == len(ids) {
		return nil
	}
	rows, err := b.store.Players.ListByIDsTx(ctx, tx, ids)
	if err != nil {
		return err
	}
	claimed := make(map[string]bool, len(rows))
	for _, p := range rows {
		if p.SessionID == sessionID && p.Status == model.PlayerReady && p.CurrentCourtID != nil && *p.CurrentCourtID == courtID {
			claimed[p.ID] = true
		}
	}
	var missing []string
	for _, id := range ids {
		if !claimed[id] {
			missing = append(missing, id)
		}
	}
	return eris.Wrapf(ErrPlayerUnavailable, "players not waiting: %s", strings.Join(missing, ", "))
}

// releaseTx sends the players in a court's slots of one kind back to
// WAITING and drops the slots.
func (b *base) releaseTx(ctx context.Context, tx *sql.Tx, courtID string, kind model.SlotKind, now time.Time) error {
	slots, err := b.store.Courts.SlotsTx(ctx, tx, courtID, kind)
	if err != nil {
		return err
	}
	ids := assignmentIDs(slots)
	n, err := b.store.Players.ReleaseTx(ctx, tx, courtID, ids, now)
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return eris.Wrapf(ErrConflict, "court %s: %d of %d players released", courtID, n, len(ids))
	}
	return b.store.Courts.DeleteSlotsTx(ctx, tx, courtID, kind)
}
