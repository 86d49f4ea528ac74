package service

import (
	"context"
	"sort"

	"github.com/iliyamo/court-rotation/internal/model"
)

// QueueService derives the waiting queue.  The queue is never stored; it
// is recomputed from player rows on every call.
type QueueService struct {
	*base
}

// WaitingQueue returns the session's WAITING players in fairness order.
func (s *QueueService) WaitingQueue(ctx context.Context, sessionID string) ([]model.QueuedPlayer, error) {
	if _, err := s.store.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	players, err := s.waiting(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]model.QueuedPlayer, len(players))
	for i, p := range players {
		out[i] = model.QueuedPlayer{Player: p, Position: i + 1}
	}
	return out, nil
}

// QueuePosition returns the player's 1-based place in the queue.  ok is
// false when the player is not WAITING.
func (s *QueueService) QueuePosition(ctx context.Context, playerID string) (pos int, ok bool, err error) {
	p, err := s.store.Players.GetByID(ctx, playerID)
	if err != nil {
		return 0, false, err
	}
	if p.Status != model.PlayerWaiting {
		return 0, false, nil
	}
	players, err := s.waiting(ctx, p.SessionID)
	if err != nil {
		return 0, false, err
	}
	for i, q := range players {
		if q.ID == playerID {
			return i + 1, true, nil
		}
	}
	// Claimed between the two reads.
	return 0, false, nil
}

func (s *QueueService) waiting(ctx context.Context, sessionID string) ([]model.Player, error) {
	players, err := s.store.Players.ListWaiting(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	OrderQueue(players)
	return players, nil
}

// OrderQueue sorts players into fairness order: longest current wait
// first, then lowest player number.
func OrderQueue(players []model.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].CurrentWaitTime != players[j].CurrentWaitTime {
			return players[i].CurrentWaitTime > players[j].CurrentWaitTime
		}
		return players[i].PlayerNumber < players[j].PlayerNumber
	})
}
