// Package service is the court rotation engine: the waiting queue, group
// suggestions, court claims, the match lifecycle, the session state
// machine and the wait-time clock.  Each mutating operation runs in one
// transaction and decides success from conditional updates, so concurrent
// hosts and the background ticker never observe or produce partial state.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/queue"
	"github.com/iliyamo/court-rotation/internal/repository"
)

// EventPublisher delivers lifecycle events after commit.  Failures are
// logged and otherwise ignored.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.Event) error { return nil }

type base struct {
	store  *repository.Store
	events EventPublisher
	now    func() time.Time
}

// Option customises the engine.
type Option func(*base)

// WithEvents sets the publisher used for lifecycle events.
func WithEvents(p EventPublisher) Option {
	return func(b *base) {
		if p != nil {
			b.events = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// Engine groups the engine's services over one store.
type Engine struct {
	Sessions  *SessionService
	Queue     *QueueService
	Courts    *CourtService
	Matches   *MatchService
	WaitTimes *WaitTimeService
}

// New builds an Engine.
func New(store *repository.Store, opts ...Option) *Engine {
	b := &base{store: store, events: nopPublisher{}, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	q := &QueueService{base: b}
	return &Engine{
		Sessions:  &SessionService{base: b},
		Queue:     q,
		Courts:    &CourtService{base: b, queue: q},
		Matches:   &MatchService{base: b},
		WaitTimes: &WaitTimeService{base: b},
	}
}

// clock returns the current time at the store's millisecond precision.
func (b *base) clock() time.Time {
	return b.now().UTC().Truncate(time.Millisecond)
}

func (b *base) publish(ctx context.Context, ev queue.Event) {
	if ev.OccurredAt == "" {
		ev.OccurredAt = b.clock().Format(time.RFC3339Nano)
	}
	if err := b.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Str("component", "events").Str("type", ev.Type).Str("session_id", ev.SessionID).
			Msg("publish event failed")
	}
}

// activeSessionTx loads a session and requires it to be IN_PROGRESS.
func (b *base) activeSessionTx(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	s, err := b.store.Sessions.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, eris.Wrapf(ErrSessionNotActive, "session %s is %s", id, s.Status)
	}
	return s, nil
}

// courtViewTx loads a court's claims and running match.
func (b *base) courtViewTx(ctx context.Context, tx *sql.Tx, c *model.Court) (*model.CourtView, error) {
	view := &model.CourtView{Court: *c}
	var err error
	if view.Selected, err = b.store.Courts.SlotsTx(ctx, tx, c.ID, model.SlotSelected); err != nil {
		return nil, err
	}
	if view.PreSelected, err = b.store.Courts.SlotsTx(ctx, tx, c.ID, model.SlotPreSelected); err != nil {
		return nil, err
	}
	if c.CurrentMatchID != nil {
		if view.CurrentMatch, err = b.store.Matches.GetByIDTx(ctx, tx, *c.CurrentMatchID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// validateAssignments checks a claim request: 1..4 entries (exactly 4
// when exact), distinct non-empty ids and distinct positions in 0..3.
func validateAssignments(players []model.Assignment, exact bool) error {
	if len(players) == 0 || len(players) > model.PlayersPerCourt {
		return eris.Wrapf(ErrInvalidInput, "between 1 and %d players required, got %d", model.PlayersPerCourt, len(players))
	}
	if exact && len(players) != model.PlayersPerCourt {
		return eris.Wrapf(ErrInvalidInput, "exactly %d players required, got %d", model.PlayersPerCourt, len(players))
	}
	ids := make(map[string]bool, len(players))
	positions := make(map[int]bool, len(players))
	for _, p := range players {
		if p.PlayerID == "" {
			return eris.Wrap(ErrInvalidInput, "player id is required")
		}
		if p.Position < 0 || p.Position >= model.PlayersPerCourt {
			return eris.Wrapf(ErrInvalidInput, "position %d out of range", p.Position)
		}
		if ids[p.PlayerID] {
			return eris.Wrapf(ErrInvalidInput, "player %s listed twice", p.PlayerID)
		}
		if positions[p.Position] {
			return eris.Wrapf(ErrInvalidInput, "position %d listed twice", p.Position)
		}
		ids[p.PlayerID] = true
		positions[p.Position] = true
	}
	return nil
}

func assignmentIDs(slots []model.Assignment) []string {
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.PlayerID
	}
	return ids
}
