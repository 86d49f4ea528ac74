package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-rotation/internal/database"
	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/queue"
	"github.com/iliyamo/court-rotation/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *repository.Store
	engine *Engine
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db))

	store := repository.NewStore(db)
	events := &recordingPublisher{}
	return &fixture{
		t:      t,
		ctx:    ctx,
		store:  store,
		engine: New(store, WithEvents(events)),
		events: events,
	}
}

// session creates and optionally starts a session with one player per
// level, named p1..pN.
func (f *fixture) session(courts int, start bool, levels ...model.Level) (*model.Session, []model.Player, []model.CourtView) {
	f.t.Helper()
	in := NewSession{Name: "Thursday doubles", NumberOfCourts: courts, SessionDuration: 120}
	for i, l := range levels {
		in.Players = append(in.Players, NewPlayer{Name: fmt.Sprintf("p%d", i+1), Level: string(l)})
	}
	s, err := f.engine.Sessions.Create(f.ctx, in)
	require.NoError(f.t, err)
	if start {
		s, err = f.engine.Sessions.Start(f.ctx, s.ID)
		require.NoError(f.t, err)
	}
	players, err := f.engine.Sessions.Players(f.ctx, s.ID)
	require.NoError(f.t, err)
	courtViews, err := f.engine.Sessions.Courts(f.ctx, s.ID)
	require.NoError(f.t, err)
	return s, players, courtViews
}

func (f *fixture) setWait(playerID string, minutes int) {
	f.t.Helper()
	_, err := f.store.DB().Exec(`UPDATE players SET current_wait_time = ? WHERE id = ?`, minutes, playerID)
	require.NoError(f.t, err)
}

func (f *fixture) player(id string) *model.Player {
	f.t.Helper()
	p, err := f.store.Players.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) court(id string) *model.Court {
	f.t.Helper()
	c, err := f.store.Courts.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return c
}

// queued returns the ids currently in the session's waiting queue.
func (f *fixture) queued(sessionID string) []string {
	f.t.Helper()
	q, err := f.engine.Queue.WaitingQueue(f.ctx, sessionID)
	require.NoError(f.t, err)
	ids := make([]string, len(q))
	for i, p := range q {
		ids[i] = p.ID
	}
	return ids
}

// view returns a court with its claims and running match.
func (f *fixture) view(sessionID, courtID string) model.CourtView {
	f.t.Helper()
	views, err := f.engine.Sessions.Courts(f.ctx, sessionID)
	require.NoError(f.t, err)
	for _, v := range views {
		if v.ID == courtID {
			return v
		}
	}
	f.t.Fatalf("court %s not in session %s", courtID, sessionID)
	return model.CourtView{}
}

func group(players ...model.Player) []model.Assignment {
	out := make([]model.Assignment, len(players))
	for i, p := range players {
		out[i] = model.Assignment{PlayerID: p.ID, Position: i}
	}
	return out
}

func repeatLevel(l model.Level, n int) []model.Level {
	out := make([]model.Level, n)
	for i := range out {
		out[i] = l
	}
	return out
}

func at(playerID string, position int) model.Assignment {
	return model.Assignment{PlayerID: playerID, Position: position}
}
