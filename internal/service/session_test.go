package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-rotation/internal/model"
	"github.com/iliyamo/court-rotation/internal/queue"
)

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	s, players, courts := f.session(3, false, model.LevelElite, model.LevelNovice)

	assert.Equal(t, model.SessionPreparing, s.Status)
	assert.Equal(t, 4, s.MaxPlayersPerCourt)
	assert.Nil(t, s.StartTime)
	require.Len(t, courts, 3)
	for i, c := range courts {
		assert.Equal(t, i+1, c.CourtNumber)
		assert.Equal(t, model.CourtEmpty, c.Status)
	}
	require.Len(t, players, 2)
	assert.Equal(t, 1, players[0].PlayerNumber)
	assert.Equal(t, model.LevelNovice, players[1].Level)
	assert.Equal(t, model.PlayerWaiting, players[1].Status)
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	bad := []NewSession{
		{Name: " ", NumberOfCourts: 1},
		{Name: "x", NumberOfCourts: 0},
		{Name: "x", NumberOfCourts: 1, SessionDuration: -5},
		{Name: "x", NumberOfCourts: 1, Players: []NewPlayer{{Name: "a", Level: "PRO"}}},
		{Name: "x", NumberOfCourts: 1, Players: []NewPlayer{{Name: "", Level: "ELITE"}}},
	}
	for _, in := range bad {
		_, err := f.engine.Sessions.Create(f.ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	s, _, _ := f.session(1, false, repeatLevel(model.LevelIntermediate, 4)...)

	_, err := f.engine.Sessions.Finish(f.ctx, s.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	started, err := f.engine.Sessions.Start(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionInProgress, started.Status)
	require.NotNil(t, started.StartTime)

	_, err = f.engine.Sessions.Start(f.ctx, s.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.engine.Sessions.Start(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinishSessionForceEndsMatches(t *testing.T) {
	f := newFixture(t)
	s, players, courts := f.session(2, true, repeatLevel(model.LevelIntermediate, 12)...)

	_, err := f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, group(players[:4]...), true)
	require.NoError(t, err)
	m, err := f.engine.Matches.StartMatch(f.ctx, courts[0].ID)
	require.NoError(t, err)
	_, err = f.engine.Courts.PreSelect(f.ctx, courts[0].ID, group(players[4:8]...))
	require.NoError(t, err)
	_, err = f.engine.Courts.SelectPlayers(f.ctx, courts[1].ID, group(players[8:]...), true)
	require.NoError(t, err)

	done, err := f.engine.Sessions.Finish(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionFinished, done.Status)
	assert.NotNil(t, done.EndTime)

	history, err := f.engine.Sessions.MatchHistory(f.ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, m.ID, history[0].ID)
	assert.Equal(t, model.MatchFinished, history[0].Status)
	require.NotNil(t, history[0].Notes)
	assert.Equal(t, "session finished", *history[0].Notes)
	assert.Empty(t, history[0].WinnerIDs)

	for _, p := range players {
		got := f.player(p.ID)
		assert.Equal(t, model.PlayerFinished, got.Status)
		assert.Nil(t, got.CurrentCourtID)
		assert.Equal(t, 0, got.MatchesPlayed)
	}
	views, err := f.engine.Sessions.Courts(f.ctx, s.ID)
	require.NoError(t, err)
	for _, v := range views {
		assert.Equal(t, model.CourtEmpty, v.Status)
		assert.Nil(t, v.CurrentMatchID)
		assert.Empty(t, v.Selected)
		assert.Empty(t, v.PreSelected)
	}

	_, err = f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, group(players[:4]...), true)
	assert.ErrorIs(t, err, ErrSessionNotActive)
	_, err = f.engine.Sessions.Finish(f.ctx, s.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.engine.Sessions.AddPlayer(f.ctx, s.ID, NewPlayer{Name: "late", Level: "ELITE"})
	assert.ErrorIs(t, err, ErrSessionNotActive)

	assert.Contains(t, f.events.types(), queue.EventSessionFinished)
}

func TestAddPlayer(t *testing.T) {
	f := newFixture(t)
	s, _, _ := f.session(1, true, repeatLevel(model.LevelIntermediate, 2)...)

	p, err := f.engine.Sessions.AddPlayer(f.ctx, s.ID, NewPlayer{Name: " Ana ", Level: "expert"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.PlayerNumber)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, model.LevelExpert, p.Level)

	q, err := f.engine.Queue.WaitingQueue(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, q, 3)

	_, err = f.engine.Sessions.AddPlayer(f.ctx, s.ID, NewPlayer{Name: "x", Level: "GOD"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMatchHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	now := f.engine.Sessions.clock()
	tick := 0
	f.engine = New(f.store, WithEvents(f.events), WithClock(func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * time.Second)
	}))
	s, players, courts := f.session(1, true, repeatLevel(model.LevelIntermediate, 4)...)

	var ids []string
	for i := 0; i < 2; i++ {
		_, err := f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, group(players...), true)
		require.NoError(t, err)
		m, err := f.engine.Matches.StartMatch(f.ctx, courts[0].ID)
		require.NoError(t, err)
		_, err = f.engine.Matches.EndMatchOnCourt(f.ctx, courts[0].ID, nil)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	history, err := f.engine.Sessions.MatchHistory(f.ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ids[1], history[0].ID)
	assert.Equal(t, ids[0], history[1].ID)
	assert.Equal(t, 2, f.player(players[0].ID).MatchesPlayed)
}
