package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-rotation/internal/model"
)

func TestWaitingQueueOrdersByWaitThenNumber(t *testing.T) {
	f := newFixture(t)
	s, players, _ := f.session(1, true, repeatLevel(model.LevelIntermediate, 4)...)
	f.setWait(players[0].ID, 10)
	f.setWait(players[1].ID, 30)
	f.setWait(players[2].ID, 10)

	q, err := f.engine.Queue.WaitingQueue(f.ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, q, 4)
	got := []string{q[0].Name, q[1].Name, q[2].Name, q[3].Name}
	assert.Equal(t, []string{"p2", "p1", "p3", "p4"}, got)
	for i, qp := range q {
		assert.Equal(t, i+1, qp.Position)
	}

	again, err := f.engine.Queue.WaitingQueue(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, q, again)
}

func TestQueuePosition(t *testing.T) {
	f := newFixture(t)
	_, players, _ := f.session(1, true, repeatLevel(model.LevelNovice, 3)...)
	f.setWait(players[2].ID, 5)

	pos, ok, err := f.engine.Queue.QueuePosition(f.ctx, players[2].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok, err = f.engine.Queue.QueuePosition(f.ctx, players[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, pos)

	_, err = f.engine.Matches.TogglePlayerActive(f.ctx, players[1].ID)
	require.NoError(t, err)
	_, ok, err = f.engine.Queue.QueuePosition(f.ctx, players[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = f.engine.Queue.QueuePosition(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderQueueIsStable(t *testing.T) {
	players := []model.Player{
		{ID: "c", PlayerNumber: 3, CurrentWaitTime: 5},
		{ID: "a", PlayerNumber: 1, CurrentWaitTime: 5},
		{ID: "b", PlayerNumber: 2, CurrentWaitTime: 9},
	}
	OrderQueue(players)
	assert.Equal(t, "b", players[0].ID)
	assert.Equal(t, "a", players[1].ID)
	assert.Equal(t, "c", players[2].ID)
}
