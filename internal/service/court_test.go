package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-rotation/internal/model"
)

func TestSuggestGroupPrefersLongestWaiting(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true,
		model.LevelElite, model.LevelBeginner, model.LevelBeginner, model.LevelBeginner, model.LevelElite)
	for i, w := range []int{30, 25, 20, 15, 10} {
		f.setWait(players[i].ID, w)
	}

	sg, err := f.engine.Courts.SuggestGroup(f.ctx, courts[0].ID, 5)
	require.NoError(t, err)
	got := []string{sg.Pair1[0].Name, sg.Pair1[1].Name, sg.Pair2[0].Name, sg.Pair2[1].Name}
	assert.ElementsMatch(t, []string{"p1", "p2", "p3", "p4"}, got)
	assert.Equal(t, "p1", sg.Pair1[0].Name)
	assert.Equal(t, 70, sg.ScoreDifference)
	assert.Equal(t, 5, sg.TopCount)

	// Preview only.
	for _, p := range players {
		assert.Equal(t, model.PlayerWaiting, f.player(p.ID).Status)
	}
}

func TestSuggestGroupBalancesPairs(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true,
		model.LevelElite, model.LevelExpert, model.LevelNovice, model.LevelBeginner)
	for i, w := range []int{4, 3, 2, 1} {
		f.setWait(players[i].ID, w)
	}

	sg, err := f.engine.Courts.SuggestGroup(f.ctx, courts[0].ID, 0)
	require.NoError(t, err)
	// ELITE+BEGINNER = 90, EXPERT+NOVICE = 90
	assert.Equal(t, 0, sg.ScoreDifference)
	assert.Equal(t, []string{"p1", "p4"}, []string{sg.Pair1[0].Name, sg.Pair1[1].Name})
	assert.Equal(t, 4, sg.TopCount)
}

func TestSuggestGroupErrors(t *testing.T) {
	f := newFixture(t)
	_, _, courts := f.session(1, true, repeatLevel(model.LevelAdvanced, 3)...)
	_, err := f.engine.Courts.SuggestGroup(f.ctx, courts[0].ID, 0)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)

	_, _, idle := f.session(1, false, repeatLevel(model.LevelAdvanced, 4)...)
	_, err = f.engine.Courts.SuggestGroup(f.ctx, idle[0].ID, 0)
	assert.ErrorIs(t, err, ErrSessionNotActive)

	_, err = f.engine.Courts.SuggestGroup(f.ctx, "missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelectPlayersClaimsGroup(t *testing.T) {
	f := newFixture(t)
	s, players, courts := f.session(2, true, repeatLevel(model.LevelIntermediate, 6)...)

	view, err := f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, group(players[:4]...), true)
	require.NoError(t, err)
	assert.Equal(t, model.CourtReady, view.Status)
	assert.Len(t, view.Selected, 4)
	assert.Greater(t, view.Version, courts[0].Version)

	for _, p := range players[:4] {
		got := f.player(p.ID)
		assert.Equal(t, model.PlayerReady, got.Status)
		require.NotNil(t, got.CurrentCourtID)
		assert.Equal(t, courts[0].ID, *got.CurrentCourtID)
	}
	q, err := f.engine.Queue.WaitingQueue(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, q, 2)
}

func TestSelectPlayersIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(2, true, repeatLevel(model.LevelIntermediate, 7)...)

	_, err := f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, group(players[:4]...), true)
	require.NoError(t, err)

	_, err = f.engine.Courts.SelectPlayers(f.ctx, courts[1].ID, group(players[3:7]...), true)
	require.ErrorIs(t, err, ErrPlayerUnavailable)
	assert.Contains(t, err.Error(), players[3].ID)

	for _, p := range players[4:7] {
		got := f.player(p.ID)
		assert.Equal(t, model.PlayerWaiting, got.Status)
		assert.Nil(t, got.CurrentCourtID)
	}
	assert.Equal(t, model.CourtEmpty, f.court(courts[1].ID).Status)
}

func TestSelectPlayersRejectsPlayersOfOtherSessions(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true, repeatLevel(model.LevelIntermediate, 3)...)
	_, others, _ := f.session(1, true, repeatLevel(model.LevelIntermediate, 1)...)

	_, err := f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, group(append(players, others[0])...), true)
	assert.ErrorIs(t, err, ErrPlayerUnavailable)
}

func TestConcurrentOverlappingSelect(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(2, true, repeatLevel(model.LevelIntermediate, 7)...)

	groups := [][]model.Assignment{group(players[:4]...), group(players[3:7]...)}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Courts.SelectPlayers(f.ctx, courts[i].ID, groups[i], true)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrPlayerUnavailable)
	}
	assert.Equal(t, 1, succeeded)

	ready := 0
	for _, p := range players {
		if f.player(p.ID).Status == model.PlayerReady {
			ready++
		}
	}
	assert.Equal(t, 4, ready)
}

func TestConcurrentPreSelectAndSelectShareAPlayer(t *testing.T) {
	f := newFixture(t)
	s, players, courts := f.session(2, true, repeatLevel(model.LevelIntermediate, 11)...)
	busy, free := courts[0].ID, courts[1].ID

	_, err := f.engine.Courts.SelectPlayers(f.ctx, busy, group(players[:4]...), true)
	require.NoError(t, err)
	_, err = f.engine.Matches.StartMatch(f.ctx, busy)
	require.NoError(t, err)

	// players[7] is in both requests.
	var preErr, selErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, preErr = f.engine.Courts.PreSelect(f.ctx, busy, group(players[4:8]...))
	}()
	go func() {
		defer wg.Done()
		_, selErr = f.engine.Courts.SelectPlayers(f.ctx, free, group(players[7:11]...), true)
	}()
	wg.Wait()

	require.True(t, (preErr == nil) != (selErr == nil), "pre-select: %v, select: %v", preErr, selErr)
	for _, err := range []error{preErr, selErr} {
		if err != nil {
			assert.True(t, errors.Is(err, ErrPlayerUnavailable) || errors.Is(err, ErrConflict), "unexpected error %v", err)
		}
	}

	shared := f.player(players[7].ID)
	require.NotNil(t, shared.CurrentCourtID)
	ready := 0
	for _, p := range players[4:] {
		if f.player(p.ID).Status == model.PlayerReady {
			ready++
		}
	}
	assert.Equal(t, 4, ready)

	busyView, freeView := f.view(s.ID, busy), f.view(s.ID, free)
	if preErr == nil {
		assert.Equal(t, busy, *shared.CurrentCourtID)
		assert.Equal(t, group(players[4:8]...), busyView.PreSelected)
		assert.Equal(t, model.CourtEmpty, freeView.Status)
		assert.Empty(t, freeView.Selected)
	} else {
		assert.Equal(t, free, *shared.CurrentCourtID)
		assert.Empty(t, busyView.PreSelected)
		assert.Equal(t, model.CourtReady, freeView.Status)
		assert.Equal(t, group(players[7:11]...), freeView.Selected)
	}
	assert.Equal(t, model.CourtInUse, busyView.Status)
}

func TestSelectPlayersValidation(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true, repeatLevel(model.LevelIntermediate, 4)...)

	tests := map[string][]model.Assignment{
		"three players":      group(players[:3]...),
		"duplicate player":   {at(players[0].ID, 0), at(players[0].ID, 1), at(players[2].ID, 2), at(players[3].ID, 3)},
		"duplicate position": {at(players[0].ID, 0), at(players[1].ID, 0), at(players[2].ID, 2), at(players[3].ID, 3)},
		"bad position":       {at(players[0].ID, 0), at(players[1].ID, 1), at(players[2].ID, 2), at(players[3].ID, 4)},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.Courts.SelectPlayers(f.ctx, courts[0].ID, in, true)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPartialStaging(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true, repeatLevel(model.LevelIntermediate, 4)...)
	courtID := courts[0].ID

	staged, err := f.engine.Courts.SelectPlayers(f.ctx, courtID, group(players[:2]...), false)
	require.NoError(t, err)
	assert.Equal(t, model.CourtReady, staged.Status)
	assert.Len(t, staged.Selected, 2)

	_, err = f.engine.Matches.StartMatch(f.ctx, courtID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.engine.Courts.SelectPlayers(f.ctx, courtID, []model.Assignment{at(players[2].ID, 1)}, false)
	assert.ErrorIs(t, err, ErrInvalidInput, "position 1 is taken")

	view, err := f.engine.Courts.SelectPlayers(f.ctx, courtID,
		[]model.Assignment{at(players[2].ID, 2), at(players[3].ID, 3)}, false)
	require.NoError(t, err)
	assert.Len(t, view.Selected, 4)

	_, err = f.engine.Matches.StartMatch(f.ctx, courtID)
	require.NoError(t, err)
}

func TestDeselectPlayers(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true, repeatLevel(model.LevelIntermediate, 4)...)
	f.setWait(players[0].ID, 12)
	courtID := courts[0].ID

	_, err := f.engine.Courts.SelectPlayers(f.ctx, courtID, group(players...), true)
	require.NoError(t, err)
	view, err := f.engine.Courts.DeselectPlayers(f.ctx, courtID)
	require.NoError(t, err)
	assert.Equal(t, model.CourtEmpty, view.Status)
	assert.Empty(t, view.Selected)

	got := f.player(players[0].ID)
	assert.Equal(t, model.PlayerWaiting, got.Status)
	assert.Equal(t, 12, got.CurrentWaitTime)
	assert.Nil(t, got.CurrentCourtID)

	_, err = f.engine.Courts.DeselectPlayers(f.ctx, courtID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.engine.Courts.SelectPlayers(f.ctx, courtID, group(players...), true)
	require.NoError(t, err)
	_, err = f.engine.Matches.StartMatch(f.ctx, courtID)
	require.NoError(t, err)
	_, err = f.engine.Courts.DeselectPlayers(f.ctx, courtID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPreSelectAndCancel(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(1, true, repeatLevel(model.LevelIntermediate, 8)...)
	courtID := courts[0].ID

	_, err := f.engine.Courts.PreSelect(f.ctx, courtID, group(players[4:]...))
	assert.ErrorIs(t, err, ErrInvalidState, "court is not in use")

	_, err = f.engine.Courts.SelectPlayers(f.ctx, courtID, group(players[:4]...), true)
	require.NoError(t, err)
	_, err = f.engine.Matches.StartMatch(f.ctx, courtID)
	require.NoError(t, err)

	view, err := f.engine.Courts.PreSelect(f.ctx, courtID, group(players[4:]...))
	require.NoError(t, err)
	assert.Equal(t, model.CourtInUse, view.Status)
	assert.Len(t, view.PreSelected, 4)
	assert.NotNil(t, view.CurrentMatch)
	for _, p := range players[4:] {
		assert.Equal(t, model.PlayerReady, f.player(p.ID).Status)
	}

	_, err = f.engine.Courts.PreSelect(f.ctx, courtID, group(players[4:]...))
	assert.ErrorIs(t, err, ErrInvalidState)

	view, err = f.engine.Courts.CancelPreSelect(f.ctx, courtID)
	require.NoError(t, err)
	assert.Empty(t, view.PreSelected)
	assert.Equal(t, model.CourtInUse, view.Status)
	for _, p := range players[4:] {
		got := f.player(p.ID)
		assert.Equal(t, model.PlayerWaiting, got.Status)
		assert.Nil(t, got.CurrentCourtID)
	}

	_, err = f.engine.Courts.CancelPreSelect(f.ctx, courtID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAutoAssign(t *testing.T) {
	f := newFixture(t)
	_, players, courts := f.session(2, true, repeatLevel(model.LevelAdvanced, 5)...)
	f.setWait(players[4].ID, 50)

	view, err := f.engine.Courts.AutoAssign(f.ctx, courts[1].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, model.CourtReady, view.Status)
	require.Len(t, view.Selected, 4)
	assert.Equal(t, players[4].ID, view.Selected[0].PlayerID)
	assert.Equal(t, model.PlayerWaiting, f.player(players[3].ID).Status)

	_, err = f.engine.Courts.AutoAssign(f.ctx, courts[0].ID, 0)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}
