package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-rotation/internal/database"
	"github.com/iliyamo/court-rotation/internal/model"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return NewStore(db)
}

func seed(t *testing.T, s *Store, players int) (model.Session, model.Court, []model.Player) {
	t.Helper()
	now := time.UnixMilli(1_700_000_000_000).UTC()
	session := model.Session{ID: "s1", Name: "club night", Status: model.SessionInProgress,
		NumberOfCourts: 1, MaxPlayersPerCourt: 4, SessionDuration: 90, StartTime: &now, CreatedAt: now, UpdatedAt: now}
	court := model.Court{ID: "c1", SessionID: "s1", CourtNumber: 1, Name: "Court 1", Status: model.CourtEmpty,
		CreatedAt: now, UpdatedAt: now}
	ps := make([]model.Player, players)
	for i := range ps {
		ps[i] = model.Player{ID: string(rune('a' + i)), SessionID: "s1", PlayerNumber: i + 1, Name: "p",
			Level: model.LevelNovice, Status: model.PlayerWaiting, CreatedAt: now, UpdatedAt: now}
	}
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.Sessions.CreateTx(ctx, tx, &session); err != nil {
			return err
		}
		if err := s.Courts.CreateBulkTx(ctx, tx, []model.Court{court}); err != nil {
			return err
		}
		return s.Players.CreateBulkTx(ctx, tx, ps)
	}))
	return session, court, ps
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTempStore(t)
	want, _, _ := seed(t, s, 0)

	got, err := s.Sessions.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	_, err = s.Sessions.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCourtTransitionChecksVersion(t *testing.T) {
	s := openTempStore(t)
	_, court, _ := seed(t, s, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := court
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.Courts.TransitionTx(ctx, tx, &court, model.CourtReady, nil, now)
	}))
	assert.Equal(t, int64(1), court.Version)

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.Courts.TransitionTx(ctx, tx, &stale, model.CourtReady, nil, now)
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClaimOnlyTakesWaitingPlayers(t *testing.T) {
	s := openTempStore(t)
	_, court, ps := seed(t, s, 4)
	ctx := context.Background()
	now := time.Now().UTC()

	var n int64
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) (err error) {
		n, err = s.Players.ClaimTx(ctx, tx, "s1", court.ID, []string{ps[0].ID, ps[1].ID}, now)
		return err
	}))
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) (err error) {
		n, err = s.Players.ClaimTx(ctx, tx, "s1", court.ID, []string{ps[1].ID, ps[2].ID}, now)
		return err
	}))
	assert.Equal(t, int64(1), n)
}

func TestSlotsRejectDoubleClaim(t *testing.T) {
	s := openTempStore(t)
	_, court, ps := seed(t, s, 1)
	ctx := context.Background()
	slot := []model.Assignment{{PlayerID: ps[0].ID, Position: 0}}

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.Courts.InsertSlotsTx(ctx, tx, court.ID, model.SlotSelected, slot)
	}))
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.Courts.InsertSlotsTx(ctx, tx, court.ID, model.SlotPreSelected, slot)
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdvanceWaitSkipsNonWaiting(t *testing.T) {
	s := openTempStore(t)
	_, court, ps := seed(t, s, 3)
	ctx := context.Background()
	now := time.Now().UTC()

	var (
		updated []model.Player
		n       int64
	)
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) (err error) {
		if _, err = s.Players.ClaimTx(ctx, tx, "s1", court.ID, []string{ps[0].ID}, now); err != nil {
			return err
		}
		updated, n, err = s.Players.AdvanceWaitTx(ctx, tx, "s1", 4, nil, now.Add(time.Second))
		return err
	}))
	assert.Equal(t, int64(2), n)
	require.Len(t, updated, 2)
	assert.Equal(t, 4, updated[0].CurrentWaitTime)

	p, err := s.Players.GetByID(ctx, ps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.CurrentWaitTime)
}

func TestIsConflict(t *testing.T) {
	assert.True(t, isConflict(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isConflict(&mysql.MySQLError{Number: 1205}))
	assert.False(t, isConflict(&mysql.MySQLError{Number: 1146}))
	assert.False(t, isConflict(errors.New("boom")))
	assert.Nil(t, wrap(nil, "noop"))
	assert.ErrorIs(t, wrap(&mysql.MySQLError{Number: 1213, Message: "deadlock"}, "claim"), ErrConflict)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
