package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
)

// PlayerRepo persists players and applies their status transitions.
// Transition methods return the number of rows that actually moved;
// callers compare it with the number they asked for.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo constructs a PlayerRepo given a DB handle.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

const playerColumns = `id, session_id, player_number, name, level, status, current_wait_time,
	total_wait_time, matches_played, current_court_id, created_at, updated_at`

func scanPlayer(row rowScanner) (*model.Player, error) {
	var (
		p                    model.Player
		courtID              sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.SessionID, &p.PlayerNumber, &p.Name, &p.Level, &p.Status,
		&p.CurrentWaitTime, &p.TotalWaitTime, &p.MatchesPlayed, &courtID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CurrentCourtID = stringPtr(courtID)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func queryPlayers(ctx context.Context, q querier, query string, args ...any) ([]model.Player, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "query players")
	}
	defer rows.Close()
	var out []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, wrap(err, "scan player")
		}
		out = append(out, *p)
	}
	return out, wrap(rows.Err(), "query players")
}

// CreateBulkTx inserts players in one statement.
func (r *PlayerRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, players []model.Player) error {
	if len(players) == 0 {
		return nil
	}
	query := `INSERT INTO players (` + playerColumns + `) VALUES `
	args := make([]any, 0, len(players)*12)
	for i, p := range players {
		if i > 0 {
			query += ", "
		}
		query += "(" + placeholders(12) + ")"
		args = append(args, p.ID, p.SessionID, p.PlayerNumber, p.Name, p.Level, p.Status,
			p.CurrentWaitTime, p.TotalWaitTime, p.MatchesPlayed, nullString(p.CurrentCourtID),
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return wrap(err, "insert players")
}

// NextNumberTx returns the next free player number of a session.
func (r *PlayerRepo) NextNumberTx(ctx context.Context, tx *sql.Tx, sessionID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(player_number), 0) + 1 FROM players WHERE session_id = ?`, sessionID).Scan(&n)
	return n, wrap(err, "next player number")
}

// GetByID returns the player or ErrNotFound.
func (r *PlayerRepo) GetByID(ctx context.Context, id string) (*model.Player, error) {
	return getPlayer(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *PlayerRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Player, error) {
	return getPlayer(ctx, tx, id)
}

func getPlayer(ctx context.Context, q querier, id string) (*model.Player, error) {
	p, err := scanPlayer(q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "player %s", id)
	}
	if err != nil {
		return nil, wrap(err, "select player")
	}
	return p, nil
}

// ListBySession returns every player of a session by player number.
func (r *PlayerRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Player, error) {
	return queryPlayers(ctx, r.db,
		`SELECT `+playerColumns+` FROM players WHERE session_id = ? ORDER BY player_number`, sessionID)
}

// ListWaiting returns the WAITING players of a session, longest wait
// first and then by player number.
func (r *PlayerRepo) ListWaiting(ctx context.Context, sessionID string) ([]model.Player, error) {
	return queryPlayers(ctx, r.db,
		`SELECT `+playerColumns+` FROM players
		 WHERE session_id = ? AND status = ?
		 ORDER BY current_wait_time DESC, player_number ASC`, sessionID, model.PlayerWaiting)
}

// ListByIDsTx loads the given players inside tx, by player number.
func (r *PlayerRepo) ListByIDsTx(ctx context.Context, tx *sql.Tx, ids []string) ([]model.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return queryPlayers(ctx, tx,
		`SELECT `+playerColumns+` FROM players WHERE id IN (`+placeholders(len(ids))+`) ORDER BY player_number`,
		stringArgs(ids)...)
}

// ClaimTx moves WAITING players of the session to READY on courtID.  A
// player in any other status, or of another session, is left untouched.
func (r *PlayerRepo) ClaimTx(ctx context.Context, tx *sql.Tx, sessionID, courtID string, ids []string, now time.Time) (int64, error) {
	args := append([]any{model.PlayerReady, courtID, toMillis(now), sessionID, model.PlayerWaiting}, stringArgs(ids)...)
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET status = ?, current_court_id = ?, updated_at = ?
		 WHERE session_id = ? AND status = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, wrap(err, "claim players")
	}
	return affected(res, "claim players")
}

// ReleaseTx returns READY players of courtID to WAITING.  Wait counters
// are kept.
func (r *PlayerRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, courtID string, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{model.PlayerWaiting, toMillis(now), courtID, model.PlayerReady}, stringArgs(ids)...)
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET status = ?, current_court_id = NULL, updated_at = ?
		 WHERE current_court_id = ? AND status = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, wrap(err, "release players")
	}
	return affected(res, "release players")
}

// StartPlayingTx moves READY players of courtID to PLAYING and resets
// their current wait.
func (r *PlayerRepo) StartPlayingTx(ctx context.Context, tx *sql.Tx, courtID string, ids []string, now time.Time) (int64, error) {
	args := append([]any{model.PlayerPlaying, toMillis(now), courtID, model.PlayerReady}, stringArgs(ids)...)
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET status = ?, current_wait_time = 0, updated_at = ?
		 WHERE current_court_id = ? AND status = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, wrap(err, "start players")
	}
	return affected(res, "start players")
}

// FinishPlayingTx returns PLAYING players to WAITING after a completed
// match: matches_played grows by one and the current wait restarts.
func (r *PlayerRepo) FinishPlayingTx(ctx context.Context, tx *sql.Tx, ids []string, now time.Time) (int64, error) {
	args := append([]any{model.PlayerWaiting, toMillis(now), model.PlayerPlaying}, stringArgs(ids)...)
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET status = ?, current_court_id = NULL, current_wait_time = 0,
		        matches_played = matches_played + 1, updated_at = ?
		 WHERE status = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, wrap(err, "finish players")
	}
	return affected(res, "finish players")
}

// ToggleActiveTx flips a player between WAITING and INACTIVE.  Players in
// any other status are untouched.
func (r *PlayerRepo) ToggleActiveTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET status = CASE status WHEN ? THEN ? ELSE ? END, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		model.PlayerWaiting, model.PlayerInactive, model.PlayerWaiting, toMillis(now),
		id, model.PlayerWaiting, model.PlayerInactive)
	if err != nil {
		return 0, wrap(err, "toggle player")
	}
	return affected(res, "toggle player")
}

// AdvanceWaitTx adds minutes to both wait counters of the session's
// WAITING players (or of the subset ids when non-empty), saturating at
// model.MaxWaitMinutes.  The add happens in SQL and is conditioned on the
// player still being WAITING, so a player claimed concurrently keeps its
// counters.  It returns the players that were advanced.
func (r *PlayerRepo) AdvanceWaitTx(ctx context.Context, tx *sql.Tx, sessionID string, minutes int, ids []string, now time.Time) ([]model.Player, int64, error) {
	filter := ` WHERE session_id = ? AND status = ?`
	filterArgs := []any{sessionID, model.PlayerWaiting}
	if len(ids) > 0 {
		filter += ` AND id IN (` + placeholders(len(ids)) + `)`
		filterArgs = append(filterArgs, stringArgs(ids)...)
	}

	targets, err := queryPlayers(ctx, tx, `SELECT `+playerColumns+` FROM players`+filter, filterArgs...)
	if err != nil {
		return nil, 0, err
	}
	if len(targets) == 0 {
		return nil, 0, nil
	}
	targetIDs := make([]string, len(targets))
	for i, p := range targets {
		targetIDs[i] = p.ID
	}

	limit := model.MaxWaitMinutes - minutes
	args := []any{
		limit, model.MaxWaitMinutes, minutes,
		limit, model.MaxWaitMinutes, minutes,
		toMillis(now), sessionID, model.PlayerWaiting,
	}
	args = append(args, stringArgs(targetIDs)...)
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET
		    current_wait_time = CASE WHEN current_wait_time > ? THEN ? ELSE current_wait_time + ? END,
		    total_wait_time = CASE WHEN total_wait_time > ? THEN ? ELSE total_wait_time + ? END,
		    updated_at = ?
		 WHERE session_id = ? AND status = ? AND id IN (`+placeholders(len(targetIDs))+`)`, args...)
	if err != nil {
		return nil, 0, wrap(err, "advance wait times")
	}
	n, err := affected(res, "advance wait times")
	if err != nil {
		return nil, 0, err
	}

	args = append([]any{model.PlayerWaiting, toMillis(now)}, stringArgs(targetIDs)...)
	updated, err := queryPlayers(ctx, tx,
		`SELECT `+playerColumns+` FROM players
		 WHERE status = ? AND updated_at = ? AND id IN (`+placeholders(len(targetIDs))+`)
		 ORDER BY current_wait_time DESC, player_number ASC`, args...)
	if err != nil {
		return nil, 0, err
	}
	return updated, n, nil
}

// FinishSessionTx marks every player of the session FINISHED and detaches
// them from courts.
func (r *PlayerRepo) FinishSessionTx(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET status = ?, current_court_id = NULL, updated_at = ? WHERE session_id = ?`,
		model.PlayerFinished, toMillis(now), sessionID)
	if err != nil {
		return 0, wrap(err, "finish session players")
	}
	return affected(res, "finish session players")
}
