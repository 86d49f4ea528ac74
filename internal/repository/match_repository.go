package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
)

// MatchRepo persists matches with their players, set scores and winners.
// Matches are append-only; the only update is the IN_PROGRESS to FINISHED
// transition.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo constructs a MatchRepo given a DB handle.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

const matchColumns = `id, session_id, court_id, status, start_time, end_time, is_draw, notes`

func scanMatch(row rowScanner) (*model.Match, error) {
	var (
		m     model.Match
		start int64
		end   sql.NullInt64
		notes sql.NullString
	)
	if err := row.Scan(&m.ID, &m.SessionID, &m.CourtID, &m.Status, &start, &end, &m.IsDraw, &notes); err != nil {
		return nil, err
	}
	m.StartTime = fromMillis(start)
	m.EndTime = timePtr(end)
	m.Notes = stringPtr(notes)
	return &m, nil
}

// CreateTx inserts m and its player positions.
func (r *MatchRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Match) error {
	now := toMillis(m.StartTime)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.CourtID, m.Status, now, nullMillis(m.EndTime), m.IsDraw, nullString(m.Notes), now, now,
	); err != nil {
		return wrap(err, "insert match")
	}
	query := `INSERT INTO match_players (match_id, position, player_id) VALUES `
	args := make([]any, 0, len(m.Players)*3)
	for i, p := range m.Players {
		if i > 0 {
			query += ", "
		}
		query += "(?, ?, ?)"
		args = append(args, m.ID, p.Position, p.PlayerID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return wrap(err, "insert match players")
}

// GetByID returns the match with its details or ErrNotFound.
func (r *MatchRepo) GetByID(ctx context.Context, id string) (*model.Match, error) {
	return getMatch(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *MatchRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Match, error) {
	return getMatch(ctx, tx, id)
}

func getMatch(ctx context.Context, q querier, id string) (*model.Match, error) {
	m, err := scanMatch(q.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "match %s", id)
	}
	if err != nil {
		return nil, wrap(err, "select match")
	}
	if err := loadDetails(ctx, q, []*model.Match{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// ListBySession returns the matches of a session, newest first.
func (r *MatchRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Match, error) {
	return listMatches(ctx, r.db,
		`SELECT `+matchColumns+` FROM matches WHERE session_id = ? ORDER BY start_time DESC, created_at DESC, id`,
		sessionID)
}

// ListInProgressTx returns the session's running matches inside tx.
func (r *MatchRepo) ListInProgressTx(ctx context.Context, tx *sql.Tx, sessionID string) ([]model.Match, error) {
	return listMatches(ctx, tx,
		`SELECT `+matchColumns+` FROM matches WHERE session_id = ? AND status = ? ORDER BY start_time, id`,
		sessionID, model.MatchInProgress)
}

func listMatches(ctx context.Context, q querier, query string, args ...any) ([]model.Match, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list matches")
	}
	var ptrs []*model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			rows.Close()
			return nil, wrap(err, "scan match")
		}
		ptrs = append(ptrs, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list matches")
	}
	if err := loadDetails(ctx, q, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.Match, len(ptrs))
	for i, m := range ptrs {
		out[i] = *m
	}
	return out, nil
}

// loadDetails fills players, scores and winners for the given matches
// with one query per table.
func loadDetails(ctx context.Context, q querier, matches []*model.Match) error {
	if len(matches) == 0 {
		return nil
	}
	byID := make(map[string]*model.Match, len(matches))
	ids := make([]string, len(matches))
	for i, m := range matches {
		byID[m.ID] = m
		ids[i] = m.ID
	}
	in := placeholders(len(ids))

	rows, err := q.QueryContext(ctx,
		`SELECT match_id, player_id, position FROM match_players WHERE match_id IN (`+in+`) ORDER BY match_id, position`,
		stringArgs(ids)...)
	if err != nil {
		return wrap(err, "select match players")
	}
	for rows.Next() {
		var (
			matchID string
			a       model.Assignment
		)
		if err := rows.Scan(&matchID, &a.PlayerID, &a.Position); err != nil {
			rows.Close()
			return wrap(err, "scan match player")
		}
		byID[matchID].Players = append(byID[matchID].Players, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrap(err, "select match players")
	}

	rows, err = q.QueryContext(ctx,
		`SELECT match_id, team1, team2 FROM match_scores WHERE match_id IN (`+in+`) ORDER BY match_id, set_number`,
		stringArgs(ids)...)
	if err != nil {
		return wrap(err, "select match scores")
	}
	for rows.Next() {
		var (
			matchID string
			s       model.SetScore
		)
		if err := rows.Scan(&matchID, &s.Team1, &s.Team2); err != nil {
			rows.Close()
			return wrap(err, "scan match score")
		}
		byID[matchID].Scores = append(byID[matchID].Scores, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrap(err, "select match scores")
	}

	rows, err = q.QueryContext(ctx,
		`SELECT match_id, player_id FROM match_winners WHERE match_id IN (`+in+`) ORDER BY match_id, player_id`,
		stringArgs(ids)...)
	if err != nil {
		return wrap(err, "select match winners")
	}
	defer rows.Close()
	for rows.Next() {
		var matchID, playerID string
		if err := rows.Scan(&matchID, &playerID); err != nil {
			return wrap(err, "scan match winner")
		}
		byID[matchID].WinnerIDs = append(byID[matchID].WinnerIDs, playerID)
	}
	return wrap(rows.Err(), "select match winners")
}

// FinishTx moves an IN_PROGRESS match to FINISHED and stores its result.
// A match that is no longer IN_PROGRESS yields ErrConflict.
func (r *MatchRepo) FinishTx(ctx context.Context, tx *sql.Tx, id string, end time.Time, result model.MatchResult) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE matches SET status = ?, end_time = ?, is_draw = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		model.MatchFinished, toMillis(end), result.IsDraw, nullString(result.Notes), toMillis(end),
		id, model.MatchInProgress)
	if err != nil {
		return wrap(err, "finish match")
	}
	n, err := affected(res, "finish match")
	if err != nil {
		return err
	}
	if n != 1 {
		return eris.Wrapf(ErrConflict, "match %s is no longer in progress", id)
	}
	for i, s := range result.Scores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_scores (match_id, set_number, team1, team2) VALUES (?, ?, ?, ?)`,
			id, i+1, s.Team1, s.Team2); err != nil {
			return wrap(err, "insert match score")
		}
	}
	for _, w := range result.WinnerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_winners (match_id, player_id) VALUES (?, ?)`, id, w); err != nil {
			return wrap(err, "insert match winner")
		}
	}
	return nil
}
