package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
)

// SessionRepo persists sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo given a DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, name, status, number_of_courts, max_players_per_court, session_duration_min,
	start_time, end_time, created_at, updated_at`

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		s                    model.Session
		start, end           sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Status, &s.NumberOfCourts, &s.MaxPlayersPerCourt,
		&s.SessionDuration, &start, &end, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.StartTime = timePtr(start)
	s.EndTime = timePtr(end)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

// CreateTx inserts s.  ID and timestamps must already be set.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	const q = `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, s.ID, s.Name, s.Status, s.NumberOfCourts, s.MaxPlayersPerCourt,
		s.SessionDuration, nullMillis(s.StartTime), nullMillis(s.EndTime), toMillis(s.CreatedAt), toMillis(s.UpdatedAt))
	return wrap(err, "insert session")
}

// GetByID returns the session or ErrNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	return getSession(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	return getSession(ctx, tx, id)
}

func getSession(ctx context.Context, q querier, id string) (*model.Session, error) {
	s, err := scanSession(q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	if err != nil {
		return nil, wrap(err, "select session")
	}
	return s, nil
}

// ListByStatus returns every session in the given status, oldest first.
func (r *SessionRepo) ListByStatus(ctx context.Context, status model.SessionStatus) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY created_at, id`, status)
	if err != nil {
		return nil, wrap(err, "list sessions")
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrap(err, "scan session")
		}
		out = append(out, *s)
	}
	return out, wrap(rows.Err(), "list sessions")
}

// TransitionTx moves the session from one status to another.  Entering
// IN_PROGRESS stamps start_time unless it is already set; entering
// FINISHED stamps end_time.  It reports false when the session was not in
// the expected status.
func (r *SessionRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id string, from, to model.SessionStatus, now time.Time) (bool, error) {
	q := `UPDATE sessions SET status = ?, updated_at = ?`
	args := []any{to, toMillis(now)}
	switch to {
	case model.SessionInProgress:
		q += `, start_time = COALESCE(start_time, ?)`
		args = append(args, toMillis(now))
	case model.SessionFinished:
		q += `, end_time = ?`
		args = append(args, toMillis(now))
	}
	q += ` WHERE id = ? AND status = ?`
	args = append(args, id, from)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, wrap(err, "transition session")
	}
	n, err := affected(res, "transition session")
	return n == 1, err
}
