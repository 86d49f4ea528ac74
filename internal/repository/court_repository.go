package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/iliyamo/court-rotation/internal/model"
)

// CourtRepo persists courts and the player slots claimed on them.  Court
// rows carry a version that every transition bumps; TransitionTx only
// applies when the caller's version is still current.
type CourtRepo struct {
	db *sql.DB
}

// NewCourtRepo constructs a CourtRepo given a DB handle.
func NewCourtRepo(db *sql.DB) *CourtRepo {
	return &CourtRepo{db: db}
}

const courtColumns = `id, session_id, court_number, name, status, current_match_id, version, created_at, updated_at`

func scanCourt(row rowScanner) (*model.Court, error) {
	var (
		c                    model.Court
		matchID              sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.SessionID, &c.CourtNumber, &c.Name, &c.Status, &matchID,
		&c.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CurrentMatchID = stringPtr(matchID)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// CreateBulkTx inserts courts in one statement.
func (r *CourtRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, courts []model.Court) error {
	if len(courts) == 0 {
		return nil
	}
	query := `INSERT INTO courts (` + courtColumns + `) VALUES `
	args := make([]any, 0, len(courts)*9)
	for i, c := range courts {
		if i > 0 {
			query += ", "
		}
		query += "(" + placeholders(9) + ")"
		args = append(args, c.ID, c.SessionID, c.CourtNumber, c.Name, c.Status,
			nullString(c.CurrentMatchID), c.Version, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return wrap(err, "insert courts")
}

// GetByID returns the court or ErrNotFound.
func (r *CourtRepo) GetByID(ctx context.Context, id string) (*model.Court, error) {
	return getCourt(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *CourtRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Court, error) {
	return getCourt(ctx, tx, id)
}

func getCourt(ctx context.Context, q querier, id string) (*model.Court, error) {
	c, err := scanCourt(q.QueryRowContext(ctx, `SELECT `+courtColumns+` FROM courts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "court %s", id)
	}
	if err != nil {
		return nil, wrap(err, "select court")
	}
	return c, nil
}

// ListBySession returns the courts of a session by court number.
func (r *CourtRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Court, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+courtColumns+` FROM courts WHERE session_id = ? ORDER BY court_number`, sessionID)
	if err != nil {
		return nil, wrap(err, "list courts")
	}
	defer rows.Close()
	var out []model.Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, wrap(err, "scan court")
		}
		out = append(out, *c)
	}
	return out, wrap(rows.Err(), "list courts")
}

// TransitionTx sets the court's status and current match if its version
// still equals c.Version, bumping the version.  A stale version yields
// ErrConflict.  On success c reflects the new row.
func (r *CourtRepo) TransitionTx(ctx context.Context, tx *sql.Tx, c *model.Court, to model.CourtStatus, matchID *string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE courts SET status = ?, current_match_id = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		to, nullString(matchID), toMillis(now), c.ID, c.Version)
	if err != nil {
		return wrap(err, "transition court")
	}
	n, err := affected(res, "transition court")
	if err != nil {
		return err
	}
	if n != 1 {
		return eris.Wrapf(ErrConflict, "court %s changed concurrently", c.ID)
	}
	c.Status = to
	c.CurrentMatchID = matchID
	c.Version++
	c.UpdatedAt = now
	return nil
}

// ResetSessionTx empties every court of a session.
func (r *CourtRepo) ResetSessionTx(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE courts SET status = ?, current_match_id = NULL, version = version + 1, updated_at = ?
		 WHERE session_id = ?`, model.CourtEmpty, toMillis(now), sessionID)
	return wrap(err, "reset courts")
}

// InsertSlotsTx records claims of the given kind on a court.
func (r *CourtRepo) InsertSlotsTx(ctx context.Context, tx *sql.Tx, courtID string, kind model.SlotKind, slots []model.Assignment) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO court_slots (court_id, slot, position, player_id) VALUES `
	args := make([]any, 0, len(slots)*4)
	for i, s := range slots {
		if i > 0 {
			query += ", "
		}
		query += "(?, ?, ?, ?)"
		args = append(args, courtID, kind, s.Position, s.PlayerID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return wrap(err, "insert court slots")
}

// SlotsTx returns the claims of one kind on a court, by position.
func (r *CourtRepo) SlotsTx(ctx context.Context, tx *sql.Tx, courtID string, kind model.SlotKind) ([]model.Assignment, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT player_id, position FROM court_slots WHERE court_id = ? AND slot = ? ORDER BY position`,
		courtID, kind)
	if err != nil {
		return nil, wrap(err, "select court slots")
	}
	defer rows.Close()
	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.PlayerID, &a.Position); err != nil {
			return nil, wrap(err, "scan court slot")
		}
		out = append(out, a)
	}
	return out, wrap(rows.Err(), "select court slots")
}

// SlotsBySession returns every claim of a session keyed by court id and
// slot kind.
func (r *CourtRepo) SlotsBySession(ctx context.Context, sessionID string) (map[string]map[model.SlotKind][]model.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cs.court_id, cs.slot, cs.player_id, cs.position
		 FROM court_slots cs JOIN courts c ON c.id = cs.court_id
		 WHERE c.session_id = ?
		 ORDER BY cs.court_id, cs.slot, cs.position`, sessionID)
	if err != nil {
		return nil, wrap(err, "list court slots")
	}
	defer rows.Close()
	out := map[string]map[model.SlotKind][]model.Assignment{}
	for rows.Next() {
		var (
			courtID string
			kind    model.SlotKind
			a       model.Assignment
		)
		if err := rows.Scan(&courtID, &kind, &a.PlayerID, &a.Position); err != nil {
			return nil, wrap(err, "scan court slot")
		}
		if out[courtID] == nil {
			out[courtID] = map[model.SlotKind][]model.Assignment{}
		}
		out[courtID][kind] = append(out[courtID][kind], a)
	}
	return out, wrap(rows.Err(), "list court slots")
}

// DeleteSlotsTx removes the claims of one kind on a court.
func (r *CourtRepo) DeleteSlotsTx(ctx context.Context, tx *sql.Tx, courtID string, kind model.SlotKind) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM court_slots WHERE court_id = ? AND slot = ?`, courtID, kind)
	return wrap(err, "delete court slots")
}

// PromoteSlotsTx turns a court's pre-selection into its selection.
func (r *CourtRepo) PromoteSlotsTx(ctx context.Context, tx *sql.Tx, courtID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE court_slots SET slot = ? WHERE court_id = ? AND slot = ?`,
		model.SlotSelected, courtID, model.SlotPreSelected)
	return wrap(err, "promote court slots")
}

// DeleteSessionSlotsTx removes every claim on the courts of a session.
func (r *CourtRepo) DeleteSessionSlotsTx(ctx context.Context, tx *sql.Tx, sessionID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM court_slots WHERE court_id IN (SELECT id FROM courts WHERE session_id = ?)`, sessionID)
	return wrap(err, "delete session slots")
}
