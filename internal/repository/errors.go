// Package repository holds the SQL access for sessions, players, courts
// and matches.  Every state change is a conditional UPDATE keyed by the
// expected prior state; callers read the affected-row count to decide
// whether they won.  Driver-level lock errors from MySQL and SQLite are
// folded into ErrConflict so higher layers can treat them as a lost race.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write lost a race: a version check
// failed, the row changed state underneath us, or the database reported a
// deadlock, lock timeout or uniqueness violation.
var ErrConflict = errors.New("conflict")

const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

// wrap adds context to a driver error, mapping lock and uniqueness
// failures to ErrConflict.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return eris.Wrapf(ErrConflict, "%s: %s", msg, err.Error())
	}
	return eris.Wrap(err, msg)
}

func isConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDeadlockDetected, mysqlLockWaitTimeout, mysqlDuplicateEntry:
			return true
		}
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
