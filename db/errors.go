package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("todo/db: record not found")
	ErrDuplicateKey        = errors.New("todo/db: duplicate key")
	ErrForeignKeyViolation = errors.New("todo/db: foreign key violation")
	ErrCheckViolation      = errors.New("todo/db: check constraint violation")
	ErrDeadlock            = errors.New("todo/db: deadlock detected")
	ErrTimeout             = errors.New("todo/db: query timeout")
	ErrConnectionFailed    = errors.New("todo/db: connection failed")
)

func IsNotFound(err error) bool            { return errors.Is(err, ErrNotFound) }
func IsDuplicateKey(err error) bool        { return errors.Is(err, ErrDuplicateKey) }
func IsForeignKeyViolation(err error) bool { return errors.Is(err, ErrForeignKeyViolation) }
func IsCheckViolation(err error) bool      { return errors.Is(err, ErrCheckViolation) }
func IsDeadlock(err error) bool            { return errors.Is(err, ErrDeadlock) }
func IsTimeout(err error) bool             { return errors.Is(err, ErrTimeout) }
func IsConnectionFailed(err error) bool    { return errors.Is(err, ErrConnectionFailed) }

// IsConstraintViolation reports unique, foreign key and check failures.
func IsConstraintViolation(err error) bool {
	return IsDuplicateKey(err) || IsForeignKeyViolation(err) || IsCheckViolation(err)
}

// DBError pairs one of the Err* sentinels with the driver error behind it.
// errors.Is matches the sentinel; errors.Unwrap yields the driver error.
type DBError struct {
	Sentinel error
	Cause    error
	Message  string
}

func (e *DBError) Error() string {
	msg := e.Sentinel.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
}

func (e *DBError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *DBError) Unwrap() error        { return e.Cause }

// ErrorMapper turns driver errors into *DBError values carrying a sentinel.
// Errors it does not recognise are returned unchanged.
type ErrorMapper interface {
	Map(err error) error
}

// classifier returns the sentinel for err, or nil when it does not know err.
type classifier func(error) error

// classifiers tries each classifier in order and wraps the first hit.
type classifiers []classifier

func (cs classifiers) Map(err error) error {
	if err == nil {
		return nil
	}
	var mapped *DBError
	if errors.As(err, &mapped) {
		return err
	}
	for _, classify := range cs {
		if sentinel := classify(err); sentinel != nil {
			return &DBError{Sentinel: sentinel, Cause: err}
		}
	}
	return err
}

// DefaultErrorMapper understands database/sql, context, PostgreSQL and
// SQLite errors.
func DefaultErrorMapper() ErrorMapper {
	return classifiers{classifyStd, classifyPostgres, classifySQLite}
}

func classifyStd(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	}
	return nil
}

// pgStates maps SQLSTATE codes to sentinels. Class 08 (connection
// exception) is matched by prefix in classifyPostgres.
var pgStates = map[string]error{
	"23505": ErrDuplicateKey,        // unique_violation
	"23503": ErrForeignKeyViolation, // foreign_key_violation
	"23514": ErrCheckViolation,      // check_violation
	"40P01": ErrDeadlock,            // deadlock_detected
	"57014": ErrTimeout,             // query_canceled
	"57P01": ErrConnectionFailed,    // admin_shutdown
	"57P03": ErrConnectionFailed,    // cannot_connect_now
}

// classifyPostgres works off the SQLState method *pq.Error exposes, so the
// driver package is not imported here.
func classifyPostgres(err error) error {
	var se interface{ SQLState() string }
	if !errors.As(err, &se) {
		return nil
	}
	code := se.SQLState()
	if sentinel, ok := pgStates[code]; ok {
		return sentinel
	}
	if strings.HasPrefix(code, "08") {
		return ErrConnectionFailed
	}
	return nil
}

// sqliteMessages matches go-sqlite3 error text. Matching on text keeps the
// cgo driver out of this package.
var sqliteMessages = []struct {
	fragment string
	sentinel error
}{
	{"UNIQUE constraint failed", ErrDuplicateKey},
	{"FOREIGN KEY constraint failed", ErrForeignKeyViolation},
	{"CHECK constraint failed", ErrCheckViolation},
	{"database is locked", ErrDeadlock},
	{"unable to open database file", ErrConnectionFailed},
}

func classifySQLite(err error) error {
	msg := err.Error()
	for _, m := range sqliteMessages {
		if strings.Contains(msg, m.fragment) {
			return m.sentinel
		}
	}
	return nil
}
