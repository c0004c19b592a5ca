package quiz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound covers references to entities that do not exist. It is
// deliberately distinct from ErrForbidden: "exists but you may not touch it"
// must not collapse into "does not exist".
var ErrNotFound = errors.New("not found")

// ErrForbidden covers ownership and enrollment failures.
var ErrForbidden = errors.New("forbidden")

// ValidationError rejects malformed authoring input before any write.
// QuestionIndex is -1 when the error is not tied to a particular question.
type ValidationError struct {
	Field         string
	QuestionIndex int
	Msg           string
}

func (e *ValidationError) Error() string {
	if e.QuestionIndex >= 0 {
		return fmt.Sprintf("question %d: %s", e.QuestionIndex+1, e.Msg)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func validationErr(field, msg string) error {
	return &ValidationError{Field: field, QuestionIndex: -1, Msg: msg}
}

func questionErr(idx int, msg string) error {
	return &ValidationError{QuestionIndex: idx, Msg: msg}
}

// StateError rejects operations that are well-formed but not allowed in the
// entity's current state (window closed, attempts exhausted, wrong status).
// These are expected, recoverable conditions.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

func stateErr(msg string) error { return &StateError{Msg: msg} }

// IsValidation reports whether err is an authoring validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsState reports whether err is a state-machine rejection.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// isUniqueViolation detects a unique-constraint conflict on either driver.
// Attempt numbering relies on this to retry instead of racing.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc sqlite surfaces constraint failures as plain strings.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
