/*
errors.go - Error types for the tracker engine

ERROR CATEGORIES:
  1. Validation - malformed title, weekday, date or id (client error, 400)
  2. Not found  - unknown habit, missing completion on remove (404)
  3. Conflict   - duplicate completion on add (409); a lost race or a
                  caller that skipped the existence check
  4. Store I/O  - wrapped with context and propagated unchanged (500)

USAGE:
  if errors.Is(err, tracker.ErrConflict) { ... }

  var verr *tracker.ValidationError
  if errors.As(err, &verr) { ... verr.Field ... }
*/
package tracker

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for input that breaks a habit or date rule.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced habit, day or completion
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique (day, habit) or (date) key is
	// already taken.
	ErrConflict = errors.New("conflict")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CompletionError carries the pair involved in a failed add/remove.
type CompletionError struct {
	Op      string // "add" or "remove"
	DayID   DayID
	HabitID HabitID
	Err     error // ErrConflict or ErrNotFound
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion (day %s, habit %s): %v", e.Op, e.DayID, e.HabitID, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// HabitNotFoundError is returned when a toggle references an unknown habit.
type HabitNotFoundError struct {
	ID HabitID
}

func (e *HabitNotFoundError) Error() string {
	return fmt.Sprintf("habit %s not found", e.ID)
}

func (e *HabitNotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
