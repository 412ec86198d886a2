/*
store.go - Persistence interfaces for habits, days and completions

KEY INTERFACES:
  HabitStore:      Habit definitions and weekday recurrence
  DayStore:        One record per calendar day, lookup-or-create
  CompletionStore: (day, habit) pairs, existence == completed
  Store:           All three together
  TxStore:         Store plus atomic multi-step operations

UNIQUENESS:
  Implementations MUST guarantee:
  - at most one Day per Date (GetOrCreateDay resolves races to one row)
  - at most one Completion per (DayID, HabitID) (AddCompletion -> ErrConflict)

IMPLEMENTATIONS:
  - tracker/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go:  SQLite
*/
package tracker

import "context"

type HabitStore interface {
	// CreateHabit persists the habit and its weekday rows together.
	CreateHabit(ctx context.Context, h Habit) error

	// GetHabit returns nil, nil when the id is unknown.
	GetHabit(ctx context.Context, id HabitID) (*Habit, error)

	// FindEligibleOn returns habits with CreatedOn <= date whose weekday set
	// contains date's weekday, in insertion order.
	FindEligibleOn(ctx context.Context, date Date) ([]Habit, error)

	// ListHabits returns every habit, unfiltered.
	ListHabits(ctx context.Context) ([]Habit, error)
}

type DayStore interface {
	// FindDay returns nil, nil when no Day exists for date.
	FindDay(ctx context.Context, date Date) (*Day, error)

	// GetOrCreateDay returns the Day for date, creating it when absent.
	// Concurrent calls for the same date return the same Day.
	GetOrCreateDay(ctx context.Context, date Date) (Day, error)
}

type CompletionStore interface {
	CompletionExists(ctx context.Context, dayID DayID, habitID HabitID) (bool, error)

	// AddCompletion fails with ErrConflict when the pair already exists and
	// with ErrNotFound when the day or habit does not.
	AddCompletion(ctx context.Context, dayID DayID, habitID HabitID) (Completion, error)

	// RemoveCompletion fails with ErrNotFound when the pair does not exist.
	RemoveCompletion(ctx context.Context, dayID DayID, habitID HabitID) error

	// CompletedHabitIDs returns the habit side of every completion of a day.
	CompletedHabitIDs(ctx context.Context, dayID DayID) ([]HabitID, error)
}

type Store interface {
	HabitStore
	DayStore
	CompletionStore
}

// TxStore wraps Store with transaction support.
// If fn returns an error every write made through the Store passed to fn is
// rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
