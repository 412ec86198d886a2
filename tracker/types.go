/*
Package tracker provides the habit scheduling and completion tracking engine.

PURPOSE:
  Decides which habits are due on a given calendar day and flips the
  completion state of a habit for a day. Everything else (HTTP, reporting,
  configuration) lives outside this package and talks to it through the
  Tracker type and the store interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Habit:      A recurring activity with a weekday set and a creation day
  - Day:        A persisted calendar day, created lazily on first toggle
  - Completion: The (day, habit) pair whose existence IS the done flag
  - State:      INCOMPLETE / COMPLETE for a (day, habit) pair

ELIGIBILITY RULE:
  A habit is eligible on date D when
    habit.CreatedOn <= D  AND  D.Weekday() is in habit.WeekDays

SEE ALSO:
  - time.go:    Date, Weekday, Clock
  - store.go:   Persistence interfaces
  - tracker.go: DaySummary and Toggle
*/
package tracker

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type HabitID string
type DayID string
type CompletionID string

// NewHabitID returns a fresh random habit id.
func NewHabitID() HabitID { return HabitID(uuid.NewString()) }

func NewDayID() DayID { return DayID(uuid.NewString()) }

func NewCompletionID() CompletionID { return CompletionID(uuid.NewString()) }

// ParseHabitID validates that s is a UUID and returns it in canonical form.
func ParseHabitID(s string) (HabitID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", &ValidationError{Field: "id", Message: "must be a UUID"}
	}
	return HabitID(id.String()), nil
}

// =============================================================================
// HABIT
// =============================================================================

// Habit is a recurring activity definition. CreatedOn is the eligibility
// floor and never changes after creation.
type Habit struct {
	ID        HabitID
	Title     string
	CreatedOn Date
	WeekDays  []Weekday
}

// OccursOn reports whether the habit recurs on the weekday of d.
func (h Habit) OccursOn(d Date) bool {
	return slices.Contains(h.WeekDays, d.Weekday())
}

// EligibleOn applies the eligibility rule.
func (h Habit) EligibleOn(d Date) bool {
	return h.CreatedOn.BeforeOrEqual(d) && h.OccursOn(d)
}

// NewHabit is the input to Tracker.CreateHabit.
type NewHabit struct {
	Title    string
	WeekDays []Weekday
	// CreatedOn defaults to the tracker clock's today when nil.
	CreatedOn *Date
}

// Validate checks title and weekday constraints.
func (n NewHabit) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	seen := make(map[Weekday]bool, len(n.WeekDays))
	for _, wd := range n.WeekDays {
		if !wd.Valid() {
			return &ValidationError{Field: "weekDays", Message: "values must be between 0 and 6"}
		}
		if seen[wd] {
			return &ValidationError{Field: "weekDays", Message: "values must not repeat"}
		}
		seen[wd] = true
	}
	return nil
}

// =============================================================================
// DAY / COMPLETION
// =============================================================================

// Day exists once at least one toggle happened on its date. It is never
// removed, even after its last completion is toggled off.
type Day struct {
	ID   DayID
	Date Date
}

type Completion struct {
	ID      CompletionID
	DayID   DayID
	HabitID HabitID
}

// =============================================================================
// STATE
// =============================================================================

// State is the completion state of a (day, habit) pair.
type State string

const (
	StateIncomplete State = "incomplete"
	StateComplete   State = "complete"
)

// DaySummary is the read model returned for a date.
type DaySummary struct {
	Date           Date
	EligibleHabits []Habit
	// CompletedHabitIDs is every habit with a completion on Date, not
	// filtered against EligibleHabits.
	CompletedHabitIDs []HabitID
}

func (s DaySummary) IsCompleted(id HabitID) bool {
	return slices.Contains(s.CompletedHabitIDs, id)
}

// Progress counts eligible habits and how many of them are completed.
func (s DaySummary) Progress() (completed, eligible int) {
	for _, h := range s.EligibleHabits {
		if s.IsCompleted(h.ID) {
			completed++
		}
	}
	return completed, len(s.EligibleHabits)
}
