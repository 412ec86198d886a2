/*
tracker.go - Eligibility engine and toggle controller

PURPOSE:
  Tracker is the entry point of the engine. It owns no state of its own:
  the Store is built by the service bootstrap and injected, and "today"
  comes from the injected Clock so every operation is testable against
  arbitrary dates.

OPERATIONS:
  CreateHabit   validate + default CreatedOn + persist
  ListHabits    passthrough listing
  DaySummary    eligible habits + completed habit ids for a date
  Toggle        flip (date, habit) between INCOMPLETE and COMPLETE
  ToggleToday   Toggle with date = Clock.Today()

TOGGLE STATE MACHINE:
  INCOMPLETE --toggle--> COMPLETE    (AddCompletion)
  COMPLETE   --toggle--> INCOMPLETE  (RemoveCompletion)

  The Day row is created on the first toggle of a date and is kept even
  when the toggle removes its last completion.

ATOMICITY:
  When the store implements TxStore the whole toggle (get-or-create day,
  existence check, add/remove) runs in one transaction, so a failure
  leaves the pair in its prior state.
*/
package tracker

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
)

type Tracker struct {
	store  Store
	clock  Clock
	logger *log.Logger
}

// New creates a Tracker. A nil logger discards output.
func New(store Store, clock Clock, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Tracker{store: store, clock: clock, logger: logger}
}

// Clock returns the tracker's clock.
func (t *Tracker) Clock() Clock { return t.clock }

// =============================================================================
// HABITS
// =============================================================================

// CreateHabit validates n and persists a new habit with a fresh id.
func (t *Tracker) CreateHabit(ctx context.Context, n NewHabit) (Habit, error) {
	if err := n.Validate(); err != nil {
		return Habit{}, err
	}

	createdOn := t.clock.Today()
	if n.CreatedOn != nil {
		createdOn = *n.CreatedOn
	}

	h := Habit{
		ID:        NewHabitID(),
		Title:     n.Title,
		CreatedOn: createdOn,
		WeekDays:  slices.Sorted(slices.Values(n.WeekDays)),
	}
	if err := t.store.CreateHabit(ctx, h); err != nil {
		return Habit{}, fmt.Errorf("create habit: %w", err)
	}

	t.logger.Info("habit created", "id", h.ID, "title", h.Title, "created_on", h.CreatedOn, "week_days", h.WeekDays)
	return h, nil
}

func (t *Tracker) ListHabits(ctx context.Context) ([]Habit, error) {
	return t.store.ListHabits(ctx)
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// DaySummary returns the habits eligible on date and the ids of habits
// completed on it. A date without a Day record has no completions.
// The two lookups are independent reads and are not run in a transaction.
func (t *Tracker) DaySummary(ctx context.Context, date Date) (DaySummary, error) {
	eligible, err := t.store.FindEligibleOn(ctx, date)
	if err != nil {
		return DaySummary{}, fmt.Errorf("find eligible habits on %s: %w", date, err)
	}

	summary := DaySummary{
		Date:              date,
		EligibleHabits:    eligible,
		CompletedHabitIDs: []HabitID{},
	}
	if summary.EligibleHabits == nil {
		summary.EligibleHabits = []Habit{}
	}

	day, err := t.store.FindDay(ctx, date)
	if err != nil {
		return DaySummary{}, fmt.Errorf("find day %s: %w", date, err)
	}
	if day == nil {
		return summary, nil
	}

	ids, err := t.store.CompletedHabitIDs(ctx, day.ID)
	if err != nil {
		return DaySummary{}, fmt.Errorf("load completions for %s: %w", date, err)
	}
	if ids != nil {
		summary.CompletedHabitIDs = ids
	}
	return summary, nil
}

// =============================================================================
// TOGGLE
// =============================================================================

// ToggleToday flips the habit's completion for the clock's current date.
func (t *Tracker) ToggleToday(ctx context.Context, habitID HabitID) (State, error) {
	return t.Toggle(ctx, t.clock.Today(), habitID)
}

// Toggle flips the completion state of (date, habitID) and returns the new
// state. Store errors are surfaced, never retried.
func (t *Tracker) Toggle(ctx context.Context, date Date, habitID HabitID) (State, error) {
	var state State
	run := func(s Store) error {
		var err error
		state, err = toggle(ctx, s, date, habitID)
		return err
	}

	var err error
	if txs, ok := t.store.(TxStore); ok {
		err = txs.WithTx(ctx, run)
	} else {
		err = run(t.store)
	}
	if err != nil {
		if IsConflict(err) || IsNotFound(err) {
			t.logger.Warn("toggle rejected", "date", date, "habit", habitID, "err", err)
		} else {
			t.logger.Error("toggle failed", "date", date, "habit", habitID, "err", err)
		}
		return "", err
	}

	t.logger.Debug("habit toggled", "date", date, "habit", habitID, "state", state)
	return state, nil
}

func toggle(ctx context.Context, s Store, date Date, habitID HabitID) (State, error) {
	habit, err := s.GetHabit(ctx, habitID)
	if err != nil {
		return "", fmt.Errorf("get habit %s: %w", habitID, err)
	}
	if habit == nil {
		return "", &HabitNotFoundError{ID: habitID}
	}

	day, err := s.GetOrCreateDay(ctx, date)
	if err != nil {
		return "", fmt.Errorf("get or create day %s: %w", date, err)
	}

	done, err := s.CompletionExists(ctx, day.ID, habitID)
	if err != nil {
		return "", fmt.Errorf("check completion: %w", err)
	}

	if done {
		if err := s.RemoveCompletion(ctx, day.ID, habitID); err != nil {
			return "", err
		}
		return StateIncomplete, nil
	}

	if _, err := s.AddCompletion(ctx, day.ID, habitID); err != nil {
		return "", err
	}
	return StateComplete, nil
}
