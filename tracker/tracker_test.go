package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/habit-engine/tracker"
	"github.com/warp/habit-engine/tracker/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	jan1  = tracker.NewDate(2024, time.January, 1) // Monday
	jan2  = tracker.NewDate(2024, time.January, 2) // Tuesday
	jan3  = tracker.NewDate(2024, time.January, 3) // Wednesday
	dec31 = tracker.NewDate(2023, time.December, 31)
)

func newTestTracker(today tracker.Date) (*tracker.Tracker, *store.Memory) {
	mem := store.NewMemory()
	clock := tracker.FixedClock(today.Time.Add(9 * time.Hour))
	return tracker.New(mem, clock, nil), mem
}

func createHabit(t *testing.T, tr *tracker.Tracker, title string, on tracker.Date, days ...tracker.Weekday) tracker.Habit {
	t.Helper()
	h, err := tr.CreateHabit(context.Background(), tracker.NewHabit{Title: title, WeekDays: days, CreatedOn: &on})
	require.NoError(t, err)
	return h
}

func ids(habits []tracker.Habit) []tracker.HabitID {
	out := make([]tracker.HabitID, len(habits))
	for i, h := range habits {
		out[i] = h.ID
	}
	return out
}

// =============================================================================
// CREATE HABIT
// =============================================================================

func TestCreateHabit_DefaultsCreatedOnToToday(t *testing.T) {
	tr, _ := newTestTracker(jan3)

	h, err := tr.CreateHabit(context.Background(), tracker.NewHabit{
		Title:    "Read",
		WeekDays: []tracker.Weekday{tracker.Wednesday},
	})
	require.NoError(t, err)

	assert.True(t, h.CreatedOn.Equal(jan3))
	assert.NotEmpty(t, h.ID)
}

func TestCreateHabit_Validation(t *testing.T) {
	tr, mem := newTestTracker(jan1)

	tests := []struct {
		name  string
		input tracker.NewHabit
		field string
	}{
		{"empty title", tracker.NewHabit{Title: "  ", WeekDays: []tracker.Weekday{1}}, "title"},
		{"weekday above range", tracker.NewHabit{Title: "Run", WeekDays: []tracker.Weekday{7}}, "weekDays"},
		{"negative weekday", tracker.NewHabit{Title: "Run", WeekDays: []tracker.Weekday{-1}}, "weekDays"},
		{"duplicate weekday", tracker.NewHabit{Title: "Run", WeekDays: []tracker.Weekday{2, 2}}, "weekDays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.CreateHabit(context.Background(), tt.input)

			var verr *tracker.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, tracker.IsClientError(err))
		})
	}

	habits, err := mem.ListHabits(context.Background())
	require.NoError(t, err)
	assert.Empty(t, habits, "rejected habits must not be persisted")
}

func TestCreateHabit_StoresWeekDaysAscending(t *testing.T) {
	tr, mem := newTestTracker(jan3)

	h := createHabit(t, tr, "Drink water", jan3, tracker.Friday, tracker.Monday, tracker.Wednesday)

	want := []tracker.Weekday{tracker.Monday, tracker.Wednesday, tracker.Friday}
	assert.Equal(t, want, h.WeekDays)

	stored, err := mem.GetHabit(context.Background(), h.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, want, stored.WeekDays)
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func TestDaySummary_DrinkWaterExample(t *testing.T) {
	// GIVEN: "Drink water" created 2024-01-01 on Mon/Wed/Fri
	tr, _ := newTestTracker(jan1)
	water := createHabit(t, tr, "Drink water", jan1, tracker.Monday, tracker.Wednesday, tracker.Friday)
	ctx := context.Background()

	tests := []struct {
		name     string
		date     tracker.Date
		eligible bool
	}{
		{"wednesday after creation", jan3, true},
		{"tuesday", jan2, false},
		{"before creation", dec31, false},
		{"creation day itself", jan1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tr.DaySummary(ctx, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.eligible, len(s.EligibleHabits) == 1 && s.EligibleHabits[0].ID == water.ID)
		})
	}
}

func TestDaySummary_NeverEligibleBeforeCreation(t *testing.T) {
	// GIVEN: a habit on every weekday created 2024-01-03
	tr, _ := newTestTracker(jan3)
	createHabit(t, tr, "Stretch", jan3, 0, 1, 2, 3, 4, 5, 6)
	ctx := context.Background()

	// THEN: no date in the preceding two weeks sees it
	for d := jan3.AddDays(-14); d.Before(jan3); d = d.AddDays(1) {
		s, err := tr.DaySummary(ctx, d)
		require.NoError(t, err)
		assert.Empty(t, s.EligibleHabits, "date %s", d)
	}
}

func TestDaySummary_WeekdayProperty(t *testing.T) {
	// For each single-weekday habit, eligibility over three weeks matches
	// date >= created AND weekday == w.
	ctx := context.Background()
	for w := tracker.Sunday; w <= tracker.Saturday; w++ {
		tr, _ := newTestTracker(jan1)
		h := createHabit(t, tr, "H", jan3, w)

		for d := jan1.AddDays(-7); d.Before(jan1.AddDays(21)); d = d.AddDays(1) {
			s, err := tr.DaySummary(ctx, d)
			require.NoError(t, err)
			want := !d.Before(jan3) && d.Weekday() == w
			assert.Equal(t, want, len(s.EligibleHabits) == 1, "weekday %s date %s", w, d)
			if want {
				assert.Equal(t, h.ID, s.EligibleHabits[0].ID)
			}
		}
	}
}

func TestDaySummary_NoDayRecordMeansNoCompletions(t *testing.T) {
	tr, _ := newTestTracker(jan3)
	createHabit(t, tr, "Read", jan1, tracker.Wednesday)

	s, err := tr.DaySummary(context.Background(), jan3)
	require.NoError(t, err)

	assert.Len(t, s.EligibleHabits, 1)
	assert.NotNil(t, s.CompletedHabitIDs)
	assert.Empty(t, s.CompletedHabitIDs)
}

func TestDaySummary_InsertionOrder(t *testing.T) {
	tr, _ := newTestTracker(jan3)
	a := createHabit(t, tr, "A", jan1, tracker.Wednesday)
	b := createHabit(t, tr, "B", jan2, tracker.Wednesday)
	c := createHabit(t, tr, "C", jan1, tracker.Wednesday, tracker.Friday)

	s, err := tr.DaySummary(context.Background(), jan3)
	require.NoError(t, err)
	assert.Equal(t, []tracker.HabitID{a.ID, b.ID, c.ID}, ids(s.EligibleHabits))
}

// =============================================================================
// TOGGLE
// =============================================================================

func TestToggle_CreatesDayAndCompletion(t *testing.T) {
	// GIVEN: no Day record for today
	tr, mem := newTestTracker(jan3)
	water := createHabit(t, tr, "Drink water", jan1, tracker.Monday, tracker.Wednesday, tracker.Friday)
	ctx := context.Background()

	day, err := mem.FindDay(ctx, jan3)
	require.NoError(t, err)
	require.Nil(t, day)

	// WHEN: toggling once
	state, err := tr.ToggleToday(ctx, water.ID)
	require.NoError(t, err)

	// THEN: one Day and one Completion exist
	assert.Equal(t, tracker.StateComplete, state)
	day, err = mem.FindDay(ctx, jan3)
	require.NoError(t, err)
	require.NotNil(t, day)

	done, err := mem.CompletionExists(ctx, day.ID, water.ID)
	require.NoError(t, err)
	assert.True(t, done)

	s, err := tr.DaySummary(ctx, jan3)
	require.NoError(t, err)
	assert.Contains(t, s.CompletedHabitIDs, water.ID)

	// WHEN: toggling again
	state, err = tr.ToggleToday(ctx, water.ID)
	require.NoError(t, err)

	// THEN: completion removed, Day kept
	assert.Equal(t, tracker.StateIncomplete, state)
	again, err := mem.FindDay(ctx, jan3)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, day.ID, again.ID)

	s, err = tr.DaySummary(ctx, jan3)
	require.NoError(t, err)
	assert.NotContains(t, s.CompletedHabitIDs, water.ID)
}

func TestToggle_IsItsOwnInverse(t *testing.T) {
	tr, _ := newTestTracker(jan3)
	h := createHabit(t, tr, "Read", jan1, tracker.Wednesday)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		before, err := tr.DaySummary(ctx, jan3)
		require.NoError(t, err)

		_, err = tr.Toggle(ctx, jan3, h.ID)
		require.NoError(t, err)
		_, err = tr.Toggle(ctx, jan3, h.ID)
		require.NoError(t, err)

		after, err := tr.DaySummary(ctx, jan3)
		require.NoError(t, err)
		assert.Equal(t, before.IsCompleted(h.ID), after.IsCompleted(h.ID))

		// leave it flipped for the next round
		_, err = tr.Toggle(ctx, jan3, h.ID)
		require.NoError(t, err)
	}
}

func TestToggle_ExplicitDateIsIndependentOfToday(t *testing.T) {
	tr, _ := newTestTracker(jan3)
	h := createHabit(t, tr, "Read", jan1, tracker.Monday, tracker.Wednesday)
	ctx := context.Background()

	_, err := tr.Toggle(ctx, jan1, h.ID)
	require.NoError(t, err)

	monday, err := tr.DaySummary(ctx, jan1)
	require.NoError(t, err)
	wednesday, err := tr.DaySummary(ctx, jan3)
	require.NoError(t, err)

	assert.True(t, monday.IsCompleted(h.ID))
	assert.False(t, wednesday.IsCompleted(h.ID))
}

func TestToggle_UnknownHabit(t *testing.T) {
	tr, mem := newTestTracker(jan3)
	ctx := context.Background()

	_, err := tr.ToggleToday(ctx, tracker.NewHabitID())

	var nf *tracker.HabitNotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.True(t, tracker.IsNotFound(err))

	// the habit check runs before any Day is created
	day, err := mem.FindDay(ctx, jan3)
	require.NoError(t, err)
	assert.Nil(t, day)
}

func TestToggle_CompletedSetIsNotIntersected(t *testing.T) {
	// GIVEN: a Monday-only habit toggled on a Wednesday
	tr, _ := newTestTracker(jan3)
	h := createHabit(t, tr, "Mondays", jan1, tracker.Monday)
	ctx := context.Background()

	_, err := tr.ToggleToday(ctx, h.ID)
	require.NoError(t, err)

	s, err := tr.DaySummary(ctx, jan3)
	require.NoError(t, err)

	assert.Empty(t, s.EligibleHabits)
	assert.Equal(t, []tracker.HabitID{h.ID}, s.CompletedHabitIDs)
	completed, eligible := s.Progress()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 0, eligible)
}

func TestToggle_ConcurrentDistinctHabitsShareOneDay(t *testing.T) {
	tr, mem := newTestTracker(jan3)
	ctx := context.Background()

	var habits []tracker.Habit
	for i := 0; i < 20; i++ {
		habits = append(habits, createHabit(t, tr, "H", jan1, tracker.Wednesday))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(habits))
	for _, h := range habits {
		wg.Add(1)
		go func(id tracker.HabitID) {
			defer wg.Done()
			if _, err := tr.ToggleToday(ctx, id); err != nil {
				errs <- err
			}
		}(h.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle failed: %v", err)
	}

	rows, err := mem.SummaryRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1, "exactly one Day for the date")
	assert.Equal(t, 20, rows[0].Completed)
}

// =============================================================================
// STORE ERRORS
// =============================================================================

// failingStore embeds the Store interface so it does not expose WithTx.
type failingStore struct {
	tracker.Store
	err error
}

func (f failingStore) GetOrCreateDay(context.Context, tracker.Date) (tracker.Day, error) {
	return tracker.Day{}, f.err
}

func TestToggle_StoreErrorIsSurfaced(t *testing.T) {
	mem := store.NewMemory()
	boom := errors.New("disk full")
	tr := tracker.New(failingStore{Store: mem, err: boom}, tracker.FixedClock(jan3.Time), nil)

	created := jan1
	h, err := tr.CreateHabit(context.Background(), tracker.NewHabit{Title: "Read", WeekDays: []tracker.Weekday{3}, CreatedOn: &created})
	require.NoError(t, err)

	_, err = tr.ToggleToday(context.Background(), h.ID)
	assert.ErrorIs(t, err, boom)
}
