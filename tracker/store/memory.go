// Package store provides in-memory tracker.Store implementations.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/warp/habit-engine/report"
	"github.com/warp/habit-engine/tracker"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	state
}

type state struct {
	habits      []tracker.Habit // insertion order
	habitIndex  map[tracker.HabitID]int
	days        map[string]tracker.Day // keyed by Date.String()
	dayIDs      map[tracker.DayID]bool
	completions map[pair]tracker.Completion
}

type pair struct {
	DayID   tracker.DayID
	HabitID tracker.HabitID
}

func NewMemory() *Memory {
	return &Memory{state: state{
		habitIndex:  make(map[tracker.HabitID]int),
		days:        make(map[string]tracker.Day),
		dayIDs:      make(map[tracker.DayID]bool),
		completions: make(map[pair]tracker.Completion),
	}}
}

// =============================================================================
// HABITS
// =============================================================================

func (m *Memory) CreateHabit(_ context.Context, h tracker.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createHabitLocked(h)
}

func (s *state) createHabitLocked(h tracker.Habit) error {
	if _, ok := s.habitIndex[h.ID]; ok {
		return tracker.ErrConflict
	}
	s.habitIndex[h.ID] = len(s.habits)
	s.habits = append(s.habits, cloneHabit(h))
	return nil
}

func (m *Memory) GetHabit(_ context.Context, id tracker.HabitID) (*tracker.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getHabitLocked(id), nil
}

func (s *state) getHabitLocked(id tracker.HabitID) *tracker.Habit {
	i, ok := s.habitIndex[id]
	if !ok {
		return nil
	}
	h := cloneHabit(s.habits[i])
	return &h
}

func (m *Memory) FindEligibleOn(_ context.Context, date tracker.Date) ([]tracker.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findEligibleLocked(date), nil
}

func (s *state) findEligibleLocked(date tracker.Date) []tracker.Habit {
	var result []tracker.Habit
	for _, h := range s.habits {
		if h.EligibleOn(date) {
			result = append(result, cloneHabit(h))
		}
	}
	return result
}

func (m *Memory) ListHabits(_ context.Context) ([]tracker.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listHabitsLocked(), nil
}

func (s *state) listHabitsLocked() []tracker.Habit {
	result := make([]tracker.Habit, len(s.habits))
	for i, h := range s.habits {
		result[i] = cloneHabit(h)
	}
	return result
}

// =============================================================================
// DAYS
// =============================================================================

func (m *Memory) FindDay(_ context.Context, date tracker.Date) (*tracker.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findDayLocked(date), nil
}

func (s *state) findDayLocked(date tracker.Date) *tracker.Day {
	d, ok := s.days[date.String()]
	if !ok {
		return nil
	}
	return &d
}

// GetOrCreateDay holds the write lock across lookup and insert, so racing
// callers for the same date observe a single Day.
func (m *Memory) GetOrCreateDay(_ context.Context, date tracker.Date) (tracker.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateDayLocked(date), nil
}

func (s *state) getOrCreateDayLocked(date tracker.Date) tracker.Day {
	if d, ok := s.days[date.String()]; ok {
		return d
	}
	d := tracker.Day{ID: tracker.NewDayID(), Date: date}
	s.days[date.String()] = d
	s.dayIDs[d.ID] = true
	return d
}

// =============================================================================
// COMPLETIONS
// =============================================================================

func (m *Memory) CompletionExists(_ context.Context, dayID tracker.DayID, habitID tracker.HabitID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.completions[pair{dayID, habitID}]
	return ok, nil
}

func (m *Memory) AddCompletion(_ context.Context, dayID tracker.DayID, habitID tracker.HabitID) (tracker.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCompletionLocked(dayID, habitID)
}

func (s *state) addCompletionLocked(dayID tracker.DayID, habitID tracker.HabitID) (tracker.Completion, error) {
	k := pair{dayID, habitID}
	if _, ok := s.completions[k]; ok {
		return tracker.Completion{}, &tracker.CompletionError{Op: "add", DayID: dayID, HabitID: habitID, Err: tracker.ErrConflict}
	}
	if _, ok := s.habitIndex[habitID]; !ok || !s.dayIDs[dayID] {
		return tracker.Completion{}, &tracker.CompletionError{Op: "add", DayID: dayID, HabitID: habitID, Err: tracker.ErrNotFound}
	}
	c := tracker.Completion{ID: tracker.NewCompletionID(), DayID: dayID, HabitID: habitID}
	s.completions[k] = c
	return c, nil
}

func (m *Memory) RemoveCompletion(_ context.Context, dayID tracker.DayID, habitID tracker.HabitID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeCompletionLocked(dayID, habitID)
}

func (s *state) removeCompletionLocked(dayID tracker.DayID, habitID tracker.HabitID) error {
	k := pair{dayID, habitID}
	if _, ok := s.completions[k]; !ok {
		return &tracker.CompletionError{Op: "remove", DayID: dayID, HabitID: habitID, Err: tracker.ErrNotFound}
	}
	delete(s.completions, k)
	return nil
}

func (m *Memory) CompletedHabitIDs(_ context.Context, dayID tracker.DayID) ([]tracker.HabitID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completedLocked(dayID), nil
}

func (s *state) completedLocked(dayID tracker.DayID) []tracker.HabitID {
	var ids []tracker.HabitID
	for _, h := range s.habits {
		if _, ok := s.completions[pair{dayID, h.ID}]; ok {
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// =============================================================================
// SUMMARY (report.Source)
// =============================================================================

// SummaryRows returns one row per Day ordered by date.
func (m *Memory) SummaryRows(_ context.Context) ([]report.DayRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]report.DayRow, 0, len(m.days))
	for _, d := range m.days {
		rows = append(rows, report.DayRow{
			DayID:     d.ID,
			Date:      d.Date,
			Completed: len(m.completedLocked(d.ID)),
			Amount:    len(m.findEligibleLocked(d.Date)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn under the write lock. On error the state is restored from
// a snapshot taken before fn ran.
func (m *Memory) WithTx(_ context.Context, fn func(tracker.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{s: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (s *state) snapshot() state {
	cp := state{
		habits:      make([]tracker.Habit, len(s.habits)),
		habitIndex:  make(map[tracker.HabitID]int, len(s.habitIndex)),
		days:        make(map[string]tracker.Day, len(s.days)),
		dayIDs:      make(map[tracker.DayID]bool, len(s.dayIDs)),
		completions: make(map[pair]tracker.Completion, len(s.completions)),
	}
	for i, h := range s.habits {
		cp.habits[i] = cloneHabit(h)
	}
	for k, v := range s.habitIndex {
		cp.habitIndex[k] = v
	}
	for k, v := range s.days {
		cp.days[k] = v
	}
	for k, v := range s.dayIDs {
		cp.dayIDs[k] = v
	}
	for k, v := range s.completions {
		cp.completions[k] = v
	}
	return cp
}

// txView is the Store handed to WithTx callbacks; the lock is already held.
type txView struct {
	s *state
}

func (v *txView) CreateHabit(_ context.Context, h tracker.Habit) error {
	return v.s.createHabitLocked(h)
}

func (v *txView) GetHabit(_ context.Context, id tracker.HabitID) (*tracker.Habit, error) {
	return v.s.getHabitLocked(id), nil
}

func (v *txView) FindEligibleOn(_ context.Context, date tracker.Date) ([]tracker.Habit, error) {
	return v.s.findEligibleLocked(date), nil
}

func (v *txView) ListHabits(_ context.Context) ([]tracker.Habit, error) {
	return v.s.listHabitsLocked(), nil
}

func (v *txView) FindDay(_ context.Context, date tracker.Date) (*tracker.Day, error) {
	return v.s.findDayLocked(date), nil
}

func (v *txView) GetOrCreateDay(_ context.Context, date tracker.Date) (tracker.Day, error) {
	return v.s.getOrCreateDayLocked(date), nil
}

func (v *txView) CompletionExists(_ context.Context, dayID tracker.DayID, habitID tracker.HabitID) (bool, error) {
	_, ok := v.s.completions[pair{dayID, habitID}]
	return ok, nil
}

func (v *txView) AddCompletion(_ context.Context, dayID tracker.DayID, habitID tracker.HabitID) (tracker.Completion, error) {
	return v.s.addCompletionLocked(dayID, habitID)
}

func (v *txView) RemoveCompletion(_ context.Context, dayID tracker.DayID, habitID tracker.HabitID) error {
	return v.s.removeCompletionLocked(dayID, habitID)
}

func (v *txView) CompletedHabitIDs(_ context.Context, dayID tracker.DayID) ([]tracker.HabitID, error) {
	return v.s.completedLocked(dayID), nil
}

func cloneHabit(h tracker.Habit) tracker.Habit {
	h.WeekDays = slices.Clone(h.WeekDays)
	return h
}
