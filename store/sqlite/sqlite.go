/*
Package sqlite provides a SQLite-backed implementation of the tracker stores.

INTERFACES IMPLEMENTED:
  tracker.Store:   Habits, days, completions
  tracker.TxStore: Atomic toggles
  report.Source:   Aggregated summary rows

KEY TABLES:
  habits:          Habit definitions (created_on is YYYY-MM-DD)
  habit_week_days: One row per recurrence weekday, UNIQUE(habit_id, week_day)
  days:            One row per date, UNIQUE(date)
  day_habits:      Completions, UNIQUE(day_id, habit_id)

UNIQUENESS:
  - GetOrCreateDay uses INSERT ... ON CONFLICT(date) DO NOTHING followed by
    a lookup, so a racing writer always reads back the surviving row.
  - AddCompletion maps the unique index violation to tracker.ErrConflict
    and foreign key violations to tracker.ErrNotFound.

CONCURRENCY:
  Uses sync.RWMutex plus a single pooled connection. Transactions are opened
  with BEGIN IMMEDIATE (_txlock=immediate) so concurrent processes serialize
  on the write lock instead of failing at commit.

USAGE:
  store, err := sqlite.New("./data/habits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  t := tracker.New(store, tracker.NewClock(time.Local), logger)
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/habit-engine/report"
	"github.com/warp/habit-engine/tracker"
)

// Store implements the tracker storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every ":memory:" connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_on TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_habits_created_on
		ON habits(created_on);

	CREATE TABLE IF NOT EXISTS habit_week_days (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		habit_id TEXT NOT NULL,
		week_day INTEGER NOT NULL CHECK (week_day BETWEEN 0 AND 6),
		UNIQUE(habit_id, week_day),
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_habit_week_days_week_day
		ON habit_week_days(week_day);

	-- Days are created lazily by the first toggle of a date
	CREATE TABLE IF NOT EXISTS days (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE
	);

	-- Completions: existence of the row is the completed flag
	CREATE TABLE IF NOT EXISTS day_habits (
		id TEXT PRIMARY KEY,
		day_id TEXT NOT NULL,
		habit_id TEXT NOT NULL,
		UNIQUE(day_id, habit_id),
		FOREIGN KEY (day_id) REFERENCES days(id) ON DELETE CASCADE,
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HABIT STORE
// =============================================================================

// CreateHabit inserts the habit and its weekday rows in one transaction.
func (s *Store) CreateHabit(ctx context.Context, h tracker.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := createHabit(ctx, sqlTx, h); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func createHabit(ctx context.Context, q querier, h tracker.Habit) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO habits (id, title, created_on) VALUES (?, ?, ?)",
		h.ID, h.Title, h.CreatedOn.String(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return tracker.ErrConflict
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	for _, wd := range h.WeekDays {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO habit_week_days (habit_id, week_day) VALUES (?, ?)",
			h.ID, int(wd),
		); err != nil {
			return fmt.Errorf("failed to insert week day %d: %w", wd, err)
		}
	}
	return nil
}

const habitColumns = `
	SELECT h.id, h.title, h.created_on,
	       (SELECT GROUP_CONCAT(w.week_day) FROM habit_week_days w WHERE w.habit_id = h.id)
	FROM habits h`

// GetHabit retrieves a habit by ID, nil if absent.
func (s *Store) GetHabit(ctx context.Context, id tracker.HabitID) (*tracker.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getHabit(ctx, s.db, id)
}

func getHabit(ctx context.Context, q querier, id tracker.HabitID) (*tracker.Habit, error) {
	habits, err := queryHabits(ctx, q, habitColumns+" WHERE h.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(habits) == 0 {
		return nil, nil
	}
	return &habits[0], nil
}

// FindEligibleOn returns habits created on or before date that recur on its weekday.
func (s *Store) FindEligibleOn(ctx context.Context, date tracker.Date) ([]tracker.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findEligibleOn(ctx, s.db, date)
}

func findEligibleOn(ctx context.Context, q querier, date tracker.Date) ([]tracker.Habit, error) {
	query := habitColumns + `
		WHERE h.created_on <= ?
		  AND EXISTS (
		      SELECT 1 FROM habit_week_days w
		      WHERE w.habit_id = h.id AND w.week_day = ?
		  )
		ORDER BY h.rowid`
	return queryHabits(ctx, q, query, date.String(), int(date.Weekday()))
}

// ListHabits returns all habits in insertion order.
func (s *Store) ListHabits(ctx context.Context) ([]tracker.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryHabits(ctx, s.db, habitColumns+" ORDER BY h.rowid")
}

func queryHabits(ctx context.Context, q querier, query string, args ...any) ([]tracker.Habit, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []tracker.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func scanHabit(rows *sql.Rows) (tracker.Habit, error) {
	var (
		h         tracker.Habit
		createdOn string
		weekDays  sql.NullString
	)

	if err := rows.Scan(&h.ID, &h.Title, &createdOn, &weekDays); err != nil {
		return h, fmt.Errorf("failed to scan habit: %w", err)
	}

	d, err := tracker.ParseDate(createdOn)
	if err != nil {
		return h, fmt.Errorf("failed to parse created_on: %w", err)
	}
	h.CreatedOn = d

	h.WeekDays, err = parseWeekDays(weekDays.String)
	if err != nil {
		return h, err
	}
	return h, nil
}

// parseWeekDays reads a GROUP_CONCAT list such as "1,3,5".
func parseWeekDays(s string) ([]tracker.Weekday, error) {
	days := []tracker.Weekday{}
	if s == "" {
		return days, nil
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("failed to parse week day %q: %w", part, err)
		}
		days = append(days, tracker.Weekday(n))
	}
	slices.Sort(days)
	return days, nil
}

// =============================================================================
// DAY STORE
// =============================================================================

// FindDay returns the Day for date, nil if absent.
func (s *Store) FindDay(ctx context.Context, date tracker.Date) (*tracker.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findDay(ctx, s.db, date)
}

func findDay(ctx context.Context, q querier, date tracker.Date) (*tracker.Day, error) {
	var id string
	err := q.QueryRowContext(ctx, "SELECT id FROM days WHERE date = ?", date.String()).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query day: %w", err)
	}
	return &tracker.Day{ID: tracker.DayID(id), Date: date}, nil
}

// GetOrCreateDay returns the existing Day for date or inserts one.
func (s *Store) GetOrCreateDay(ctx context.Context, date tracker.Date) (tracker.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getOrCreateDay(ctx, s.db, date)
}

func getOrCreateDay(ctx context.Context, q querier, date tracker.Date) (tracker.Day, error) {
	_, err := q.ExecContext(ctx,
		"INSERT INTO days (id, date) VALUES (?, ?) ON CONFLICT(date) DO NOTHING",
		tracker.NewDayID(), date.String(),
	)
	if err != nil {
		return tracker.Day{}, fmt.Errorf("failed to insert day: %w", err)
	}

	day, err := findDay(ctx, q, date)
	if err != nil {
		return tracker.Day{}, err
	}
	if day == nil {
		return tracker.Day{}, fmt.Errorf("day %s missing after insert", date)
	}
	return *day, nil
}

// =============================================================================
// COMPLETION STORE
// =============================================================================

func (s *Store) CompletionExists(ctx context.Context, dayID tracker.DayID, habitID tracker.HabitID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return completionExists(ctx, s.db, dayID, habitID)
}

func completionExists(ctx context.Context, q querier, dayID tracker.DayID, habitID tracker.HabitID) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM day_habits WHERE day_id = ? AND habit_id = ?",
		dayID, habitID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query completion: %w", err)
	}
	return count > 0, nil
}

func (s *Store) AddCompletion(ctx context.Context, dayID tracker.DayID, habitID tracker.HabitID) (tracker.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addCompletion(ctx, s.db, dayID, habitID)
}

func addCompletion(ctx context.Context, q querier, dayID tracker.DayID, habitID tracker.HabitID) (tracker.Completion, error) {
	c := tracker.Completion{ID: tracker.NewCompletionID(), DayID: dayID, HabitID: habitID}

	_, err := q.ExecContext(ctx,
		"INSERT INTO day_habits (id, day_id, habit_id) VALUES (?, ?, ?)",
		c.ID, c.DayID, c.HabitID,
	)
	switch {
	case err == nil:
		return c, nil
	case isUniqueConstraintError(err):
		return tracker.Completion{}, &tracker.CompletionError{Op: "add", DayID: dayID, HabitID: habitID, Err: tracker.ErrConflict}
	case isForeignKeyError(err):
		return tracker.Completion{}, &tracker.CompletionError{Op: "add", DayID: dayID, HabitID: habitID, Err: tracker.ErrNotFound}
	default:
		return tracker.Completion{}, fmt.Errorf("failed to insert completion: %w", err)
	}
}

func (s *Store) RemoveCompletion(ctx context.Context, dayID tracker.DayID, habitID tracker.HabitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeCompletion(ctx, s.db, dayID, habitID)
}

func removeCompletion(ctx context.Context, q querier, dayID tracker.DayID, habitID tracker.HabitID) error {
	res, err := q.ExecContext(ctx,
		"DELETE FROM day_habits WHERE day_id = ? AND habit_id = ?",
		dayID, habitID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	if n == 0 {
		return &tracker.CompletionError{Op: "remove", DayID: dayID, HabitID: habitID, Err: tracker.ErrNotFound}
	}
	return nil
}

func (s *Store) CompletedHabitIDs(ctx context.Context, dayID tracker.DayID) ([]tracker.HabitID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return completedHabitIDs(ctx, s.db, dayID)
}

func completedHabitIDs(ctx context.Context, q querier, dayID tracker.DayID) ([]tracker.HabitID, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT habit_id FROM day_habits WHERE day_id = ? ORDER BY rowid",
		dayID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var ids []tracker.HabitID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		ids = append(ids, tracker.HabitID(id))
	}
	return ids, rows.Err()
}

// =============================================================================
// SUMMARY (report.Source)
// =============================================================================

// SummaryRows aggregates completions and eligible habits per Day.
func (s *Store) SummaryRows(ctx context.Context) ([]report.DayRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT d.id, d.date,
		       (SELECT COUNT(*) FROM day_habits dh WHERE dh.day_id = d.id) AS completed,
		       (SELECT COUNT(*)
		          FROM habit_week_days w
		          JOIN habits h ON h.id = w.habit_id
		         WHERE w.week_day = CAST(strftime('%w', d.date) AS INTEGER)
		           AND h.created_on <= d.date) AS amount
		FROM days d
		ORDER BY d.date ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var result []report.DayRow
	for rows.Next() {
		var (
			r    report.DayRow
			id   string
			date string
		)
		if err := rows.Scan(&id, &date, &r.Completed, &r.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		r.DayID = tracker.DayID(id)
		if r.Date, err = tracker.ParseDate(date); err != nil {
			return nil, fmt.Errorf("failed to parse day date: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (tracker.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store tracker.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every call on the open transaction. The parent lock is held.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateHabit(ctx context.Context, h tracker.Habit) error {
	return createHabit(ctx, ts.tx, h)
}

func (ts *txStore) GetHabit(ctx context.Context, id tracker.HabitID) (*tracker.Habit, error) {
	return getHabit(ctx, ts.tx, id)
}

func (ts *txStore) FindEligibleOn(ctx context.Context, date tracker.Date) ([]tracker.Habit, error) {
	return findEligibleOn(ctx, ts.tx, date)
}

func (ts *txStore) ListHabits(ctx context.Context) ([]tracker.Habit, error) {
	return queryHabits(ctx, ts.tx, habitColumns+" ORDER BY h.rowid")
}

func (ts *txStore) FindDay(ctx context.Context, date tracker.Date) (*tracker.Day, error) {
	return findDay(ctx, ts.tx, date)
}

func (ts *txStore) GetOrCreateDay(ctx context.Context, date tracker.Date) (tracker.Day, error) {
	return getOrCreateDay(ctx, ts.tx, date)
}

func (ts *txStore) CompletionExists(ctx context.Context, dayID tracker.DayID, habitID tracker.HabitID) (bool, error) {
	return completionExists(ctx, ts.tx, dayID, habitID)
}

func (ts *txStore) AddCompletion(ctx context.Context, dayID tracker.DayID, habitID tracker.HabitID) (tracker.Completion, error) {
	return addCompletion(ctx, ts.tx, dayID, habitID)
}

func (ts *txStore) RemoveCompletion(ctx context.Context, dayID tracker.DayID, habitID tracker.HabitID) error {
	return removeCompletion(ctx, ts.tx, dayID, habitID)
}

func (ts *txStore) CompletedHabitIDs(ctx context.Context, dayID tracker.DayID) ([]tracker.HabitID, error) {
	return completedHabitIDs(ctx, ts.tx, dayID)
}

// =============================================================================
// UTILITIES
// =============================================================================

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
