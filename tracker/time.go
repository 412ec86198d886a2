package tracker

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Canonical calendar day key
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component.
// The underlying time is always midnight UTC of that calendar day, so two
// Dates built from the same year/month/day compare equal whatever zone the
// source timestamp came from.
type Date struct {
	Time time.Time
}

// NewDate returns the Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }

func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) Weekday() Weekday   { return Weekday(d.Time.Weekday()) }
func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) String() string     { return d.Time.Format(DateLayout) }

// =============================================================================
// WEEKDAY - Recurrence encoding (0 = Sunday .. 6 = Saturday)
// =============================================================================

type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

func (w Weekday) Valid() bool { return w >= Sunday && w <= Saturday }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return time.Weekday(w).String()
}

// =============================================================================
// CLOCK - Injected "now" plus the reference zone for truncation
// =============================================================================

// Clock turns timestamps into Dates. The zero value truncates in time.Local
// and reads the system clock.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewClock returns a Clock for loc using the system time.
func NewClock(loc *time.Location) Clock {
	return Clock{Location: loc, Now: time.Now}
}

// FixedClock always reports now. Used by tests and scenario tooling.
func FixedClock(now time.Time) Clock {
	return Clock{Location: now.Location(), Now: func() time.Time { return now }}
}

// Normalize truncates t to the start of its calendar day in the clock's zone.
func (c Clock) Normalize(t time.Time) Date {
	t = t.In(c.location())
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp. A bare date is taken
// as is; a timestamp is normalized in the clock's zone.
func (c Clock) ParseDate(s string) (Date, error) {
	if d, err := ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return c.Normalize(t), nil
}

// Today is Normalize applied to the clock's current time.
func (c Clock) Today() Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.Normalize(now())
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
