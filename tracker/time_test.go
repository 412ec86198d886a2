package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNormalize_TruncatesInReferenceZone(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	clock := Clock{Location: saoPaulo}

	// 01:30 UTC on Jan 4 is still Jan 3 in UTC-3
	ts := time.Date(2024, time.January, 4, 1, 30, 0, 0, time.UTC)

	assert.Equal(t, NewDate(2024, time.January, 3), clock.Normalize(ts))
	assert.Equal(t, NewDate(2024, time.January, 4), Clock{Location: time.UTC}.Normalize(ts))
}

func TestClockToday_UsesInjectedNow(t *testing.T) {
	now := time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, NewDate(2024, time.March, 10), FixedClock(now).Today())
}

func TestWeekday_SundayIsZero(t *testing.T) {
	assert.Equal(t, Sunday, NewDate(2023, time.December, 31).Weekday())
	assert.Equal(t, Monday, NewDate(2024, time.January, 1).Weekday())
	assert.Equal(t, Wednesday, NewDate(2024, time.January, 3).Weekday())
	assert.Equal(t, Saturday, NewDate(2024, time.January, 6).Weekday())
}

func TestWeekday_Valid(t *testing.T) {
	assert.True(t, Sunday.Valid())
	assert.True(t, Saturday.Valid())
	assert.False(t, Weekday(7).Valid())
	assert.False(t, Weekday(-1).Valid())
	assert.Equal(t, "Weekday(9)", Weekday(9).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-03")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDate(2024, time.January, 3)))

	for _, bad := range []string{"2024-01-03T15:04:05Z", "03/01/2024", ""} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockParseDate_NormalizesTimestampsInReferenceZone(t *testing.T) {
	clock := Clock{Location: time.FixedZone("BRT", -3*60*60)}

	tests := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-03", NewDate(2024, time.January, 3), true},
		// 01:00 UTC on Jan 3 is 22:00 on Jan 2 in UTC-3
		{"2024-01-03T01:00:00Z", NewDate(2024, time.January, 2), true},
		{"2024-01-03T15:04:05Z", NewDate(2024, time.January, 3), true},
		// 23:00 at +05:00 is 15:00 on the same day in UTC-3
		{"2024-01-03T23:00:00+05:00", NewDate(2024, time.January, 3), true},
		{"2024-01-03T23:00:00-05:00", NewDate(2024, time.January, 4), true},
		{"03/01/2024", Date{}, false},
		{"", Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := clock.ParseDate(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}
}

func TestDateComparison(t *testing.T) {
	a := NewDate(2024, time.January, 1)
	b := a.AddDays(1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.False(t, b.BeforeOrEqual(a))
	assert.Equal(t, "2024-01-02", b.String())
}

func TestHabitEligibleOn(t *testing.T) {
	h := Habit{
		CreatedOn: NewDate(2024, time.January, 1),
		WeekDays:  []Weekday{Monday, Wednesday, Friday},
	}

	assert.True(t, h.EligibleOn(NewDate(2024, time.January, 3)))
	assert.False(t, h.EligibleOn(NewDate(2024, time.January, 2)))
	assert.False(t, h.EligibleOn(NewDate(2023, time.December, 29)), "friday before creation")
}

func TestParseHabitID(t *testing.T) {
	id, err := ParseHabitID("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	require.NoError(t, err)
	assert.Equal(t, HabitID("6f9619ff-8b86-d011-b42d-00c04fc964ff"), id)

	_, err = ParseHabitID("not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)
}
