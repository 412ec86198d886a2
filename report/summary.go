/*
Package report builds the read-only summary over recorded days.

PURPOSE:
  The summary lists every Day record with how many habits were completed
  on it (Completed) and how many were eligible on its date (Amount). It is
  outside the tracker core: it only reads, and the shape is versioned so
  clients can detect changes.

ROWS:
  Days with zero completions are included (a toggle-off keeps its Day),
  with Completed = 0.

RATE:
  Rate = Completed / Amount rounded to 4 places, using decimal arithmetic.
  Amount == 0 yields Rate = 0. Completed can exceed Amount when a habit
  was toggled on a date it is not eligible for; Rate is capped at 1.
*/
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/habit-engine/tracker"
)

// Version is the current Summary shape version.
const Version = 1

// DayRow is one aggregated Day as produced by a Source.
type DayRow struct {
	DayID     tracker.DayID
	Date      tracker.Date
	Completed int
	Amount    int
}

// Source is implemented by stores that can aggregate days.
type Source interface {
	// SummaryRows returns one row per Day record, ordered by date.
	SummaryRows(ctx context.Context) ([]DayRow, error)
}

type Summary struct {
	Version int
	Days    []DaySummary
}

type DaySummary struct {
	DayID     tracker.DayID
	Date      tracker.Date
	Completed int
	Amount    int
	Rate      decimal.Decimal
}

var one = decimal.NewFromInt(1)

// Build reads all rows from src and attaches completion rates.
func Build(ctx context.Context, src Source) (Summary, error) {
	rows, err := src.SummaryRows(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load summary rows: %w", err)
	}

	s := Summary{Version: Version, Days: make([]DaySummary, len(rows))}
	for i, r := range rows {
		s.Days[i] = DaySummary{
			DayID:     r.DayID,
			Date:      r.Date,
			Completed: r.Completed,
			Amount:    r.Amount,
			Rate:      Rate(r.Completed, r.Amount),
		}
	}
	return s, nil
}

// Rate returns completed/amount in [0, 1], rounded to 4 decimal places.
func Rate(completed, amount int) decimal.Decimal {
	if amount <= 0 || completed <= 0 {
		return decimal.Zero
	}
	r := decimal.NewFromInt(int64(completed)).Div(decimal.NewFromInt(int64(amount)))
	if r.GreaterThan(one) {
		r = one
	}
	return r.Round(4)
}

// Totals sums Completed and Amount across all days.
func (s Summary) Totals() (completed, amount int) {
	for _, d := range s.Days {
		completed += d.Completed
		amount += d.Amount
	}
	return completed, amount
}
