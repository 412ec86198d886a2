/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

JSON FIELD NAMES:
  camelCase throughout (weekDays, possibleHabits, completedHabitIds).
  Calendar days are YYYY-MM-DD strings in the reference zone.

VALIDATION:
  Validation is done in handlers and tracker.NewHabit.Validate, not here.
*/
package api

import (
	"github.com/warp/habit-engine/report"
	"github.com/warp/habit-engine/tracker"
)

// HabitDTO represents a habit in API responses.
type HabitDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedOn string `json:"createdOn"`
	WeekDays  []int  `json:"weekDays"`
}

// CreateHabitRequest is the request to create a habit.
type CreateHabitRequest struct {
	Title    string `json:"title"`
	WeekDays []int  `json:"weekDays"`
}

// DayResponse answers GET /day.
type DayResponse struct {
	PossibleHabits    []HabitDTO `json:"possibleHabits"`
	CompletedHabitIDs []string `json:"completedHabitIds"`
}

// SummaryResponse answers GET /summary.
type SummaryResponse struct {
	Version int             `json:"version"`
	Days    []DaySummaryDTO `json:"days"`
}

type DaySummaryDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Amount    int    `json:"amount"`
	Rate      string `json:"rate"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toHabitDTO(h tracker.Habit) HabitDTO {
	days := make([]int, len(h.WeekDays))
	for i, wd := range h.WeekDays {
		days[i] = int(wd)
	}
	return HabitDTO{
		ID:        string(h.ID),
		Title:     h.Title,
		CreatedOn: h.CreatedOn.String(),
		WeekDays:  days,
	}
}

func toHabitDTOs(habits []tracker.Habit) []HabitDTO {
	dtos := make([]HabitDTO, len(habits))
	for i, h := range habits {
		dtos[i] = toHabitDTO(h)
	}
	return dtos
}

func toDayResponse(s tracker.DaySummary) DayResponse {
	ids := make([]string, len(s.CompletedHabitIDs))
	for i, id := range s.CompletedHabitIDs {
		ids[i] = string(id)
	}
	return DayResponse{
		PossibleHabits:    toHabitDTOs(s.EligibleHabits),
		CompletedHabitIDs: ids,
	}
}

func toSummaryResponse(s report.Summary) SummaryResponse {
	days := make([]DaySummaryDTO, len(s.Days))
	for i, d := range s.Days {
		days[i] = DaySummaryDTO{
			ID:        string(d.DayID),
			Date:      d.Date.String(),
			Completed: d.Completed,
			Amount:    d.Amount,
			Rate:      d.Rate.StringFixed(2),
		}
	}
	return SummaryResponse{Version: s.Version, Days: days}
}
