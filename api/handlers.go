/*
handlers.go - HTTP API handlers for the habit tracker

ENDPOINTS:
  POST   /habits              Create habit {title, weekDays}
  GET    /habits              List all habits
  PATCH  /habits/{id}/toggle  Toggle completion for today
  GET    /day?date=...        Eligible habits + completed ids for a date
  GET    /summary             Per-day completion report
  GET    /healthz             Liveness

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (ids, dates, body)
  3. Call tracker / report
  4. Serialize response

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Unknown habit
  - 409: Completion conflict (lost race)
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/warp/habit-engine/report"
	"github.com/warp/habit-engine/tracker"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tracker *tracker.Tracker
	Reports report.Source
	Logger  *log.Logger
}

// NewHandler creates a new handler. The store behind t usually also serves
// as the report source.
func NewHandler(t *tracker.Tracker, reports report.Source, logger *log.Logger) *Handler {
	return &Handler{Tracker: t, Reports: reports, Logger: logger}
}

// =============================================================================
// HABIT HANDLERS
// =============================================================================

// CreateHabit creates a habit starting today.
// POST /habits
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	weekDays := make([]tracker.Weekday, len(req.WeekDays))
	for i, wd := range req.WeekDays {
		weekDays[i] = tracker.Weekday(wd)
	}

	habit, err := h.Tracker.CreateHabit(r.Context(), tracker.NewHabit{
		Title:    req.Title,
		WeekDays: weekDays,
	})
	if err != nil {
		h.writeTrackerError(w, "Failed to create habit", err)
		return
	}

	writeJSON(w, http.StatusCreated, toHabitDTO(habit))
}

// ListHabits returns every habit.
// GET /habits
func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.Tracker.ListHabits(r.Context())
	if err != nil {
		h.writeTrackerError(w, "Failed to list habits", err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTOs(habits))
}

// ToggleHabit flips today's completion of a habit.
// PATCH /habits/{id}/toggle
func (h *Handler) ToggleHabit(w http.ResponseWriter, r *http.Request) {
	id, err := tracker.ParseHabitID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid habit id", err)
		return
	}

	if _, err := h.Tracker.ToggleToday(r.Context(), id); err != nil {
		h.writeTrackerError(w, "Failed to toggle habit", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DAY / SUMMARY HANDLERS
// =============================================================================

// GetDay returns eligible habits and completions for a date. Timestamps are
// truncated in the tracker's reference zone.
// GET /day?date=2024-01-03
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing date parameter", nil)
		return
	}
	date, err := h.Tracker.Clock().ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD or RFC3339)", err)
		return
	}

	summary, err := h.Tracker.DaySummary(r.Context(), date)
	if err != nil {
		h.writeTrackerError(w, "Failed to load day", err)
		return
	}

	writeJSON(w, http.StatusOK, toDayResponse(summary))
}

// GetSummary returns the per-day report.
// GET /summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := report.Build(r.Context(), h.Reports)
	if err != nil {
		h.writeTrackerError(w, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeTrackerError maps tracker errors to HTTP status codes.
func (h *Handler) writeTrackerError(w http.ResponseWriter, message string, err error) {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, message, err)
	case tracker.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case tracker.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		if h.Logger != nil {
			h.Logger.Error(message, "err", err)
		}
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
