package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
	"github.com/username/custody-schedule/internal/export"
	"github.com/username/custody-schedule/internal/planner"
	"github.com/username/custody-schedule/pkg/dateutil"
)

// Scheduler is what the handlers need from the planner
type Scheduler interface {
	Plan(ctx context.Context, from, to time.Time) (*planner.Plan, error)
	Current(ctx context.Context, at time.Time) (custody.Window, bool, error)
	Next(ctx context.Context, at time.Time) (custody.Window, bool, error)
	Report(ctx context.Context, from, to time.Time) (*planner.Report, error)
	Horizon(now time.Time) custody.Range
}

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	scheduler Scheduler
	exporter  *export.Exporter
	names     func(custody.GuardianID) string
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
	status    func() map[string]interface{}
}

// NewHandler creates the handlers. names maps guardian ids to display names.
func NewHandler(
	scheduler Scheduler,
	exporter *export.Exporter,
	names func(custody.GuardianID) string,
	loc *time.Location,
	logger *zap.Logger,
) *Handler {
	if names == nil {
		names = func(g custody.GuardianID) string { return string(g) }
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		scheduler: scheduler,
		exporter:  exporter,
		names:     names,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// WithStatus exposes a background refresher's status on /api/status
func (h *Handler) WithStatus(status func() map[string]interface{}) *Handler {
	h.status = status
	return h
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"daemon": false})
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

// ListWindows handles GET /api/windows?from=&to=&guardian=
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	rng, err := h.rangeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid range", err)
		return
	}

	plan, err := h.scheduler.Plan(r.Context(), rng.Start, rng.End)
	if err != nil {
		h.planError(w, err)
		return
	}

	windows := plan.Windows
	if g := r.URL.Query().Get("guardian"); g != "" {
		windows = custody.ForGuardian(windows, custody.GuardianID(g))
	}

	vacations := plan.Vacations
	if vacations == nil {
		vacations = []custody.VacationPeriod{}
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{
		From:      plan.Range.Start,
		To:        plan.Range.End,
		Windows:   h.toWindowDTOs(windows),
		Holidays:  plan.Holidays,
		Vacations: vacations,
	})
}

// GetCurrent handles GET /api/current?at=
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	at, err := h.instantParam(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'at' parameter", err)
		return
	}

	window, ok, err := h.scheduler.Current(r.Context(), at)
	if err != nil {
		h.planError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no custody window at this time", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toWindowDTO(window))
}

// GetNext handles GET /api/next?at=
func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	at, err := h.instantParam(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'at' parameter", err)
		return
	}

	window, ok, err := h.scheduler.Next(r.Context(), at)
	if err != nil {
		h.planError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no handover within the planning horizon", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toWindowDTO(window))
}

// GetReport handles GET /api/report?from=&to=
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rng, err := h.rangeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid range", err)
		return
	}

	report, err := h.scheduler.Report(r.Context(), rng.Start, rng.End)
	if err != nil {
		h.planError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toReportResponse(report))
}

// Calendar handles GET /calendar.ics?from=&to=&guardian=
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	rng, err := h.rangeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid range", err)
		return
	}

	plan, err := h.scheduler.Plan(r.Context(), rng.Start, rng.End)
	if err != nil {
		h.planError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="custody.ics"`)
	guardian := custody.GuardianID(r.URL.Query().Get("guardian"))
	if err := h.exporter.Encode(w, plan.Windows, guardian); err != nil {
		h.logger.Error("Failed to encode calendar", zap.Error(err))
	}
}

// rangeParam reads from/to, defaulting to the planning horizon
func (h *Handler) rangeParam(r *http.Request) (custody.Range, error) {
	rng := h.scheduler.Horizon(h.now())
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		from, err := dateutil.ParseDate(s, h.loc)
		if err != nil {
			return custody.Range{}, fmt.Errorf("from: %w", err)
		}
		rng.Start = from
		if q.Get("to") == "" {
			rng.End = from.AddDate(0, 1, 0)
		}
	}
	if s := q.Get("to"); s != "" {
		to, err := dateutil.ParseDate(s, h.loc)
		if err != nil {
			return custody.Range{}, fmt.Errorf("to: %w", err)
		}
		rng.End = to
	}

	return rng, rng.Validate()
}

func (h *Handler) instantParam(r *http.Request, name string) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return h.now().In(h.loc), nil
	}
	return dateutil.ParseDate(s, h.loc)
}

func (h *Handler) planError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, custody.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid range", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled", err)
	default:
		h.logger.Error("Failed to plan schedule", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute schedule", err)
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
