package api

import (
	"time"

	"github.com/username/custody-schedule/internal/custody"
	"github.com/username/custody-schedule/internal/planner"
)

// WindowDTO is a custody window as served over HTTP
type WindowDTO struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Guardian     string    `json:"guardian"`
	GuardianName string    `json:"guardian_name"`
	Rule         string    `json:"rule"`
}

// ScheduleResponse is the body of GET /api/windows
type ScheduleResponse struct {
	From      time.Time                `json:"from"`
	To        time.Time                `json:"to"`
	Windows   []WindowDTO              `json:"windows"`
	Holidays  []string                 `json:"holidays"`
	Vacations []custody.VacationPeriod `json:"vacations"`
}

// ShareDTO is one guardian's part of an allocation
type ShareDTO struct {
	Guardian     string `json:"guardian"`
	GuardianName string `json:"guardian_name"`
	Days         string `json:"days"`
	Percent      string `json:"percent"`
}

// AllocationDTO summarizes an allocation with decimals rendered as strings
type AllocationDTO struct {
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	TotalDays string     `json:"total_days"`
	Shares    []ShareDTO `json:"shares"`
}

// VacationShareDTO is the allocation of one vacation period
type VacationShareDTO struct {
	Name       string        `json:"name"`
	Year       int           `json:"year"`
	Allocation AllocationDTO `json:"allocation"`
}

// ReportResponse is the body of GET /api/report
type ReportResponse struct {
	Allocation AllocationDTO      `json:"allocation"`
	Vacations  []VacationShareDTO `json:"vacations"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) toWindowDTO(w custody.Window) WindowDTO {
	return WindowDTO{
		Start:        w.Start,
		End:          w.End,
		Guardian:     string(w.Guardian),
		GuardianName: h.names(w.Guardian),
		Rule:         string(w.Rule),
	}
}

func (h *Handler) toWindowDTOs(windows []custody.Window) []WindowDTO {
	out := make([]WindowDTO, 0, len(windows))
	for _, w := range windows {
		out = append(out, h.toWindowDTO(w))
	}
	return out
}

func (h *Handler) toAllocationDTO(a custody.Allocation) AllocationDTO {
	dto := AllocationDTO{
		Start:     a.Start,
		End:       a.End,
		TotalDays: a.Total.StringFixed(2),
		Shares:    make([]ShareDTO, 0, len(a.Shares)),
	}
	for _, s := range a.Shares {
		dto.Shares = append(dto.Shares, ShareDTO{
			Guardian:     string(s.Guardian),
			GuardianName: h.names(s.Guardian),
			Days:         s.Days.StringFixed(2),
			Percent:      s.Percent.StringFixed(2),
		})
	}
	return dto
}

func (h *Handler) toReportResponse(r *planner.Report) ReportResponse {
	resp := ReportResponse{
		Allocation: h.toAllocationDTO(r.Allocation),
		Vacations:  make([]VacationShareDTO, 0, len(r.Vacations)),
	}
	for _, v := range r.Vacations {
		resp.Vacations = append(resp.Vacations, VacationShareDTO{
			Name:       v.Period.Name,
			Year:       v.Period.Year,
			Allocation: h.toAllocationDTO(v.Allocation),
		})
	}
	return resp
}
