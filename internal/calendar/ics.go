package calendar

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
)

// ICSCalendar implements VacationProvider from an iCalendar feed where
// each VEVENT is one vacation period. The source is an http(s) URL or a local path.
type ICSCalendar struct {
	source   string
	http     *httpFetcher
	location *time.Location
	logger   *zap.Logger
}

// NewICSCalendar creates a new ICSCalendar instance
func NewICSCalendar(source string, loc *time.Location, logger *zap.Logger) *ICSCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &ICSCalendar{
		source:   source,
		http:     newHTTPFetcher(logger),
		location: loc,
		logger:   logger,
	}
}

// ListVacations parses the feed and returns the events intersecting [from, to).
// zone is ignored: a feed describes a single zone.
func (c *ICSCalendar) ListVacations(ctx context.Context, _ string, from, to time.Time) ([]custody.VacationPeriod, error) {
	body, err := c.read(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ICS feed: %w", err)
	}

	var periods []custody.VacationPeriod
	for _, ev := range cal.Events() {
		p, err := c.toPeriod(ev)
		if err != nil {
			c.logger.Warn("Skipping ICS event", zap.String("source", c.source), zap.Error(err))
			continue
		}
		periods = append(periods, p)
	}

	periods = normalizePeriods(periods, from, to)
	c.logger.Info("Vacations loaded from ICS",
		zap.String("source", c.source),
		zap.Int("events", len(cal.Events())),
		zap.Int("periods", len(periods)))

	return periods, nil
}

func (c *ICSCalendar) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(c.source, "http://") && !strings.HasPrefix(c.source, "https://") {
		body, err := os.ReadFile(c.source)
		if err != nil {
			return nil, fmt.Errorf("failed to read ICS file: %w", err)
		}
		return body, nil
	}

	body, err := c.http.get(ctx, c.source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ICS feed: %w", err)
	}
	return body, nil
}

func (c *ICSCalendar) toPeriod(ev *ical.VEvent) (custody.VacationPeriod, error) {
	var p custody.VacationPeriod
	if prop := ev.GetProperty(ical.ComponentPropertySummary); prop != nil {
		p.Name = strings.TrimSpace(prop.Value)
	}

	allDay := false
	if prop := ev.GetProperty(ical.ComponentPropertyDtStart); prop != nil {
		allDay = !strings.Contains(prop.Value, "T")
	}

	var start, end time.Time
	var err error
	if allDay {
		start, err = ev.GetAllDayStartAt()
		if err == nil {
			end, err = ev.GetAllDayEndAt()
		}
	} else {
		start, err = ev.GetStartAt()
		if err == nil {
			end, err = ev.GetEndAt()
		}
	}
	if err != nil {
		return p, fmt.Errorf("event %q: %w", p.Name, err)
	}

	if allDay {
		p.Start = midnight(start.Year(), start.Month(), start.Day(), c.location)
		p.End = midnight(end.Year(), end.Month(), end.Day(), c.location)
	} else {
		p.Start = start.In(c.location)
		p.End = end.In(c.location)
	}
	p.Year = p.Start.Year()
	return p, nil
}
