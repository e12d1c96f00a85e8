package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/fr"
	"go.uber.org/zap"
)

// ComputedCalendar implements HolidayProvider from rule-based holiday
// definitions, with no network access
type ComputedCalendar struct {
	location *time.Location
	logger   *zap.Logger
}

// NewComputedCalendar creates a new ComputedCalendar
func NewComputedCalendar(loc *time.Location, logger *zap.Logger) *ComputedCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &ComputedCalendar{location: loc, logger: logger}
}

var computedHolidays = map[string][]*cal.Holiday{
	"FR": fr.Holidays,
	"BE": be.Holidays,
}

// ListHolidays computes national holidays for country. zone is ignored.
func (c *ComputedCalendar) ListHolidays(_ context.Context, country, _ string, years []int) ([]time.Time, error) {
	defs, ok := computedHolidays[strings.ToUpper(country)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCountry, country)
	}

	var out []time.Time
	for _, year := range years {
		for _, h := range defs {
			actual, _ := h.Calc(year)
			if actual.IsZero() {
				continue
			}
			out = append(out, midnight(actual.Year(), actual.Month(), actual.Day(), c.location))
		}
	}

	c.logger.Debug("Computed holidays",
		zap.String("country", country),
		zap.Ints("years", years),
		zap.Int("count", len(out)))

	return out, nil
}
