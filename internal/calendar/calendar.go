package calendar

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/username/custody-schedule/internal/custody"
)

// ErrUnsupportedCountry is returned by providers that only know some countries
var ErrUnsupportedCountry = errors.New("unsupported country")

// HolidayProvider lists public holidays
type HolidayProvider interface {
	// ListHolidays returns the holiday dates of every requested year.
	// zone narrows the calendar where the provider supports regions.
	ListHolidays(ctx context.Context, country, zone string, years []int) ([]time.Time, error)
}

// VacationProvider lists school vacation periods
type VacationProvider interface {
	// ListVacations returns the periods of zone intersecting [from, to)
	ListVacations(ctx context.Context, zone string, from, to time.Time) ([]custody.VacationPeriod, error)
}

type periodKey struct {
	name       string
	start, end int64
}

// normalizePeriods drops periods outside [from, to), removes duplicates
// published once per académie and sorts by start
func normalizePeriods(periods []custody.VacationPeriod, from, to time.Time) []custody.VacationPeriod {
	seen := make(map[periodKey]bool, len(periods))
	out := make([]custody.VacationPeriod, 0, len(periods))

	for _, p := range periods {
		if !p.Start.Before(p.End) || !p.Overlaps(from, to) {
			continue
		}
		k := periodKey{name: p.Name, start: p.Start.Unix(), end: p.End.Unix()}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func midnight(y int, m time.Month, d int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
