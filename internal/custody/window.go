package custody

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// CalculateEndDate returns the end of the custody window starting at start.
//
// The end falls on the first endDay strictly after start's date, so a window
// never ends on the day it starts. When start is itself on endDay the window
// is a fixed 7-day cycle and keeps start's time of day; otherwise the
// departure time applies. Consecutive holidays push the end one day each.
func CalculateEndDate(start time.Time, endDay time.Weekday, departure TimeOfDay, holidays HolidaySet) (time.Time, error) {
	day, err := nextWeekday(start, endDay)
	if err != nil {
		return time.Time{}, err
	}

	var end time.Time
	if start.Weekday() == endDay {
		end = time.Date(day.Year(), day.Month(), day.Day(),
			start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
	} else {
		end = departure.On(day.Year(), day.Month(), day.Day(), start.Location())
	}

	return Extend(end, holidays), nil
}

// nextWeekday returns midnight of the first date after t's date falling on wd
func nextWeekday(t time.Time, wd time.Weekday) (time.Time, error) {
	byday, ok := rruleWeekdays[wd]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unknown weekday %d", ErrInvalidConfiguration, wd)
	}

	from := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{byday},
		Dtstart:   from,
		Count:     1,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build weekday rule: %w", err)
	}

	occ := r.All()
	if len(occ) != 1 {
		return time.Time{}, fmt.Errorf("no %s found after %s", wd, t.Format(time.DateOnly))
	}
	return occ[0], nil
}
