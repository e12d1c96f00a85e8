package dateutil

import (
	"fmt"
	"time"
)

// StartOfDay returns the start of the day (00:00:00) for the given date
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// StartOfMonth returns the first day of the month (00:00:00) for the given date
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// ParseDate parses a date or date-time string in loc.
// Accepted: 2006-01-02, 02/01/2006, 2006-01-02T15:04 and RFC 3339.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.In(loc), nil
	}

	formats := []string{
		"2006-01-02",
		"02/01/2006",
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date '%s'", dateStr)
}

