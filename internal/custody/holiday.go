package custody

import (
	"sort"
	"time"
)

const dateKeyLayout = "2006-01-02"

// HolidaySet is a set of calendar dates, compared without their time of day
type HolidaySet struct {
	days map[string]struct{}
}

// NewHolidaySet builds a set from the civil dates of the given times
func NewHolidaySet(dates ...time.Time) HolidaySet {
	hs := HolidaySet{days: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		hs.days[d.Format(dateKeyLayout)] = struct{}{}
	}
	return hs
}

// Contains reports whether t's date (in t's own location) is a holiday
func (hs HolidaySet) Contains(t time.Time) bool {
	if len(hs.days) == 0 {
		return false
	}
	_, ok := hs.days[t.Format(dateKeyLayout)]
	return ok
}

// Len returns the number of dates in the set
func (hs HolidaySet) Len() int {
	return len(hs.days)
}

// Dates returns the dates in ascending order, as YYYY-MM-DD strings
func (hs HolidaySet) Dates() []string {
	out := make([]string, 0, len(hs.days))
	for d := range hs.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Extend pushes candidate forward one calendar day at a time until its date
// is no longer a holiday. The time of day is kept.
func Extend(candidate time.Time, holidays HolidaySet) time.Time {
	for holidays.Contains(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
