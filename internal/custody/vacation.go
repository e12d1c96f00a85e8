package custody

import (
	"strings"
	"time"
	"unicode"

	"github.com/samber/mo"
)

// VacationPeriod is an officially published school break.
// Year is the parity reference published with the period, not necessarily Start.Year().
type VacationPeriod struct {
	Name  string    `json:"name" yaml:"name"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Year  int       `json:"year" yaml:"year"`
}

// Midpoint returns Start + (End-Start)/2, keeping sub-day precision
func (p VacationPeriod) Midpoint() time.Time {
	return p.Start.Add(p.End.Sub(p.Start) / 2)
}

// Overlaps reports whether the period intersects [start, end)
func (p VacationPeriod) Overlaps(start, end time.Time) bool {
	return p.Start.Before(end) && start.Before(p.End)
}

var summerWords = map[string]bool{"été": true, "ete": true, "summer": true}

// IsSummer reports whether the period is the summer break: either a word of
// its name is été/ete/summer, or it covers days of both July and August.
func (p VacationPeriod) IsSummer() bool {
	words := strings.FieldsFunc(strings.ToLower(p.Name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if summerWords[w] {
			return true
		}
	}

	year := p.Start.Year()
	july := time.Date(year, time.July, 31, 12, 0, 0, 0, p.Start.Location())
	august := time.Date(year, time.August, 1, 12, 0, 0, 0, p.Start.Location())
	return p.Overlaps(july, july.Add(time.Hour)) && p.Overlaps(august, august.Add(time.Hour))
}

// Split returns the half of the period a guardian gets from the half-split rule.
//
// An odd-anchored guardian gets [Start, midpoint] in odd years, an even-anchored
// guardian gets [midpoint, End] in even years. Otherwise the rule does not fire.
func Split(period VacationPeriod, ref Parity, guardian GuardianID) mo.Option[Window] {
	if !period.Start.Before(period.End) {
		return mo.None[Window]()
	}

	even := isEvenYear(period.Year)
	mid := period.Midpoint()

	switch {
	case ref == ParityOdd && !even:
		return mo.Some(Window{Start: period.Start, End: mid, Guardian: guardian, Rule: RuleVacationSplit})
	case ref == ParityEven && even:
		return mo.Some(Window{Start: mid, End: period.End, Guardian: guardian, Rule: RuleVacationSplit})
	}
	return mo.None[Window]()
}

// complementHalf returns the half of period not covered by w, for guardian
func complementHalf(period VacationPeriod, w Window, guardian GuardianID) Window {
	c := Window{Guardian: guardian, Rule: RuleVacationSplit}
	if w.Start.Equal(period.Start) {
		c.Start, c.End = w.End, period.End
	} else {
		c.Start, c.End = period.Start, w.Start
	}
	return c
}
