package custody

import (
	"fmt"
	"strings"
	"time"
)

// GuardianID identifies one of the two custody-sharing parties
type GuardianID string

// Parity is a guardian's year-parity anchor
type Parity string

const (
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// ParseParity parses "even" / "odd" (case-insensitive)
func ParseParity(s string) (Parity, error) {
	switch Parity(strings.ToLower(strings.TrimSpace(s))) {
	case ParityEven:
		return ParityEven, nil
	case ParityOdd:
		return ParityOdd, nil
	default:
		return "", fmt.Errorf("%w: reference year must be 'even' or 'odd', got '%s'", ErrInvalidConfiguration, s)
	}
}

// Opposite returns the other parity
func (p Parity) Opposite() Parity {
	if p == ParityEven {
		return ParityOdd
	}
	return ParityEven
}

// Matches reports whether year has this parity
func (p Parity) Matches(year int) bool {
	return (p == ParityEven) == isEvenYear(year)
}

func (p Parity) valid() bool {
	return p == ParityEven || p == ParityOdd
}

func isEvenYear(year int) bool {
	return year%2 == 0
}

// Rule names the rule that produced a window
type Rule string

const (
	RuleWeekly        Rule = "weekly_alternation"
	RuleVacationSplit Rule = "vacation_half_split"
	RuleSummerMonth   Rule = "summer_whole_month"
	RuleQuinzaine     Rule = "quinzaine_half_month"
)

// VacationFill decides what happens to the half of a vacation the split rule leaves silent
type VacationFill string

const (
	// VacationFillComplement hands the other half to the other guardian explicitly
	VacationFillComplement VacationFill = "complement"
	// VacationFillBase leaves the other half on the weekly alternation
	VacationFillBase VacationFill = "base"
)

// ParseVacationFill parses a fill policy, defaulting to complement
func ParseVacationFill(s string) (VacationFill, error) {
	switch VacationFill(strings.ToLower(strings.TrimSpace(s))) {
	case "", VacationFillComplement:
		return VacationFillComplement, nil
	case VacationFillBase:
		return VacationFillBase, nil
	default:
		return "", fmt.Errorf("%w: vacation fill must be 'complement' or 'base', got '%s'", ErrInvalidConfiguration, s)
	}
}

// TimeOfDay is a wall-clock hour and minute
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: invalid time '%s'", ErrInvalidConfiguration, s)
	}
	tod := TimeOfDay{Hour: h, Minute: m}
	if !tod.valid() {
		return TimeOfDay{}, fmt.Errorf("%w: time out of range '%s'", ErrInvalidConfiguration, s)
	}
	return tod, nil
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// On returns the given date at this time of day, in loc
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseWeekday parses an English weekday name ("monday", "Sunday", ...)
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported end day '%s'", ErrInvalidConfiguration, s)
	}
	return wd, nil
}

// Config is the immutable per-guardian rule record
type Config struct {
	Guardian      GuardianID
	Partner       GuardianID
	ArrivalTime   TimeOfDay
	DepartureTime TimeOfDay
	EndDay        time.Weekday
	ReferenceYear Parity
	SummerRule    SummerRule
	VacationFill  VacationFill
	Country       string
	Zone          string
	Location      *time.Location
}

// Validate checks the fields the engine depends on
func (c Config) Validate() error {
	if c.Guardian == "" || c.Partner == "" {
		return fmt.Errorf("%w: both guardians must be named", ErrInvalidConfiguration)
	}
	if c.Guardian == c.Partner {
		return fmt.Errorf("%w: guardians must differ", ErrInvalidConfiguration)
	}
	if c.EndDay < time.Sunday || c.EndDay > time.Saturday {
		return fmt.Errorf("%w: unsupported end day %d", ErrInvalidConfiguration, c.EndDay)
	}
	if !c.ReferenceYear.valid() {
		return fmt.Errorf("%w: reference year must be 'even' or 'odd', got '%s'", ErrInvalidConfiguration, c.ReferenceYear)
	}
	if !c.SummerRule.valid() {
		return fmt.Errorf("%w: unsupported summer rule '%s'", ErrInvalidConfiguration, c.SummerRule)
	}
	if c.VacationFill != "" && c.VacationFill != VacationFillComplement && c.VacationFill != VacationFillBase {
		return fmt.Errorf("%w: unsupported vacation fill '%s'", ErrInvalidConfiguration, c.VacationFill)
	}
	if !c.ArrivalTime.valid() || !c.DepartureTime.valid() {
		return fmt.Errorf("%w: arrival/departure time out of range", ErrInvalidConfiguration)
	}
	return nil
}

// Mirror returns the partner's view of the same arrangement: roles swapped, opposite parity
func (c Config) Mirror() Config {
	m := c
	m.Guardian, m.Partner = c.Partner, c.Guardian
	m.ReferenceYear = c.ReferenceYear.Opposite()
	return m
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Config) fill() VacationFill {
	if c.VacationFill == "" {
		return VacationFillComplement
	}
	return c.VacationFill
}

// other returns the guardian that is not g
func (c Config) other(g GuardianID) GuardianID {
	if g == c.Guardian {
		return c.Partner
	}
	return c.Guardian
}

// Window is one custody interval [Start, End) assigned to a guardian
type Window struct {
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Guardian GuardianID `json:"guardian"`
	Rule     Rule       `json:"rule"`
}

// Duration returns End - Start
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls in [Start, End)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) overlaps(start, end time.Time) bool {
	return w.Start.Before(end) && start.Before(w.End)
}

// Range is a requested computation interval [Start, End)
type Range struct {
	Start time.Time
	End   time.Time
}

// Validate rejects empty and inverted ranges
func (r Range) Validate() error {
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidRange, r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// Years returns every calendar year touched by the range
func (r Range) Years() []int {
	var years []int
	for y := r.Start.Year(); y <= r.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}
