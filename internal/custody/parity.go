package custody

import (
	"fmt"
	"strings"
	"time"
)

// SummerRule selects how the summer vacation is shared
type SummerRule string

const (
	SummerRuleNone       SummerRule = "none"
	SummerRuleParityAuto SummerRule = "summer_parity_auto"
	// SummerRuleJuly and SummerRuleAugust name the month a guardian anchors to.
	// Assignment still follows parity so both guardians stay complementary.
	SummerRuleJuly             SummerRule = "july"
	SummerRuleAugust           SummerRule = "august"
	SummerRuleJulyFirstHalf    SummerRule = "july_first_half"
	SummerRuleJulySecondHalf   SummerRule = "july_second_half"
	SummerRuleAugustFirstHalf  SummerRule = "august_first_half"
	SummerRuleAugustSecondHalf SummerRule = "august_second_half"
	SummerRuleQuinzaines       SummerRule = "summer_quinzaines"
)

// ParseSummerRule parses a summer rule name; empty means none
func ParseSummerRule(s string) (SummerRule, error) {
	r := SummerRule(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return SummerRuleNone, nil
	}
	if !r.valid() {
		return "", fmt.Errorf("%w: unsupported summer rule '%s'", ErrInvalidConfiguration, s)
	}
	return r, nil
}

func (r SummerRule) valid() bool {
	switch r {
	case "", SummerRuleNone, SummerRuleParityAuto, SummerRuleJuly, SummerRuleAugust,
		SummerRuleJulyFirstHalf, SummerRuleJulySecondHalf,
		SummerRuleAugustFirstHalf, SummerRuleAugustSecondHalf, SummerRuleQuinzaines:
		return true
	}
	return false
}

// Enabled reports whether the rule overrides the summer period at all
func (r SummerRule) Enabled() bool {
	return r != "" && r != SummerRuleNone
}

// WholeMonth reports whether the rule assigns entire months
func (r SummerRule) WholeMonth() bool {
	return r == SummerRuleParityAuto || r == SummerRuleJuly || r == SummerRuleAugust
}

// Quinzaines returns the half-month rules evaluated under this summer rule
func (r SummerRule) Quinzaines() []Quinzaine {
	switch r {
	case SummerRuleQuinzaines:
		return AllQuinzaines()
	case SummerRuleJulyFirstHalf, SummerRuleJulySecondHalf,
		SummerRuleAugustFirstHalf, SummerRuleAugustSecondHalf:
		q, _ := ParseQuinzaine(string(r))
		return []Quinzaine{q}
	}
	return nil
}

// AssignedSummerMonth returns the whole summer month for a guardian:
// August exactly when the reference parity matches the year's parity.
func AssignedSummerMonth(ref Parity, year int) time.Month {
	if (ref == ParityEven) == isEvenYear(year) {
		return time.August
	}
	return time.July
}

// Half is the first (1st–15th) or second (16th–end) half of a month
type Half int

const (
	FirstHalf Half = iota + 1
	SecondHalf
)

func (h Half) String() string {
	if h == FirstHalf {
		return "first_half"
	}
	return "second_half"
}

// Quinzaine is a half-month rule in July or August
type Quinzaine struct {
	Month time.Month
	Half  Half
}

// AllQuinzaines returns the four summer half-month rules in calendar order
func AllQuinzaines() []Quinzaine {
	return []Quinzaine{
		{Month: time.July, Half: FirstHalf},
		{Month: time.July, Half: SecondHalf},
		{Month: time.August, Half: FirstHalf},
		{Month: time.August, Half: SecondHalf},
	}
}

// ParseQuinzaine parses "july_first_half", "august_second_half", ...
func ParseQuinzaine(s string) (Quinzaine, error) {
	for _, q := range AllQuinzaines() {
		if q.String() == strings.ToLower(strings.TrimSpace(s)) {
			return q, nil
		}
	}
	return Quinzaine{}, fmt.Errorf("%w: unknown quinzaine rule '%s'", ErrInvalidConfiguration, s)
}

func (q Quinzaine) String() string {
	return strings.ToLower(q.Month.String()) + "_" + q.Half.String()
}

// QuinzaineApplies reports whether a half-month rule fires for a guardian in year.
// First halves go to even-anchored guardians in odd years and odd-anchored
// guardians in even years; second halves are the complement.
func QuinzaineApplies(q Quinzaine, ref Parity, year int) bool {
	if q.Month != time.July && q.Month != time.August {
		return false
	}
	even := isEvenYear(year)
	switch q.Half {
	case FirstHalf:
		return (ref == ParityEven && !even) || (ref == ParityOdd && even)
	case SecondHalf:
		return (ref == ParityEven && even) || (ref == ParityOdd && !even)
	}
	return false
}

// Bounds returns the first and last calendar day covered by the rule in year
func (q Quinzaine) Bounds(year int) (firstDay, lastDay int) {
	if q.Half == FirstHalf {
		return 1, 15
	}
	return 16, daysIn(year, q.Month)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// summerMonthWindow spans the 1st through last day of month at arrival/departure times
func summerMonthWindow(cfg Config, guardian GuardianID, year int, month time.Month) Window {
	loc := cfg.location()
	return Window{
		Start:    cfg.ArrivalTime.On(year, month, 1, loc),
		End:      cfg.DepartureTime.On(year, month, daysIn(year, month), loc),
		Guardian: guardian,
		Rule:     RuleSummerMonth,
	}
}

// quinzaineWindow spans the rule's days of the month at arrival/departure times
func quinzaineWindow(cfg Config, guardian GuardianID, q Quinzaine, year int) Window {
	loc := cfg.location()
	first, last := q.Bounds(year)
	return Window{
		Start:    cfg.ArrivalTime.On(year, q.Month, first, loc),
		End:      cfg.DepartureTime.On(year, q.Month, last, loc),
		Guardian: guardian,
		Rule:     RuleQuinzaine,
	}
}
