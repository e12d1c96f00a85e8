package custody

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var minutesPerDay = decimal.NewFromInt(24 * 60)

// Share is one guardian's part of an allocation
type Share struct {
	Guardian GuardianID      `json:"guardian"`
	Days     decimal.Decimal `json:"days"`
	Percent  decimal.Decimal `json:"percent"`
}

// Allocation summarizes how much time each guardian holds in a range
type Allocation struct {
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Total  decimal.Decimal `json:"total_days"`
	Shares []Share         `json:"shares"`
}

// Allocate sums the windows' time per guardian inside rng, in days
func Allocate(windows []Window, rng Range) Allocation {
	minutes := make(map[GuardianID]int64)
	var order []GuardianID

	for _, w := range windows {
		start, end := w.Start, w.End
		if start.Before(rng.Start) {
			start = rng.Start
		}
		if end.After(rng.End) {
			end = rng.End
		}
		if !start.Before(end) {
			continue
		}
		if _, seen := minutes[w.Guardian]; !seen {
			order = append(order, w.Guardian)
		}
		minutes[w.Guardian] += int64(end.Sub(start) / time.Minute)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	alloc := Allocation{
		Start: rng.Start,
		End:   rng.End,
		Total: decimal.NewFromInt(int64(rng.End.Sub(rng.Start) / time.Minute)).Div(minutesPerDay),
	}
	for _, g := range order {
		days := decimal.NewFromInt(minutes[g]).Div(minutesPerDay)
		share := Share{Guardian: g, Days: days, Percent: decimal.Zero}
		if alloc.Total.IsPositive() {
			share.Percent = days.Div(alloc.Total).Mul(decimal.NewFromInt(100)).Round(2)
		}
		alloc.Shares = append(alloc.Shares, share)
	}
	return alloc
}

// VacationAllocation is Allocate restricted to one vacation period
func VacationAllocation(windows []Window, period VacationPeriod) Allocation {
	return Allocate(windows, Range{Start: period.Start, End: period.End})
}

// Days returns the guardian's day total, zero when absent
func (a Allocation) Days(g GuardianID) decimal.Decimal {
	for _, s := range a.Shares {
		if s.Guardian == g {
			return s.Days
		}
	}
	return decimal.Zero
}

// Covered returns the sum of every guardian's days
func (a Allocation) Covered() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range a.Shares {
		sum = sum.Add(s.Days)
	}
	return sum
}
