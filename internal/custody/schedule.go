package custody

import (
	"fmt"
	"sort"
	"time"
)

// ComputeWindows turns a configuration, a range, a holiday set and the known
// vacation periods into one ordered, non-overlapping stream of windows tagged
// by guardian.
//
// The weekly alternation is laid down first, starting with cfg.Guardian at
// rng.Start. Vacation overrides are then spliced in and the base windows they
// cut are clipped around them. Adjacent windows of the same guardian are
// merged, so a handover only appears where custody actually changes.
func ComputeWindows(cfg Config, rng Range, holidays HolidaySet, vacations []VacationPeriod) ([]Window, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc := cfg.location()
	rng = Range{Start: rng.Start.In(loc), End: rng.End.In(loc)}

	base, err := baseWindows(cfg, rng, holidays)
	if err != nil {
		return nil, err
	}
	overrides := resolveOverrides(overrideWindows(cfg, rng, vacations))

	merged := clip(splice(base, overrides), rng)
	merged = coalesce(merged)

	if err := checkOrdered(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// baseWindows lays down the alternating weekly windows over the whole range
func baseWindows(cfg Config, rng Range, holidays HolidaySet) ([]Window, error) {
	var windows []Window

	current, next := cfg.Guardian, cfg.Partner
	start := rng.Start
	for start.Before(rng.End) {
		end, err := CalculateEndDate(start, cfg.EndDay, cfg.DepartureTime, holidays)
		if err != nil {
			return nil, err
		}
		if end.After(rng.End) {
			end = rng.End
		}
		windows = append(windows, Window{Start: start, End: end, Guardian: current, Rule: RuleWeekly})
		start = end
		current, next = next, current
	}

	return windows, nil
}

// overrideWindows collects the rule firings of both guardians for every
// vacation period intersecting the range
func overrideWindows(cfg Config, rng Range, vacations []VacationPeriod) []Window {
	var out []Window

	mirror := cfg.Mirror()
	for _, period := range vacations {
		if !period.Overlaps(rng.Start, rng.End) {
			continue
		}

		if period.IsSummer() && cfg.SummerRule.Enabled() {
			out = append(out, summerOverrides(cfg, period.Year)...)
			out = append(out, summerOverrides(mirror, period.Year)...)
			continue
		}

		out = append(out, splitOverrides(cfg, period)...)
	}

	return out
}

// summerOverrides returns the summer windows cfg.Guardian is entitled to in year
func summerOverrides(cfg Config, year int) []Window {
	if cfg.SummerRule.WholeMonth() {
		month := AssignedSummerMonth(cfg.ReferenceYear, year)
		return []Window{summerMonthWindow(cfg, cfg.Guardian, year, month)}
	}

	var out []Window
	for _, q := range cfg.SummerRule.Quinzaines() {
		if QuinzaineApplies(q, cfg.ReferenceYear, year) {
			out = append(out, quinzaineWindow(cfg, cfg.Guardian, q, year))
		}
	}
	return out
}

// splitOverrides applies the half-split rule for both guardians. Opposite
// parities mean at most one of them fires; with the complement fill the other
// guardian receives the remaining half.
func splitOverrides(cfg Config, period VacationPeriod) []Window {
	fired := Split(period, cfg.ReferenceYear, cfg.Guardian)
	if fired.IsAbsent() {
		fired = Split(period, cfg.ReferenceYear.Opposite(), cfg.Partner)
	}

	w, ok := fired.Get()
	if !ok {
		return nil
	}
	if cfg.fill() == VacationFillBase {
		return []Window{w}
	}
	return []Window{w, complementHalf(period, w, cfg.other(w.Guardian))}
}

// resolveOverrides orders overrides by start and trims any that would
// overlap an earlier one, so the later override yields
func resolveOverrides(overrides []Window) []Window {
	sort.SliceStable(overrides, func(i, j int) bool {
		return overrides[i].Start.Before(overrides[j].Start)
	})

	out := make([]Window, 0, len(overrides))
	for _, o := range overrides {
		if n := len(out); n > 0 && o.Start.Before(out[n-1].End) {
			o.Start = out[n-1].End
		}
		if o.Start.Before(o.End) {
			out = append(out, o)
		}
	}
	return out
}

// splice cuts every override out of the base windows and inserts it
func splice(base, overrides []Window) []Window {
	out := make([]Window, 0, len(base)+len(overrides))
	for _, w := range base {
		out = append(out, subtract(w, overrides)...)
	}
	out = append(out, overrides...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// subtract returns what is left of w once every override is removed from it
func subtract(w Window, overrides []Window) []Window {
	pieces := []Window{w}
	for _, o := range overrides {
		if !w.overlaps(o.Start, o.End) {
			continue
		}
		var next []Window
		for _, p := range pieces {
			if !p.overlaps(o.Start, o.End) {
				next = append(next, p)
				continue
			}
			if p.Start.Before(o.Start) {
				left := p
				left.End = o.Start
				next = append(next, left)
			}
			if o.End.Before(p.End) {
				right := p
				right.Start = o.End
				next = append(next, right)
			}
		}
		pieces = next
	}
	return pieces
}

// clip trims windows to the range and drops the empty ones
func clip(windows []Window, rng Range) []Window {
	out := windows[:0]
	for _, w := range windows {
		if w.Start.Before(rng.Start) {
			w.Start = rng.Start
		}
		if w.End.After(rng.End) {
			w.End = rng.End
		}
		if w.Start.Before(w.End) {
			out = append(out, w)
		}
	}
	return out
}

// coalesce merges touching windows of the same guardian. An override rule
// wins over the weekly label of the window it absorbs.
func coalesce(windows []Window) []Window {
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		n := len(out)
		if n > 0 && out[n-1].Guardian == w.Guardian && out[n-1].End.Equal(w.Start) {
			out[n-1].End = w.End
			if out[n-1].Rule == RuleWeekly {
				out[n-1].Rule = w.Rule
			}
			continue
		}
		out = append(out, w)
	}
	return out
}

// Trim returns copies of the windows clipped to rng, dropping those outside it
func Trim(windows []Window, rng Range) []Window {
	return clip(append([]Window(nil), windows...), rng)
}

// checkOrdered enforces Start < End and strictly increasing, non-overlapping windows
func checkOrdered(windows []Window) error {
	for i, w := range windows {
		if !w.Start.Before(w.End) {
			return fmt.Errorf("%w: empty window at %s", ErrUnresolvedOverlap, w.Start.Format(time.RFC3339))
		}
		if i > 0 && w.Start.Before(windows[i-1].End) {
			return fmt.Errorf("%w: %s window starting %s overlaps %s window ending %s",
				ErrUnresolvedOverlap,
				w.Guardian, w.Start.Format(time.RFC3339),
				windows[i-1].Guardian, windows[i-1].End.Format(time.RFC3339))
		}
	}
	return nil
}

// ForGuardian filters windows down to one guardian's stream
func ForGuardian(windows []Window, guardian GuardianID) []Window {
	var out []Window
	for _, w := range windows {
		if w.Guardian == guardian {
			out = append(out, w)
		}
	}
	return out
}

// WindowAt returns the window containing t
func WindowAt(windows []Window, t time.Time) (Window, bool) {
	i := sort.Search(len(windows), func(i int) bool {
		return windows[i].End.After(t)
	})
	if i < len(windows) && windows[i].Contains(t) {
		return windows[i], true
	}
	return Window{}, false
}

// NextHandover returns the first window starting strictly after t
func NextHandover(windows []Window, t time.Time) (Window, bool) {
	i := sort.Search(len(windows), func(i int) bool {
		return windows[i].Start.After(t)
	})
	if i < len(windows) {
		return windows[i], true
	}
	return Window{}, false
}
