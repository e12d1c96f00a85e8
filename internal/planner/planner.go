package planner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/username/custody-schedule/internal/calendar"
	"github.com/username/custody-schedule/internal/config"
	"github.com/username/custody-schedule/internal/custody"
	"github.com/username/custody-schedule/internal/metrics"
	"github.com/username/custody-schedule/pkg/dateutil"
)

const cycleDays = 14

// anchorEpoch fixes the alternation phase when schedule.anchor is not set.
// The first guardian holds the week starting on the first end_day of 2024.
var anchorEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Plan is one computed schedule together with the inputs it was built from
type Plan struct {
	Range     custody.Range            `json:"range"`
	Windows   []custody.Window         `json:"windows"`
	Holidays  []string                 `json:"holidays"`
	Vacations []custody.VacationPeriod `json:"vacations"`
}

// VacationShare is the allocation of a single vacation period
type VacationShare struct {
	Period     custody.VacationPeriod `json:"period"`
	Allocation custody.Allocation     `json:"allocation"`
}

// Report is the fairness report over a range
type Report struct {
	Allocation custody.Allocation `json:"allocation"`
	Vacations  []VacationShare    `json:"vacations"`
}

// Planner fetches the collaborators' data and runs the schedule engine
type Planner struct {
	config    *config.Config
	engine    custody.Config
	anchor    time.Time
	holidays  calendar.HolidayProvider
	vacations calendar.VacationProvider
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewPlanner creates a new planner. vacations and m may be nil.
func NewPlanner(
	cfg *config.Config,
	holidays calendar.HolidayProvider,
	vacations calendar.VacationProvider,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Planner, error) {
	engine, err := cfg.ToEngineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine config: %w", err)
	}
	anchor, err := cfg.Schedule.GetAnchor(engine.Location)
	if err != nil {
		return nil, err
	}
	if anchor.IsZero() {
		anchor = defaultAnchor(engine.EndDay, engine.Location)
		logger.Debug("No schedule.anchor configured, using default",
			zap.String("anchor", anchor.Format(time.DateOnly)))
	}
	anchor = engine.ArrivalTime.On(anchor.Year(), anchor.Month(), anchor.Day(), engine.Location)

	return &Planner{
		config:    cfg,
		engine:    engine,
		anchor:    anchor,
		holidays:  holidays,
		vacations: vacations,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Plan computes the windows covering [from, to).
//
// The alternation is computed from the anchor phase closest before from and
// trimmed to the range, so overlapping requests agree on who has custody.
func (p *Planner) Plan(ctx context.Context, from, to time.Time) (*Plan, error) {
	start := time.Now()
	rng := custody.Range{Start: from.In(p.engine.Location), End: to.In(p.engine.Location)}
	if err := rng.Validate(); err != nil {
		p.observe(start, 0, err)
		return nil, err
	}

	compute := rng
	compute.Start = p.anchorBefore(rng.Start)

	p.logger.Info("Planning schedule",
		zap.Time("from", rng.Start),
		zap.Time("to", rng.End),
		zap.Time("compute_from", compute.Start))

	holidays, vacations, err := p.fetch(ctx, compute)
	if err != nil {
		p.observe(start, 0, err)
		return nil, err
	}

	windows, err := custody.ComputeWindows(p.engine, compute, holidays, vacations)
	if err != nil {
		p.observe(start, 0, err)
		return nil, fmt.Errorf("failed to compute windows: %w", err)
	}
	windows = custody.Trim(windows, rng)

	p.observe(start, len(windows), nil)
	p.logger.Info("Schedule planned",
		zap.Int("windows", len(windows)),
		zap.Int("holidays", holidays.Len()),
		zap.Int("vacations", len(vacations)),
		zap.Duration("took", time.Since(start)))

	return &Plan{
		Range:     rng,
		Windows:   windows,
		Holidays:  holidays.Dates(),
		Vacations: vacations,
	}, nil
}

// anchorBefore returns the latest anchor phase not after t. Phases repeat
// every two weeks, so the result is less than 14 days before t.
func (p *Planner) anchorBefore(t time.Time) time.Time {
	a := p.anchor
	if cycles := int(t.Sub(a) / (cycleDays * 24 * time.Hour)); cycles != 0 {
		a = a.AddDate(0, 0, cycles*cycleDays)
	}
	// AddDate keeps the wall clock, so DST can leave the jump one cycle off
	for a.After(t) {
		a = a.AddDate(0, 0, -cycleDays)
	}
	for !a.AddDate(0, 0, cycleDays).After(t) {
		a = a.AddDate(0, 0, cycleDays)
	}
	return a
}

// defaultAnchor is the first endDay on or after anchorEpoch
func defaultAnchor(endDay time.Weekday, loc *time.Location) time.Time {
	epoch := time.Date(anchorEpoch.Year(), anchorEpoch.Month(), anchorEpoch.Day(), 0, 0, 0, 0, loc)
	return epoch.AddDate(0, 0, (int(endDay)-int(epoch.Weekday())+7)%7)
}

// fetch loads holidays and vacations concurrently. A failing collaborator
// is logged and degrades to an empty set; only cancellation is an error.
func (p *Planner) fetch(ctx context.Context, rng custody.Range) (custody.HolidaySet, []custody.VacationPeriod, error) {
	g, gctx := errgroup.WithContext(ctx)

	var holidayDates []time.Time
	var vacations []custody.VacationPeriod

	g.Go(func() error {
		dates, err := p.holidays.ListHolidays(gctx, p.engine.Country, p.config.HolidayZone(), rng.Years())
		if err != nil {
			p.logger.Warn("Holiday provider failed, continuing without holidays",
				zap.String("country", p.engine.Country),
				zap.Error(err))
			p.providerFailed("holidays")
			return nil
		}
		holidayDates = dates
		return nil
	})

	if p.vacations != nil {
		g.Go(func() error {
			periods, err := p.vacations.ListVacations(gctx, p.engine.Zone, rng.Start, rng.End)
			if err != nil {
				p.logger.Warn("Vacation provider failed, continuing without vacations",
					zap.String("zone", p.engine.Zone),
					zap.Error(err))
				p.providerFailed("vacations")
				return nil
			}
			vacations = periods
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return custody.HolidaySet{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return custody.HolidaySet{}, nil, fmt.Errorf("planning cancelled: %w", err)
	}

	return custody.NewHolidaySet(holidayDates...), vacations, nil
}

// Current returns the window containing at
func (p *Planner) Current(ctx context.Context, at time.Time) (custody.Window, bool, error) {
	day := dateutil.StartOfDay(at.In(p.engine.Location))
	plan, err := p.Plan(ctx, day.AddDate(0, 0, -1), day.AddDate(0, 0, 2))
	if err != nil {
		return custody.Window{}, false, err
	}
	w, ok := custody.WindowAt(plan.Windows, at)
	return w, ok, nil
}

// Next returns the first window starting after at, searching up to the
// configured horizon
func (p *Planner) Next(ctx context.Context, at time.Time) (custody.Window, bool, error) {
	plan, err := p.Plan(ctx, at, at.AddDate(0, p.config.Schedule.GetHorizonMonths(), 0))
	if err != nil {
		return custody.Window{}, false, err
	}
	w, ok := custody.NextHandover(plan.Windows, at)
	return w, ok, nil
}

// Horizon returns the range the daemon keeps planned: from the start of
// today's month to the configured number of months ahead
func (p *Planner) Horizon(now time.Time) custody.Range {
	start := dateutil.StartOfMonth(now.In(p.engine.Location))
	return custody.Range{Start: start, End: start.AddDate(0, p.config.Schedule.GetHorizonMonths(), 0)}
}

// Report computes the allocation over [from, to) and per vacation period
func (p *Planner) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	plan, err := p.Plan(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &Report{Allocation: custody.Allocate(plan.Windows, plan.Range)}
	for _, period := range plan.Vacations {
		if !period.Overlaps(plan.Range.Start, plan.Range.End) {
			continue
		}
		alloc := custody.VacationAllocation(plan.Windows, period)
		if period.Start.Before(plan.Range.Start) || period.End.After(plan.Range.End) {
			// only the part inside the requested range was planned
			alloc = custody.Allocate(plan.Windows, intersect(plan.Range, period))
		}
		report.Vacations = append(report.Vacations, VacationShare{Period: period, Allocation: alloc})
	}
	return report, nil
}

func intersect(rng custody.Range, period custody.VacationPeriod) custody.Range {
	out := custody.Range{Start: period.Start, End: period.End}
	if out.Start.Before(rng.Start) {
		out.Start = rng.Start
	}
	if out.End.After(rng.End) {
		out.End = rng.End
	}
	return out
}

func (p *Planner) observe(start time.Time, windows int, err error) {
	if p.metrics != nil {
		p.metrics.ObservePlan(start, windows, err)
	}
}

func (p *Planner) providerFailed(provider string) {
	if p.metrics != nil {
		p.metrics.IncrementProviderFailure(provider)
	}
}
