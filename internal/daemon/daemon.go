package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
	"github.com/username/custody-schedule/internal/export"
	"github.com/username/custody-schedule/internal/metrics"
	"github.com/username/custody-schedule/internal/planner"
)

// ErrRefreshRunning is returned when a refresh is requested while one is in progress
var ErrRefreshRunning = errors.New("refresh already in progress")

// Planner is what the daemon needs from the planner
type Planner interface {
	Plan(ctx context.Context, from, to time.Time) (*planner.Plan, error)
	Horizon(now time.Time) custody.Range
}

// Daemon keeps the planning horizon computed and the exported feed fresh
type Daemon struct {
	planner  Planner
	exporter *export.Exporter
	metrics  *metrics.Metrics
	spec     string
	schedule cron.Schedule
	output   string // ICS file rewritten on every refresh, optional
	loc      *time.Location
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	cron     *cron.Cron
	now      func() time.Time

	mu          sync.Mutex // Protect against concurrent runs
	syncRunning bool
	lastRunTime time.Time
	lastWindows int
	lastErr     error
	lastPlan    *planner.Plan
}

// NewDaemon creates a daemon refreshing on the given cron expression
func NewDaemon(
	p Planner,
	exporter *export.Exporter,
	m *metrics.Metrics,
	spec string,
	output string,
	loc *time.Location,
	logger *zap.Logger,
) (*Daemon, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule '%s': %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		planner:  p,
		exporter: exporter,
		metrics:  m,
		spec:     spec,
		schedule: schedule,
		output:   output,
		loc:      loc,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}, nil
}

// Start refreshes once, then on every cron tick, until Stop is called or
// SIGINT/SIGTERM is received
func (d *Daemon) Start() error {
	d.logger.Info("Daemon started",
		zap.String("refresh", d.spec),
		zap.String("timezone", d.loc.String()),
		zap.String("ics_output", d.output))

	if err := d.Refresh(d.ctx); err != nil {
		d.logger.Error("Initial refresh failed", zap.Error(err))
	}

	cl := cronLogger{d.logger.Sugar()}
	d.cron = cron.New(
		cron.WithLocation(d.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	d.cron.Schedule(d.schedule, cron.FuncJob(func() {
		if err := d.Refresh(d.ctx); err != nil {
			d.logger.Error("Scheduled refresh failed", zap.Error(err))
		}
	}))
	d.cron.Start()

	d.logger.Info("Next refresh scheduled", zap.Time("next_run", d.NextRun()))

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-d.ctx.Done():
	case sig := <-sigChan:
		d.logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		d.Stop()
	}

	<-d.cron.Stop().Done()
	d.logger.Info("Daemon stopped")
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// Refresh plans the horizon and rewrites the ICS output.
// Concurrent calls return ErrRefreshRunning.
func (d *Daemon) Refresh(ctx context.Context) error {
	d.mu.Lock()
	if d.syncRunning {
		d.mu.Unlock()
		d.logger.Warn("Refresh already running, skipping concurrent execution")
		return ErrRefreshRunning
	}
	d.syncRunning = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.syncRunning = false
		d.mu.Unlock()
	}()

	now := d.now().In(d.loc)
	rng := d.planner.Horizon(now)
	d.logger.Info("Refreshing schedule",
		zap.Time("from", rng.Start),
		zap.Time("to", rng.End))

	plan, err := d.planner.Plan(ctx, rng.Start, rng.End)
	if err == nil && d.output != "" {
		err = d.exporter.WriteFile(d.output, plan.Windows, "")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = err
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	d.lastRunTime = now
	d.lastWindows = len(plan.Windows)
	d.lastPlan = plan
	if d.metrics != nil {
		d.metrics.MarkRefreshed(now)
	}

	d.logger.Info("Refresh completed",
		zap.Int("windows", len(plan.Windows)),
		zap.Int("vacations", len(plan.Vacations)),
		zap.String("ics_output", d.output))
	return nil
}

// LastPlan returns the plan of the last successful refresh, or nil
func (d *Daemon) LastPlan() *planner.Plan {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPlan
}

// NextRun returns the next scheduled refresh
func (d *Daemon) NextRun() time.Time {
	return d.schedule.Next(d.now().In(d.loc))
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := map[string]interface{}{
		"running":      d.ctx.Err() == nil,
		"refresh":      d.spec,
		"next_refresh": d.schedule.Next(d.now().In(d.loc)).Format(time.RFC3339),
		"refreshing":   d.syncRunning,
	}
	if !d.lastRunTime.IsZero() {
		status["last_refresh"] = d.lastRunTime.Format(time.RFC3339)
		status["windows"] = d.lastWindows
	}
	if d.lastErr != nil {
		status["last_error"] = d.lastErr.Error()
	}
	if d.output != "" {
		status["ics_output"] = d.output
	}
	return status
}

// cronLogger routes cron's own logging through zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
