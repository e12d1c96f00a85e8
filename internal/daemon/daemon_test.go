package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
	"github.com/username/custody-schedule/internal/export"
	"github.com/username/custody-schedule/internal/metrics"
	"github.com/username/custody-schedule/internal/planner"
)

var fixedNow = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

type stubPlanner struct {
	calls   atomic.Int32
	err     error
	release chan struct{} // when set, Plan blocks until it is closed
}

func (s *stubPlanner) Horizon(now time.Time) custody.Range {
	return custody.Range{Start: now, End: now.AddDate(0, 0, 14)}
}

func (s *stubPlanner) Plan(ctx context.Context, from, to time.Time) (*planner.Plan, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	mid := from.AddDate(0, 0, 7)
	return &planner.Plan{
		Range: custody.Range{Start: from, End: to},
		Windows: []custody.Window{
			{Start: from, End: mid, Guardian: "alice", Rule: custody.RuleWeekly},
			{Start: mid, End: to, Guardian: "bob", Rule: custody.RuleWeekly},
		},
	}, nil
}

func newTestDaemon(t *testing.T, p Planner, output string) (*Daemon, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	d, err := NewDaemon(p, export.NewExporter("", nil), m, "0 3 * * *", output, time.UTC, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	d.now = func() time.Time { return fixedNow }
	return d, m
}

func TestNewDaemon_InvalidSchedule(t *testing.T) {
	_, err := NewDaemon(&stubPlanner{}, nil, nil, "every day", "", time.UTC, zap.NewNop())
	if err == nil {
		t.Fatal("NewDaemon() error = nil, want error for invalid cron expression")
	}
}

func TestRefresh_WritesFeed(t *testing.T) {
	output := filepath.Join(t.TempDir(), "custody.ics")
	p := &stubPlanner{}
	d, m := newTestDaemon(t, p, output)

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := strings.Count(string(data), "BEGIN:VEVENT"); got != 2 {
		t.Errorf("events = %d, want 2", got)
	}

	if got := testutil.ToFloat64(m.LastRefresh); got != float64(fixedNow.Unix()) {
		t.Errorf("LastRefresh = %v, want %v", got, fixedNow.Unix())
	}
	if plan := d.LastPlan(); plan == nil || len(plan.Windows) != 2 {
		t.Errorf("LastPlan() = %+v, want 2 windows", plan)
	}

	status := d.GetStatus()
	if status["windows"] != 2 {
		t.Errorf("status[windows] = %v, want 2", status["windows"])
	}
	if status["last_refresh"] != fixedNow.Format(time.RFC3339) {
		t.Errorf("status[last_refresh] = %v", status["last_refresh"])
	}
}

func TestRefresh_Failure(t *testing.T) {
	p := &stubPlanner{err: errors.New("boom")}
	d, m := newTestDaemon(t, p, "")

	if err := d.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() error = nil, want error")
	}
	if got := testutil.ToFloat64(m.LastRefresh); got != 0 {
		t.Errorf("LastRefresh = %v, want 0 after a failed refresh", got)
	}
	if _, ok := d.GetStatus()["last_error"]; !ok {
		t.Error("status should report the last error")
	}
	if d.LastPlan() != nil {
		t.Error("LastPlan() should stay nil after a failed refresh")
	}
}

func TestRefresh_RejectsConcurrentRuns(t *testing.T) {
	p := &stubPlanner{release: make(chan struct{})}
	d, _ := newTestDaemon(t, p, "")

	done := make(chan error, 1)
	go func() { done <- d.Refresh(context.Background()) }()

	// wait for the first refresh to reach the planner
	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first refresh never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := d.Refresh(context.Background()); !errors.Is(err, ErrRefreshRunning) {
		t.Errorf("concurrent Refresh() error = %v, want ErrRefreshRunning", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Errorf("first Refresh() error = %v", err)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("planner calls = %d, want 1", got)
	}
}

func TestNextRun(t *testing.T) {
	d, _ := newTestDaemon(t, &stubPlanner{}, "")

	want := time.Date(2025, 10, 16, 3, 0, 0, 0, time.UTC)
	if got := d.NextRun(); !got.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", got, want)
	}
}

func TestStartStop(t *testing.T) {
	p := &stubPlanner{}
	d, _ := newTestDaemon(t, p, "")

	done := make(chan error, 1)
	go func() { done <- d.Start() }()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial refresh never ran")
		}
		time.Sleep(time.Millisecond)
	}

	d.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	if d.GetStatus()["running"] != false {
		t.Error("status should report the daemon as stopped")
	}
}
