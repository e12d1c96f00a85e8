package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
)

type stubHolidays struct {
	dates []time.Time
	err   error
	calls int
}

func (s *stubHolidays) ListHolidays(context.Context, string, string, []int) ([]time.Time, error) {
	s.calls++
	return s.dates, s.err
}

type stubVacations struct {
	periods []custody.VacationPeriod
	err     error
	calls   int
}

func (s *stubVacations) ListVacations(context.Context, string, time.Time, time.Time) ([]custody.VacationPeriod, error) {
	s.calls++
	return s.periods, s.err
}

func TestCompositeCalendar_Fallback(t *testing.T) {
	day := time.Date(2025, time.November, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		primary       *stubHolidays
		fallback      *stubHolidays
		wantLen       int
		wantErr       bool
		wantFallbacks int
	}{
		{
			name:     "primary succeeds",
			primary:  &stubHolidays{dates: []time.Time{day}},
			fallback: &stubHolidays{},
			wantLen:  1,
		},
		{
			name:          "primary fails",
			primary:       &stubHolidays{err: errors.New("down")},
			fallback:      &stubHolidays{dates: []time.Time{day, day.AddDate(0, 1, 14)}},
			wantLen:       2,
			wantFallbacks: 1,
		},
		{
			name:          "both fail",
			primary:       &stubHolidays{err: errors.New("down")},
			fallback:      &stubHolidays{err: errors.New("missing file")},
			wantErr:       true,
			wantFallbacks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := NewCompositeCalendar(tt.primary, tt.fallback, zap.NewNop())
			dates, err := cc.ListHolidays(context.Background(), "FR", "C", []int{2025})

			if (err != nil) != tt.wantErr {
				t.Fatalf("ListHolidays() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(dates) != tt.wantLen {
				t.Errorf("got %d dates, want %d", len(dates), tt.wantLen)
			}
			if tt.fallback.calls != tt.wantFallbacks {
				t.Errorf("fallback calls = %d, want %d", tt.fallback.calls, tt.wantFallbacks)
			}
		})
	}
}

func TestCompositeVacations_Fallback(t *testing.T) {
	period := custody.VacationPeriod{
		Name:  "Vacances de la Toussaint",
		Start: time.Date(2025, time.October, 18, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC),
		Year:  2025,
	}
	primary := &stubVacations{err: errors.New("timeout")}
	fallback := &stubVacations{periods: []custody.VacationPeriod{period}}

	cv := NewCompositeVacations(primary, fallback, zap.NewNop())
	periods, err := cv.ListVacations(context.Background(), "C", period.Start, period.End)
	if err != nil {
		t.Fatalf("ListVacations() error = %v", err)
	}
	if len(periods) != 1 || periods[0].Name != period.Name {
		t.Errorf("ListVacations() = %v, want fallback period", periods)
	}

	noFallback := NewCompositeVacations(primary, nil, zap.NewNop())
	if _, err := noFallback.ListVacations(context.Background(), "C", period.Start, period.End); err == nil {
		t.Error("expected primary error without fallback")
	}
	if err := noFallback.LoadFallback(); err != nil {
		t.Errorf("LoadFallback() without file fallback = %v, want nil", err)
	}
}
