package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testCalendarYAML = `
holidays:
  - 2025-11-11
  - 2025-12-25
  - 2026-01-01
  - not-a-date
vacations:
  - name: Vacances de Noël
    start: 2025-12-20
    end: 2026-01-05
  - name: Vacances d'Hiver
    start: 2026-02-21
    end: 2026-03-09
    year: 2026
  - name: broken
    start: 2026-05-10
    end: 2026-05-01
`

func writeCalendarFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	if err := os.WriteFile(path, []byte(testCalendarYAML), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestFileCalendar_Holidays(t *testing.T) {
	fc := NewFileCalendar(writeCalendarFile(t), time.UTC, zap.NewNop())

	dates, err := fc.ListHolidays(context.Background(), "FR", "C", []int{2025})
	if err != nil {
		t.Fatalf("ListHolidays() error = %v", err)
	}
	if len(dates) != 2 {
		t.Errorf("got %d holidays for 2025, want 2", len(dates))
	}
}

func TestFileCalendar_Vacations(t *testing.T) {
	fc := NewFileCalendar(writeCalendarFile(t), time.UTC, zap.NewNop())
	if err := fc.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	from := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)

	periods, err := fc.ListVacations(context.Background(), "C", from, to)
	if err != nil {
		t.Fatalf("ListVacations() error = %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("got %d periods, want 1", len(periods))
	}

	p := periods[0]
	if p.Name != "Vacances de Noël" {
		t.Errorf("Name = %s, want Vacances de Noël", p.Name)
	}
	if p.Year != 2025 {
		t.Errorf("Year = %d, want 2025 (defaulted from start)", p.Year)
	}
	if !p.End.Equal(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v, want 2026-01-05", p.End)
	}
}

func TestFileCalendar_MissingFile(t *testing.T) {
	fc := NewFileCalendar(filepath.Join(t.TempDir(), "missing.yaml"), time.UTC, zap.NewNop())

	if err := fc.Load(); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := fc.ListHolidays(context.Background(), "FR", "", []int{2025}); err == nil {
		t.Error("expected error from ListHolidays on missing file")
	}
}
