package calendar

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/username/custody-schedule/internal/custody"
)

const fileDateLayout = "2006-01-02"

// FileCalendar implements HolidayProvider and VacationProvider from a local YAML file:
//
//	holidays:
//	  - 2025-11-11
//	vacations:
//	  - name: Vacances de Noël
//	    start: 2025-12-20
//	    end: 2026-01-05
//	    year: 2025
//
// end is the day classes resume. year defaults to the start year.
type FileCalendar struct {
	filePath string
	location *time.Location
	logger   *zap.Logger

	mu        sync.RWMutex
	holidays  map[int][]time.Time // year → dates
	vacations []custody.VacationPeriod
	loaded    bool
}

type fileData struct {
	Holidays  []string       `yaml:"holidays"`
	Vacations []fileVacation `yaml:"vacations"`
}

type fileVacation struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Year  int    `yaml:"year"`
}

// NewFileCalendar creates a new FileCalendar instance
func NewFileCalendar(filePath string, loc *time.Location, logger *zap.Logger) *FileCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &FileCalendar{
		filePath: filePath,
		location: loc,
		logger:   logger,
		holidays: make(map[int][]time.Time),
	}
}

// Load loads calendar data from file
func (fc *FileCalendar) Load() error {
	raw, err := os.ReadFile(fc.filePath)
	if err != nil {
		return fmt.Errorf("failed to open calendar file: %w", err)
	}

	var data fileData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse calendar file: %w", err)
	}

	holidays := make(map[int][]time.Time)
	for _, s := range data.Holidays {
		d, err := time.ParseInLocation(fileDateLayout, s, fc.location)
		if err != nil {
			fc.logger.Warn("Failed to parse holiday date", zap.String("date", s), zap.Error(err))
			continue
		}
		holidays[d.Year()] = append(holidays[d.Year()], d)
	}

	vacations := make([]custody.VacationPeriod, 0, len(data.Vacations))
	for _, v := range data.Vacations {
		start, err := time.ParseInLocation(fileDateLayout, v.Start, fc.location)
		if err != nil {
			fc.logger.Warn("Failed to parse vacation start", zap.String("name", v.Name), zap.Error(err))
			continue
		}
		end, err := time.ParseInLocation(fileDateLayout, v.End, fc.location)
		if err != nil {
			fc.logger.Warn("Failed to parse vacation end", zap.String("name", v.Name), zap.Error(err))
			continue
		}
		if !start.Before(end) {
			fc.logger.Warn("Vacation ends before it starts", zap.String("name", v.Name))
			continue
		}
		year := v.Year
		if year == 0 {
			year = start.Year()
		}
		vacations = append(vacations, custody.VacationPeriod{Name: v.Name, Start: start, End: end, Year: year})
	}

	fc.mu.Lock()
	fc.holidays = holidays
	fc.vacations = vacations
	fc.loaded = true
	fc.mu.Unlock()

	fc.logger.Info("Calendar file loaded",
		zap.String("file", fc.filePath),
		zap.Int("holiday_years", len(holidays)),
		zap.Int("vacations", len(vacations)))

	return nil
}

func (fc *FileCalendar) ensureLoaded() error {
	fc.mu.RLock()
	loaded := fc.loaded
	fc.mu.RUnlock()
	if loaded {
		return nil
	}
	return fc.Load()
}

// ListHolidays returns the file's holidays for the requested years. country and zone are ignored.
func (fc *FileCalendar) ListHolidays(_ context.Context, _, _ string, years []int) ([]time.Time, error) {
	if err := fc.ensureLoaded(); err != nil {
		return nil, err
	}

	fc.mu.RLock()
	defer fc.mu.RUnlock()

	var out []time.Time
	for _, y := range years {
		out = append(out, fc.holidays[y]...)
	}
	return out, nil
}

// ListVacations returns the file's periods intersecting [from, to). zone is ignored.
func (fc *FileCalendar) ListVacations(_ context.Context, _ string, from, to time.Time) ([]custody.VacationPeriod, error) {
	if err := fc.ensureLoaded(); err != nil {
		return nil, err
	}

	fc.mu.RLock()
	defer fc.mu.RUnlock()

	return normalizePeriods(fc.vacations, from, to), nil
}
