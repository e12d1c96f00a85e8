package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
)

// CompositeCalendar implements HolidayProvider with fallback strategy
// Primary: API or computed calendar
// Fallback: FileCalendar (local file)
type CompositeCalendar struct {
	primary  HolidayProvider
	fallback HolidayProvider
	logger   *zap.Logger
}

// NewCompositeCalendar creates a new CompositeCalendar
func NewCompositeCalendar(primary, fallback HolidayProvider, logger *zap.Logger) *CompositeCalendar {
	return &CompositeCalendar{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// ListHolidays tries the primary provider, then the fallback
func (cc *CompositeCalendar) ListHolidays(ctx context.Context, country, zone string, years []int) ([]time.Time, error) {
	dates, err := cc.primary.ListHolidays(ctx, country, zone, years)
	if err == nil || cc.fallback == nil {
		return dates, err
	}

	cc.logger.Warn("Primary calendar failed, falling back",
		zap.String("country", country),
		zap.Ints("years", years),
		zap.Error(err))

	return cc.fallback.ListHolidays(ctx, country, zone, years)
}

// LoadFallback loads the fallback calendar (if FileCalendar)
func (cc *CompositeCalendar) LoadFallback() error {
	return loadFallback(cc.fallback, cc.logger)
}

// CompositeVacations implements VacationProvider with the same fallback strategy
type CompositeVacations struct {
	primary  VacationProvider
	fallback VacationProvider
	logger   *zap.Logger
}

// NewCompositeVacations creates a new CompositeVacations
func NewCompositeVacations(primary, fallback VacationProvider, logger *zap.Logger) *CompositeVacations {
	return &CompositeVacations{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// ListVacations tries the primary provider, then the fallback
func (cv *CompositeVacations) ListVacations(ctx context.Context, zone string, from, to time.Time) ([]custody.VacationPeriod, error) {
	periods, err := cv.primary.ListVacations(ctx, zone, from, to)
	if err == nil || cv.fallback == nil {
		return periods, err
	}

	cv.logger.Warn("Primary vacation calendar failed, falling back",
		zap.String("zone", zone),
		zap.Error(err))

	return cv.fallback.ListVacations(ctx, zone, from, to)
}

// LoadFallback loads the fallback calendar (if FileCalendar)
func (cv *CompositeVacations) LoadFallback() error {
	return loadFallback(cv.fallback, cv.logger)
}

func loadFallback(fallback any, logger *zap.Logger) error {
	if fc, ok := fallback.(*FileCalendar); ok {
		if err := fc.Load(); err != nil {
			return fmt.Errorf("failed to load fallback calendar: %w", err)
		}
		logger.Info("Fallback calendar loaded successfully")
	}
	return nil
}
