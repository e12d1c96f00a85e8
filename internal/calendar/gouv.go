package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	gouvBaseURL        = "https://calendrier.api.gouv.fr/jours-feries"
	gouvDefaultRegion  = "metropole"
	defaultHTTPTimeout = 10 * time.Second
	defaultCacheTTL    = 24 * time.Hour
)

// GouvCalendar implements HolidayProvider using the calendrier.api.gouv.fr API
type GouvCalendar struct {
	baseURL  string
	http     *httpFetcher
	logger   *zap.Logger
	location *time.Location
	cache    map[string]*cachedYear
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
}

type cachedYear struct {
	dates     []time.Time
	fetchedAt time.Time
}

// NewGouvCalendar creates a new GouvCalendar instance. An empty baseURL uses the public API.
func NewGouvCalendar(baseURL string, cacheTTL time.Duration, loc *time.Location, logger *zap.Logger) *GouvCalendar {
	if baseURL == "" {
		baseURL = gouvBaseURL
	}
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	if loc == nil {
		loc = time.UTC
	}

	return &GouvCalendar{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     newHTTPFetcher(logger),
		logger:   logger,
		location: loc,
		cache:    make(map[string]*cachedYear),
		cacheTTL: cacheTTL,
	}
}

// ListHolidays returns French public holidays for each year.
// School zones (A, B, C) map to metropolitan France; anything else is
// passed to the API as a region slug ("alsace-moselle", "guadeloupe", ...).
func (c *GouvCalendar) ListHolidays(ctx context.Context, country, zone string, years []int) ([]time.Time, error) {
	if !strings.EqualFold(country, "FR") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCountry, country)
	}

	region := gouvRegion(zone)
	var out []time.Time
	for _, year := range years {
		dates, err := c.year(ctx, region, year)
		if err != nil {
			return nil, err
		}
		out = append(out, dates...)
	}
	return out, nil
}

func (c *GouvCalendar) year(ctx context.Context, region string, year int) ([]time.Time, error) {
	cacheKey := fmt.Sprintf("%s/%d", region, year)

	c.cacheMu.RLock()
	if cached, ok := c.cache[cacheKey]; ok {
		if time.Since(cached.fetchedAt) < c.cacheTTL {
			c.cacheMu.RUnlock()
			c.logger.Debug("Using cached holidays",
				zap.String("key", cacheKey))
			return cached.dates, nil
		}
	}
	c.cacheMu.RUnlock()

	dates, err := c.fetchYear(ctx, region, year)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = &cachedYear{
		dates:     dates,
		fetchedAt: time.Now(),
	}
	c.cacheMu.Unlock()

	return dates, nil
}

// fetchYear fetches one year from the API.
// The response is a JSON object mapping "YYYY-MM-DD" to the holiday name.
func (c *GouvCalendar) fetchYear(ctx context.Context, region string, year int) ([]time.Time, error) {
	url := fmt.Sprintf("%s/%s/%d.json", c.baseURL, region, year)

	c.logger.Debug("Fetching holidays",
		zap.String("url", url),
		zap.Int("year", year))

	body, err := c.http.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holidays: %w", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse holidays JSON: %w", err)
	}

	dates := make([]time.Time, 0, len(payload))
	for day, name := range payload {
		d, err := time.ParseInLocation("2006-01-02", day, c.location)
		if err != nil {
			c.logger.Warn("Skipping malformed holiday date",
				zap.String("date", day),
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	c.logger.Info("Holidays fetched from API",
		zap.String("region", region),
		zap.Int("year", year),
		zap.Int("count", len(dates)))

	return dates, nil
}

// ClearCache clears the cache
func (c *GouvCalendar) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache = make(map[string]*cachedYear)
	c.logger.Info("Holiday cache cleared")
}

func gouvRegion(zone string) string {
	z := strings.ToLower(strings.TrimSpace(zone))
	z = strings.TrimPrefix(z, "zone ")
	switch z {
	case "", "a", "b", "c":
		return gouvDefaultRegion
	}
	return z
}
