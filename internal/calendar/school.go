package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/username/custody-schedule/internal/custody"
)

const (
	schoolBaseURL  = "https://data.education.gouv.fr/api/explore/v2.1/catalog/datasets/fr-en-calendrier-scolaire/records"
	schoolPageSize = 100
	// population tag of records that only concern teachers
	teachersPopulation = "Enseignants"
)

// SchoolCalendar implements VacationProvider using the French education
// open-data calendar (fr-en-calendrier-scolaire)
type SchoolCalendar struct {
	baseURL  string
	http     *httpFetcher
	logger   *zap.Logger
	location *time.Location
	cache    map[string]*cachedPeriods
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
}

type cachedPeriods struct {
	periods   []custody.VacationPeriod
	fetchedAt time.Time
}

type schoolResponse struct {
	TotalCount int            `json:"total_count"`
	Results    []schoolRecord `json:"results"`
}

type schoolRecord struct {
	Description   string `json:"description"`
	Population    string `json:"population"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Location      string `json:"location"`
	Zones         string `json:"zones"`
	AnneeScolaire string `json:"annee_scolaire"`
}

// NewSchoolCalendar creates a new SchoolCalendar instance. An empty baseURL uses the public API.
func NewSchoolCalendar(baseURL string, cacheTTL time.Duration, loc *time.Location, logger *zap.Logger) *SchoolCalendar {
	if baseURL == "" {
		baseURL = schoolBaseURL
	}
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	if loc == nil {
		loc = time.UTC
	}

	return &SchoolCalendar{
		baseURL:  baseURL,
		http:     newHTTPFetcher(logger),
		logger:   logger,
		location: loc,
		cache:    make(map[string]*cachedPeriods),
		cacheTTL: cacheTTL,
	}
}

// ListVacations returns the zone's vacation periods intersecting [from, to).
// A period's year is the local year of its start date.
func (c *SchoolCalendar) ListVacations(ctx context.Context, zone string, from, to time.Time) ([]custody.VacationPeriod, error) {
	zoneName := schoolZone(zone)
	cacheKey := fmt.Sprintf("%s/%s/%s", zoneName, from.Format(time.DateOnly), to.Format(time.DateOnly))

	c.cacheMu.RLock()
	if cached, ok := c.cache[cacheKey]; ok {
		if time.Since(cached.fetchedAt) < c.cacheTTL {
			c.cacheMu.RUnlock()
			c.logger.Debug("Using cached vacations", zap.String("key", cacheKey))
			return cached.periods, nil
		}
	}
	c.cacheMu.RUnlock()

	var records []schoolRecord
	for offset := 0; ; offset += schoolPageSize {
		page, err := c.fetchPage(ctx, zoneName, from, to, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Results...)
		if len(page.Results) < schoolPageSize || len(records) >= page.TotalCount {
			break
		}
	}

	periods := make([]custody.VacationPeriod, 0, len(records))
	for _, r := range records {
		if r.Population == teachersPopulation {
			continue
		}
		p, err := c.toPeriod(r)
		if err != nil {
			c.logger.Warn("Skipping malformed vacation record",
				zap.String("description", r.Description),
				zap.Error(err))
			continue
		}
		periods = append(periods, p)
	}
	periods = normalizePeriods(periods, from, to)

	c.cacheMu.Lock()
	c.cache[cacheKey] = &cachedPeriods{periods: periods, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	c.logger.Info("Vacations fetched from API",
		zap.String("zone", zoneName),
		zap.Int("records", len(records)),
		zap.Int("periods", len(periods)))

	return periods, nil
}

func (c *SchoolCalendar) fetchPage(ctx context.Context, zone string, from, to time.Time, offset int) (*schoolResponse, error) {
	q := url.Values{}
	q.Set("where", fmt.Sprintf(`zones="%s" and end_date>=date'%s' and start_date<=date'%s'`,
		zone, from.Format(time.DateOnly), to.Format(time.DateOnly)))
	q.Set("order_by", "start_date")
	q.Set("limit", strconv.Itoa(schoolPageSize))
	q.Set("offset", strconv.Itoa(offset))
	reqURL := c.baseURL + "?" + q.Encode()

	c.logger.Debug("Fetching vacations", zap.String("url", reqURL))

	body, err := c.http.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vacations: %w", err)
	}

	var page schoolResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse vacations JSON: %w", err)
	}
	return &page, nil
}

// toPeriod converts a record. Dates are published as UTC instants of local midnight.
func (c *SchoolCalendar) toPeriod(r schoolRecord) (custody.VacationPeriod, error) {
	start, err := time.Parse(time.RFC3339, r.StartDate)
	if err != nil {
		return custody.VacationPeriod{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.EndDate)
	if err != nil {
		return custody.VacationPeriod{}, fmt.Errorf("failed to parse end_date: %w", err)
	}

	start = start.In(c.location)
	end = end.In(c.location)
	return custody.VacationPeriod{
		Name:  strings.TrimSpace(r.Description),
		Start: start,
		End:   end,
		Year:  start.Year(),
	}, nil
}

// ClearCache clears the cache
func (c *SchoolCalendar) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache = make(map[string]*cachedPeriods)
	c.logger.Info("Vacation cache cleared")
}

// schoolZone turns "c" or "zone c" into the dataset's "Zone C"
func schoolZone(zone string) string {
	z := strings.TrimSpace(zone)
	if len(z) == 1 {
		return "Zone " + strings.ToUpper(z)
	}
	if strings.HasPrefix(strings.ToLower(z), "zone ") && len(z) == 6 {
		return "Zone " + strings.ToUpper(z[5:])
	}
	return z
}
