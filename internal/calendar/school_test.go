package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

const schoolFixture = `{
  "total_count": 5,
  "results": [
    {"description": "Vacances de Noël", "population": "-", "start_date": "2025-12-19T23:00:00+00:00", "end_date": "2026-01-04T23:00:00+00:00", "location": "Paris", "zones": "Zone C", "annee_scolaire": "2025-2026"},
    {"description": "Vacances de Noël", "population": "-", "start_date": "2025-12-19T23:00:00+00:00", "end_date": "2026-01-04T23:00:00+00:00", "location": "Créteil", "zones": "Zone C", "annee_scolaire": "2025-2026"},
    {"description": "Pont de l'Ascension", "population": "Enseignants", "start_date": "2026-05-13T22:00:00+00:00", "end_date": "2026-05-17T22:00:00+00:00", "location": "Paris", "zones": "Zone C", "annee_scolaire": "2025-2026"},
    {"description": "Vacances d'Été", "population": "Élèves", "start_date": "2026-07-03T22:00:00+00:00", "end_date": "2026-08-31T22:00:00+00:00", "location": "Paris", "zones": "Zone C", "annee_scolaire": "2025-2026"},
    {"description": "broken", "population": "-", "start_date": "yesterday", "end_date": "2026-08-31T22:00:00+00:00", "location": "Paris", "zones": "Zone C", "annee_scolaire": "2025-2026"}
  ]
}`

func TestSchoolCalendar_ListVacations(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	var where atomic.Value
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		where.Store(r.URL.Query().Get("where"))
		fmt.Fprint(w, schoolFixture)
	}))
	defer srv.Close()

	cal := NewSchoolCalendar(srv.URL, time.Hour, paris, zap.NewNop())
	from := time.Date(2025, time.September, 1, 0, 0, 0, 0, paris)
	to := time.Date(2026, time.September, 1, 0, 0, 0, 0, paris)

	periods, err := cal.ListVacations(context.Background(), "c", from, to)
	if err != nil {
		t.Fatalf("ListVacations() error = %v", err)
	}

	if w, _ := where.Load().(string); !strings.Contains(w, `zones="Zone C"`) {
		t.Errorf("where = %s, want zone filter", w)
	}
	if len(periods) != 2 {
		t.Fatalf("got %d periods, want 2 (duplicates and teacher-only records dropped)", len(periods))
	}

	noel := periods[0]
	if !noel.Start.Equal(time.Date(2025, time.December, 20, 0, 0, 0, 0, paris)) {
		t.Errorf("Noël start = %v, want 2025-12-20 local midnight", noel.Start)
	}
	if noel.Year != 2025 {
		t.Errorf("Noël year = %d, want 2025", noel.Year)
	}

	summer := periods[1]
	if !summer.IsSummer() {
		t.Errorf("%s should be detected as summer", summer.Name)
	}
	if summer.Start.Day() != 4 || summer.Start.Month() != time.July {
		t.Errorf("summer start = %v, want July 4", summer.Start)
	}

	if _, err := cal.ListVacations(context.Background(), "C", from, to); err != nil {
		t.Fatalf("ListVacations() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("API hits = %d, want 1", hits.Load())
	}
}

func TestSchoolCalendar_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cal := NewSchoolCalendar(srv.URL, time.Hour, time.UTC, zap.NewNop())
	cal.http.retries = 1
	_, err := cal.ListVacations(context.Background(), "C", time.Now(), time.Now().AddDate(1, 0, 0))
	if err == nil {
		t.Error("expected error for status 503")
	}
}

func TestSchoolZone(t *testing.T) {
	tests := map[string]string{
		"c":        "Zone C",
		"A":        "Zone A",
		"zone b":   "Zone B",
		"Zone C":   "Zone C",
		"Corse":    "Corse",
		" Zone A ": "Zone A",
	}
	for in, want := range tests {
		if got := schoolZone(in); got != want {
			t.Errorf("schoolZone(%q) = %s, want %s", in, got, want)
		}
	}
}
