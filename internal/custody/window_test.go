package custody

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departure19 = TimeOfDay{Hour: 19, Minute: 0}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestCalculateEndDate_Scenarios(t *testing.T) {
	friday := at(2025, time.October, 3, 8, 0)

	tests := []struct {
		name     string
		start    time.Time
		endDay   time.Weekday
		holidays HolidaySet
		want     time.Time
	}{
		{
			name:   "Friday to Sunday",
			start:  friday,
			endDay: time.Sunday,
			want:   at(2025, time.October, 5, 19, 0),
		},
		{
			name:   "Friday to Monday",
			start:  friday,
			endDay: time.Monday,
			want:   at(2025, time.October, 6, 19, 0),
		},
		{
			name:     "Monday holiday pushes to Tuesday",
			start:    friday,
			endDay:   time.Monday,
			holidays: NewHolidaySet(date(2025, time.October, 6)),
			want:     at(2025, time.October, 7, 19, 0),
		},
		{
			name:     "Two consecutive holidays push to Wednesday",
			start:    friday,
			endDay:   time.Monday,
			holidays: NewHolidaySet(date(2025, time.October, 6), date(2025, time.October, 7)),
			want:     at(2025, time.October, 8, 19, 0),
		},
		{
			name:   "Monday to Monday is a 7-day cycle",
			start:  at(2025, time.October, 6, 8, 0),
			endDay: time.Monday,
			want:   at(2025, time.October, 13, 8, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEnd(t, tt.start, tt.endDay, tt.holidays)
			assert.True(t, got.Equal(tt.want), "CalculateEndDate() = %v, want %v", got, tt.want)
			assert.True(t, got.After(tt.start))
		})
	}
}

func TestCalculateEndDate_SevenDayCycle(t *testing.T) {
	start := at(2025, time.October, 6, 8, 0)
	end := mustEnd(t, start, time.Monday, HolidaySet{})

	assert.Equal(t, 7, int(end.Sub(start).Hours()/24))
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))
}

func TestCalculateEndDate_AlwaysStrictlyAfterOnRequestedWeekday(t *testing.T) {
	base := at(2025, time.January, 1, 8, 30)
	for offset := 0; offset < 21; offset++ {
		start := base.AddDate(0, 0, offset)
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			end := mustEnd(t, start, wd, HolidaySet{})

			require.True(t, end.After(start), "start=%v endDay=%v end=%v", start, wd, end)
			assert.Equal(t, wd, end.Weekday())

			days := int(date(end.Year(), end.Month(), end.Day()).Sub(
				date(start.Year(), start.Month(), start.Day())).Hours() / 24)
			assert.GreaterOrEqual(t, days, 1)
			assert.LessOrEqual(t, days, 7)
		}
	}
}

func TestCalculateEndDate_ConsecutiveHolidaysExtendByK(t *testing.T) {
	start := at(2025, time.October, 3, 8, 0)
	naive := mustEnd(t, start, time.Monday, HolidaySet{})

	for k := 1; k <= 5; k++ {
		var days []time.Time
		for i := 0; i < k; i++ {
			days = append(days, naive.AddDate(0, 0, i))
		}
		got := mustEnd(t, start, time.Monday, NewHolidaySet(days...))
		assert.True(t, got.Equal(naive.AddDate(0, 0, k)), "k=%d got %v", k, got)
	}
}

func TestCalculateEndDate_KeepsLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// DST ends on Sunday 2025-10-26 in Paris
	start := time.Date(2025, time.October, 24, 8, 0, 0, 0, paris)
	end := mustEnd(t, start, time.Monday, HolidaySet{})

	assert.Equal(t, paris, end.Location())
	assert.True(t, end.Equal(time.Date(2025, time.October, 27, 19, 0, 0, 0, paris)), "end = %v", end)
}

func TestExtend(t *testing.T) {
	holidays := NewHolidaySet(date(2025, time.December, 25), date(2025, time.December, 26))

	got := Extend(at(2025, time.December, 25, 19, 0), holidays)
	assert.Equal(t, at(2025, time.December, 27, 19, 0), got)

	untouched := at(2025, time.December, 24, 19, 0)
	assert.Equal(t, untouched, Extend(untouched, holidays))
	assert.Equal(t, untouched, Extend(untouched, HolidaySet{}))
}

func TestHolidaySet_IgnoresTimeOfDay(t *testing.T) {
	hs := NewHolidaySet(at(2025, time.May, 1, 23, 59))

	assert.True(t, hs.Contains(at(2025, time.May, 1, 0, 0)))
	assert.False(t, hs.Contains(at(2025, time.May, 2, 0, 0)))
	assert.Equal(t, []string{"2025-05-01"}, hs.Dates())
	assert.Equal(t, 1, hs.Len())
}

func mustEnd(t *testing.T, start time.Time, endDay time.Weekday, holidays HolidaySet) time.Time {
	t.Helper()
	end, err := CalculateEndDate(start, endDay, departure19, holidays)
	require.NoError(t, err)
	return end
}

func TestCalculateEndDate_UnknownWeekday(t *testing.T) {
	_, err := CalculateEndDate(at(2025, time.October, 6, 8, 0), time.Weekday(9), departure19, HolidaySet{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNextWeekday_UsesCalendarDate(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		wd   time.Weekday
		want time.Time
	}{
		{"same weekday is a week later", time.Date(2025, time.October, 6, 23, 59, 0, 0, time.UTC), time.Monday, time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC)},
		{"next day", time.Date(2025, time.October, 6, 0, 0, 0, 0, time.UTC), time.Tuesday, time.Date(2025, time.October, 7, 0, 0, 0, 0, time.UTC)},
		{"across a year end", time.Date(2025, time.December, 30, 12, 0, 0, 0, time.UTC), time.Sunday, time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)},
		{"across DST in Paris", time.Date(2025, time.March, 28, 9, 0, 0, 0, paris), time.Monday, time.Date(2025, time.March, 31, 0, 0, 0, 0, paris)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextWeekday(tt.t, tt.wd)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "nextWeekday() = %v, want %v", got, tt.want)
			assert.Equal(t, tt.want.Location(), got.Location())
		})
	}
}
