package dateutil

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestStartOfDay(t *testing.T) {
	input := time.Date(2025, 1, 15, 14, 30, 45, 123456789, time.UTC)
	expected := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	result := StartOfDay(input)

	if !result.Equal(expected) {
		t.Errorf("StartOfDay(%v) = %v, want %v", input, result, expected)
	}
}

func TestStartOfMonth(t *testing.T) {
	input := time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC)
	expected := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	if result := StartOfMonth(input); !result.Equal(expected) {
		t.Errorf("StartOfMonth(%v) = %v, want %v", input, result, expected)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			"ISO format YYYY-MM-DD",
			"2025-01-15",
			time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			false,
		},
		{
			"French format DD/MM/YYYY",
			"15/01/2025",
			time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			false,
		},
		{
			"ISO with minutes",
			"2025-01-15T10:30",
			time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
			false,
		},
		{
			"RFC 3339",
			"2025-01-15T10:30:00+01:00",
			time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC),
			false,
		},
		{
			"garbage",
			"next tuesday",
			time.Time{},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDate(tt.input, time.UTC)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDate(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}

			if !tt.wantErr && !result.Equal(tt.want) {
				t.Errorf("ParseDate(%v) = %v, want %v", tt.input, result, tt.want)
			}
		})
	}
}
