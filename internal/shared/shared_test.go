package shared

import (
	"testing"
	"time"
)

func TestWeekLabel(t *testing.T) {
	tc := []struct {
		name string
		date time.Time
		want string
	}{
		{
			name: "mid year",
			date: time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
			want: "2026-W34",
		},
		{
			name: "single digit week is zero padded",
			date: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
			want: "2026-W08",
		},
		{
			name: "early january belongs to previous iso year",
			date: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "2026-W53",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekLabel(tt.date); got != tt.want {
				t.Errorf("WeekLabel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tc := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{name: "short string untouched", s: "hello", max: 10, want: "hello"},
		{name: "exact length untouched", s: "hello", max: 5, want: "hello"},
		{name: "long string gets ellipsis", s: "hello world", max: 8, want: "hello w…"},
		{name: "zero max is empty", s: "hello", max: 0, want: ""},
		{name: "multibyte runes counted as one", s: "héllo wörld", max: 8, want: "héllo w…"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.max); got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{215, "3:35"},
		{-5, "0:00"},
	}

	for _, tt := range tc {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestVisibilityString(t *testing.T) {
	if got := VisibilityString(true); got != "public" {
		t.Errorf("VisibilityString(true) = %v", got)
	}
	if got := VisibilityString(false); got != "private" {
		t.Errorf("VisibilityString(false) = %v", got)
	}
}
