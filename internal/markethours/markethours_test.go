package markethours

import (
	"testing"
	"time"
)

func et(y int, mo time.Month, d, h, m int) time.Time {
	return time.Date(y, mo, d, h, m, 0, 0, eastern)
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"weekday mid-session", et(2026, 3, 2, 12, 0), true}, // Monday
		{"at the open", et(2026, 3, 2, 9, 30), true},
		{"one minute before open", et(2026, 3, 2, 9, 29), false},
		{"at the close", et(2026, 3, 2, 16, 0), false},
		{"one minute before close", et(2026, 3, 2, 15, 59), true},
		{"saturday", et(2026, 3, 7, 12, 0), false},
		{"sunday", et(2026, 3, 8, 12, 0), false},
		{"christmas", et(2026, 12, 25, 12, 0), false},
		{"independence day observed", et(2026, 7, 3, 12, 0), false},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.t); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsMarketOpen_ConvertsZones(t *testing.T) {
	// 17:00 UTC on a March trading day is 13:00 ET (DST).
	utc := time.Date(2026, 3, 16, 17, 0, 0, 0, time.UTC)
	if !IsMarketOpen(utc) {
		t.Error("expected open for 17:00 UTC during DST")
	}
}

func TestNextOpen(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want time.Time
	}{
		{"before open same day", et(2026, 3, 2, 8, 0), et(2026, 3, 2, 9, 30)},
		{"mid-session rolls to next day", et(2026, 3, 2, 12, 0), et(2026, 3, 3, 9, 30)},
		{"friday afternoon rolls to monday", et(2026, 3, 6, 17, 0), et(2026, 3, 9, 9, 30)},
		{"christmas eve close rolls past holiday", et(2026, 12, 24, 17, 0), et(2026, 12, 28, 9, 30)},
	}
	for _, tc := range cases {
		if got := NextOpen(tc.t); !got.Equal(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsTradingDay(t *testing.T) {
	if IsTradingDay(et(2026, 1, 1, 12, 0)) {
		t.Error("New Year's Day reported as trading day")
	}
	if !IsTradingDay(et(2026, 1, 2, 12, 0)) {
		t.Error("regular Friday not reported as trading day")
	}
}
