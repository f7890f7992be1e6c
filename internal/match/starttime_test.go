package match

import (
	"testing"
	"time"
)

func TestParseStartTimeToleratesFormatting(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
	}{
		{"7:05 PM", 19, 5},
		{"07:05 pm", 19, 5},
		{"  7:05PM ", 19, 5},
		{"7:05  PM", 19, 5},
		{"12:00 AM", 0, 0},
		{"12:30 PM", 12, 30},
		{"19:05", 19, 5},
		{"09:00", 9, 0},
	}
	for _, tc := range cases {
		hour, minute, err := parseStartTime(tc.in)
		if err != nil {
			t.Errorf("parseStartTime(%q) failed: %v", tc.in, err)
			continue
		}
		if hour != tc.hour || minute != tc.minute {
			t.Errorf("parseStartTime(%q) = %d:%02d, want %d:%02d", tc.in, hour, minute, tc.hour, tc.minute)
		}
	}

	for _, bad := range []string{"", "25:00", "half past seven", "7pm"} {
		if _, _, err := parseStartTime(bad); err == nil {
			t.Errorf("parseStartTime(%q) should fail", bad)
		}
	}
}

func TestResolveStartAtPicksNextOccurrence(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	// Later today
	at, err := resolveStartAt("7:30 PM", now, loc)
	if err != nil {
		t.Fatalf("resolveStartAt failed: %v", err)
	}
	want := time.Date(2026, 3, 10, 19, 30, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("resolveStartAt = %v, want %v", at, want)
	}

	// Already passed today: rolls to tomorrow
	at, err = resolveStartAt("9:00 AM", now, loc)
	if err != nil {
		t.Fatalf("resolveStartAt failed: %v", err)
	}
	want = time.Date(2026, 3, 11, 9, 0, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("resolveStartAt = %v, want %v", at, want)
	}
}
