package match

import (
	"fmt"
	"strings"
	"time"
)

// Start times arrive as wall-clock time-of-day strings typed by operators
// ("7:30 PM", "07:30pm", "19:30"). Normalization is internal to this
// package: callers store the raw string, the engine schedules on the parsed
// value.
var startTimeLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// parseStartTime parses a time-of-day string, tolerating case, surrounding
// whitespace and zero padding.
func parseStartTime(s string) (hour, minute int, err error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	for _, layout := range startTimeLayouts {
		if t, perr := time.Parse(layout, norm); perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("unrecognized start time %q", s)
}

// resolveStartAt turns a time-of-day into the next concrete instant at or
// after now in loc. The scheduler then uses a reached-or-passed comparison
// against this instant, so a tick landing after the minute boundary still
// catches the match.
func resolveStartAt(s string, now time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := parseStartTime(s)
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if at.Before(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
