package helpers

import (
	"fmt"
	"time"
)

// ParseTimeParam parses an optional query value as RFC 3339 or as a calendar
// date in loc. An empty value yields nil. endOfDay moves a bare date to the
// last instant of that day so it can close a range.
func ParseTimeParam(value string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339", value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
