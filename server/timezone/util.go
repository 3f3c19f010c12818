// Package timezone resolves the zone the real-time clock follows.
package timezone

import (
	"fmt"
	"time"
)

// Names accepted besides IANA identifiers.
const (
	TimezoneLocal = "Local"
	TimezoneUTC   = "UTC"
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// An empty name or "Local" is the host zone. If the timezone is invalid,
// returns time.Local and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", TimezoneLocal:
		return time.Local, nil
	case TimezoneUTC:
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// In converts t to loc. A nil loc leaves t unchanged.
func In(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
