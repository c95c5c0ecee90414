package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// shortDuration matches a whole number with a single unit such as "30d"
var shortDuration = regexp.MustCompile(`^(\d+)([smhd])$`)

var unitDurations = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration parses delays, timeouts and TTLs. It accepts a day suffix
// ("7d") on top of Go duration syntax ("1h30m", "500ms"). Negative values
// are rejected; "0" disables whatever the duration controls.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if m := shortDuration.FindStringSubmatch(s); m != nil {
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q: %w", m[1], err)
		}
		unit := unitDurations[m[2]]
		if value > int64(time.Duration(1<<63-1)/unit) {
			return 0, fmt.Errorf("duration %q is too large", s)
		}
		return time.Duration(value) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
