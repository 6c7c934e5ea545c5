package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses human-readable durations from provider configuration.
// Accepts Go duration syntax ("30s", "500ms", "2m") as well as bare numbers,
// which are interpreted as milliseconds ("60000" == one minute). Timeouts in
// provider tables are commonly copied from upstream docs that quote plain
// millisecond values, so both spellings are supported.
func ParseDuration(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("duration is empty")
	}

	if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("duration must not be negative: %s", value)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", value)
	}
	return d, nil
}

// ParseDurationOrDefault parses a duration, falling back to def on empty or
// invalid input
func ParseDurationOrDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	d, err := ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// DurationMillis reports a duration as whole milliseconds, the unit used for
// retry bookkeeping and request logs
func DurationMillis(d time.Duration) int64 {
	return d.Milliseconds()
}
