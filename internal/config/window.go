package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var windowRe = regexp.MustCompile(`^(\d+)\s+(minute|hour|day|week)s?$`)

// ParseWindow parses a lookback window such as "7 days", "2 weeks" or a Go
// duration like "48h".
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, errors.New("window must be positive")
		}
		return d, nil
	}

	matches := windowRe.FindStringSubmatch(strings.Join(strings.Fields(strings.ToLower(s)), " "))
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid window format %q: expected e.g. \"7 days\" or \"48h\"", s)
	}
	value, err := strconv.Atoi(matches[1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("window must be positive: %q", s)
	}

	var unit time.Duration
	switch matches[2] {
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	}
	return time.Duration(value) * unit, nil
}
