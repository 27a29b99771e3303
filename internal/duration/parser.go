// Package duration parses free-form elapsed-time text like "2h", "1d 30m", "45m".
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// tokenRe matches one number+unit pair, whitespace between number and unit
// allowed. Units: d (days), h (hours), m (minutes).
var tokenRe = regexp.MustCompile(`(\d+)\s*([dhm])`)

// Parse converts text such as "2h", "1d 30m", or "45 m" into a time.Duration.
// Multiple pairs combine additively and whitespace around and inside tokens is
// ignored. Returns an error for unknown units, text without a number+unit
// pair, leftover text no pair accounts for, or a zero result.
func Parse(text string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, fmt.Errorf("duration: empty input")
	}

	matches := tokenRe.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return 0, fmt.Errorf("duration: no number+unit pair in %q", text)
	}

	var total time.Duration
	last := 0
	for _, m := range matches {
		if gap := strings.TrimSpace(s[last:m[0]]); gap != "" {
			return 0, fmt.Errorf("duration: invalid token %q", gap)
		}
		last = m[1]
		amount, err := strconv.ParseInt(s[m[2]:m[3]], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid amount %q", s[m[2]:m[3]])
		}
		switch s[m[4]:m[5]] {
		case "d":
			total += time.Duration(amount) * 24 * time.Hour
		case "h":
			total += time.Duration(amount) * time.Hour
		case "m":
			total += time.Duration(amount) * time.Minute
		}
	}
	if tail := strings.TrimSpace(s[last:]); tail != "" {
		return 0, fmt.Errorf("duration: invalid token %q", tail)
	}

	if total <= 0 {
		return 0, fmt.Errorf("duration: %q is not a positive duration", text)
	}
	return total, nil
}
