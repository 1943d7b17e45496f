// Package timecode converts between clip boundary text ("M:SS", "H:MM:SS")
// and whole seconds.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ytclip/internal/services"
)

// MaxSeconds is the largest accepted time. It keeps clip arithmetic and
// time.Duration conversions well clear of overflow.
const MaxSeconds = math.MaxInt32

// ToSeconds parses "M:S" or "H:MM:SS" into seconds. A bare number is treated
// as seconds.
func ToSeconds(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, invalid(text, "empty")
	}
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, invalid(text, "too many components")
	}
	values := make([]int, len(parts))
	for i, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return 0, invalid(text, err.Error())
		}
		// Leading component is unbounded; the rest are sexagesimal.
		if i > 0 && n >= 60 {
			return 0, invalid(text, fmt.Sprintf("component %q out of range", part))
		}
		values[i] = n
	}
	total := 0
	for _, v := range values {
		if v > MaxSeconds || total > (MaxSeconds-v)/60 {
			return 0, invalid(text, "out of range")
		}
		total = total*60 + v
	}
	return total, nil
}

// Format renders seconds as M:SS, or H:MM:SS once an hour is reached.
// Negative input renders as 0:00.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func parseComponent(part string) (int, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit in %q", part)
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", part, err)
	}
	return n, nil
}

func invalid(text, reason string) error {
	return services.Wrap(services.ErrValidation, services.StageValidate, "parse time", fmt.Sprintf("%q: %s", text, reason), nil)
}
