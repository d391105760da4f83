// Package timerange compares wall-clock [start,end) intervals on a single
// calendar date. Times are handled as minutes since midnight.
package timerange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	return hours*60 + minutes, nil
}

// Overlaps reports whether [s1,e1) and [s2,e2) share any instant.
// Back-to-back intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// OverlapsClock is Overlaps over "HH:MM" strings.
func OverlapsClock(start1, end1, start2, end2 string) (bool, error) {
	s1, err := ParseClock(start1)
	if err != nil {
		return false, err
	}
	e1, err := ParseClock(end1)
	if err != nil {
		return false, err
	}
	s2, err := ParseClock(start2)
	if err != nil {
		return false, err
	}
	e2, err := ParseClock(end2)
	if err != nil {
		return false, err
	}
	return Overlaps(s1, e1, s2, e2), nil
}

// ValidOrder reports whether start is strictly before end.
func ValidOrder(start, end string) (bool, error) {
	s, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return false, err
	}
	return s < e, nil
}
