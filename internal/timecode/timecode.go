// Package timecode parses the [HH:]MM:SS clock values and START-END ranges
// used for clip timestamps.
package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RangeSeparator splits the start and end of a timestamp range.
const RangeSeparator = "-"

var (
	ErrFormat = errors.New("invalid time format")
	ErrOrder  = errors.New("start must be before end")
)

// Clock is a time of day with second precision, stored as seconds.
type Clock int

// Parse accepts MM:SS or HH:MM:SS with one or two digit fields.
func Parse(value string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrFormat, value)
	}
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	limits := [3]int{24, 60, 60}
	var fields [3]int
	for i, part := range parts {
		if part == "" || len(part) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrFormat, value)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n >= limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrFormat, value)
		}
		fields[i] = n
	}
	return Clock(fields[0]*3600 + fields[1]*60 + fields[2]), nil
}

// FromSeconds builds a clock from a second count.
func FromSeconds(seconds int) Clock {
	return Clock(seconds)
}

// Seconds returns the clock as seconds since midnight.
func (c Clock) Seconds() int {
	return int(c)
}

// String renders HH:MM:SS with zero padding.
func (c Clock) String() string {
	s := int(c)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Range is a clip window.
type Range struct {
	Start Clock
	End   Clock
}

// ParseRange parses "START-END". When duration is positive the range must
// span exactly that many seconds.
func ParseRange(value string, duration int) (Range, error) {
	parts := strings.Split(strings.TrimSpace(value), RangeSeparator)
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("%w: %q (expected [HH:]MM:SS-[HH:]MM:SS)", ErrFormat, value)
	}
	start, err := Parse(parts[0])
	if err != nil {
		return Range{}, err
	}
	end, err := Parse(parts[1])
	if err != nil {
		return Range{}, err
	}
	r := Range{Start: start, End: end}
	if start >= end {
		return Range{}, fmt.Errorf("%w: %q", ErrOrder, value)
	}
	if duration > 0 && r.Seconds() != duration {
		return Range{}, fmt.Errorf("range %q lasts %ds, expected %ds", value, r.Seconds(), duration)
	}
	return r, nil
}

// Seconds returns the span length.
func (r Range) Seconds() int {
	return int(r.End - r.Start)
}

func (r Range) String() string {
	return r.Start.String() + RangeSeparator + r.End.String()
}
