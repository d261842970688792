package fulfillment

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FormatSequence renders sequence numbers compactly, folding runs into
// "a..b" ranges: [1 2 3 5] becomes "1..3, 5".
func FormatSequence(numbers []int) string {
	sorted := slices.Clone(numbers)
	slices.Sort(sorted)
	var bits []string
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if i == j {
			bits = append(bits, strconv.Itoa(sorted[i]))
		} else {
			bits = append(bits, fmt.Sprintf("%d..%d", sorted[i], sorted[j]))
		}
		i = j + 1
	}
	return strings.Join(bits, ", ")
}

// ParseSelection resolves a selection against the pending sequence numbers.
//
//	""      every number in remaining
//	"n"     a single pending number
//	"a:b"   every number from a to b, both ends included
//
// Either range boundary may be omitted and defaults to the lowest or highest
// pending number. Every number in the range must be pending.
func ParseSelection(selection string, pending, remaining []int) ([]int, error) {
	selection = strings.ReplaceAll(selection, " ", "")
	if selection == "" {
		return slices.Clone(remaining), nil
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("invalid selection '%s' (nothing pending)", selection)
	}
	lowest, highest := slices.Min(pending), slices.Max(pending)

	startRaw, endRaw, isRange := strings.Cut(selection, ":")
	if !isRange {
		n, err := strconv.Atoi(selection)
		if err != nil || !slices.Contains(pending, n) {
			return nil, fmt.Errorf("invalid selection '%s' (use a pending number, a range, or leave empty)", selection)
		}
		return []int{n}, nil
	}

	start, end := lowest, highest
	var err error
	if startRaw != "" {
		if start, err = strconv.Atoi(startRaw); err != nil {
			return nil, fmt.Errorf("invalid selection '%s' (bad range start)", selection)
		}
	}
	if endRaw != "" {
		if end, err = strconv.Atoi(endRaw); err != nil {
			return nil, fmt.Errorf("invalid selection '%s' (bad range end)", selection)
		}
	}
	if start > end {
		return nil, fmt.Errorf("invalid selection '%s' (range start after end)", selection)
	}
	out := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		if !slices.Contains(pending, n) {
			return nil, fmt.Errorf("invalid selection '%s' (%d is not pending)", selection, n)
		}
		out = append(out, n)
	}
	return out, nil
}
