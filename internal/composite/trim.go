package composite

import (
	"strconv"

	"musicosa/internal/store"
)

// Limits are the clip duration settings applied while trimming.
type Limits struct {
	// DefaultDuration is the expected clip length in seconds.
	DefaultDuration int
	// OverrideTopN entries ranked 1..N use OverrideUpTo instead of their window.
	OverrideTopN int
	// OverrideUpTo is the override length in seconds. Zero plays the whole clip.
	OverrideUpTo int
}

// LimitsFrom reads the trimming settings. All of them must be set.
func LimitsFrom(settings store.Settings) (Limits, error) {
	var l Limits
	var err error
	if l.DefaultDuration, err = settings.Int(store.KeyEntryVideoDuration); err != nil {
		return l, err
	}
	if l.OverrideTopN, err = settings.Int(store.KeyVideoclipsOverrideTopN); err != nil {
		return l, err
	}
	if l.OverrideUpTo, err = settings.Int(store.KeyVideoclipsOverrideUpToXSecs); err != nil {
		return l, err
	}
	return l, nil
}

// Trim is the input seek arguments for a clip plus an optional warning.
type Trim struct {
	Args    []string
	Warning string
}

// PlanTrim decides which part of a clip lasting clipSeconds ends up in the
// video bit of the entry ranked at sequence.
func PlanTrim(sequence int, clipSeconds float64, window store.VideoOptions, l Limits) Trim {
	if sequence <= l.OverrideTopN {
		switch {
		case l.OverrideUpTo == 0:
			return Trim{}
		case clipSeconds < float64(l.OverrideUpTo):
			return Trim{Warning: "top clip is shorter than the override duration, using the whole clip"}
		default:
			return Trim{Args: []string{"-ss", "0", "-t", strconv.Itoa(l.OverrideUpTo)}}
		}
	}

	start := float64(window.Start.Seconds())
	end := float64(window.End.Seconds())
	if clipSeconds <= start {
		return Trim{
			Args:    []string{"-ss", "0", "-t", strconv.Itoa(l.DefaultDuration)},
			Warning: "start timestamp exceeds clip duration, trimming from the start",
		}
	}
	t := Trim{Args: []string{"-ss", window.Start.String(), "-to", window.End.String()}}
	if clipSeconds < end {
		t.Warning = "end timestamp exceeds clip duration, the bit ends with the clip"
	}
	return t
}
