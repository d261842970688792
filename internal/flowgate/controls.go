package flowgate

import (
	"slices"
	"strings"
)

// Control is one operator choice offered by a gate.
type Control string

const (
	Continue         Control = "c"
	ContinueSuppress Control = "sk"
	Retry            Control = "r"
	ReloadConfig     Control = "rc"
	ReloadData       Control = "rd"
	ReloadAll        Control = "re"
	Abort            Control = "a"
)

// canonical menu order.
var allControls = []Control{Continue, ContinueSuppress, Retry, ReloadConfig, ReloadData, ReloadAll, Abort}

var descriptions = map[Control]string{
	Continue:         "continue",
	ContinueSuppress: "continue, skip future continuation breaks",
	Retry:            "retry",
	ReloadConfig:     "reload config, then retry",
	ReloadData:       "reload data, then retry",
	ReloadAll:        "reload config and data, then retry",
	Abort:            "abort",
}

// Description returns the menu text for the control.
func (c Control) Description() string {
	return descriptions[c]
}

// Valid reports whether c is one of the known controls.
func (c Control) Valid() bool {
	_, ok := descriptions[c]
	return ok
}

// OnError reports whether the control can be chosen after a failed attempt.
// Only the continue variants are excluded: there is no result to keep.
func (c Control) OnError() bool {
	return c.Valid() && c != Continue && c != ContinueSuppress
}

func (c Control) reloadsConfig() bool { return c == ReloadConfig || c == ReloadAll }

func (c Control) reloadsData() bool { return c == ReloadData || c == ReloadAll }

// ParseControl maps operator input to a control. Matching ignores case and
// surrounding whitespace.
func ParseControl(input string) (Control, bool) {
	c := Control(strings.ToLower(strings.TrimSpace(input)))
	return c, c.Valid()
}

// Controls is an ordered set of controls. Abort is always a member.
type Controls []Control

// NewControls builds a control set in menu order, dropping duplicates and
// unknown values and adding Abort.
func NewControls(controls ...Control) Controls {
	set := make(Controls, 0, len(allControls))
	for _, candidate := range allControls {
		if candidate == Abort || slices.Contains(controls, candidate) {
			set = append(set, candidate)
		}
	}
	return set
}

// Has reports whether c is enabled.
func (cs Controls) Has(c Control) bool {
	return slices.Contains(cs, c)
}

// ErrorControls returns the subset offered after a failure.
func (cs Controls) ErrorControls() Controls {
	out := make(Controls, 0, len(cs))
	for _, c := range cs {
		if c.OnError() {
			out = append(out, c)
		}
	}
	return out
}

func (cs Controls) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// Preset control sets used by the pipeline stages.
var (
	// PresetRetry suits collectors that neither read configuration nor reload data.
	PresetRetry = NewControls(Retry)
	// PresetRetryOrReconfig suits collectors driven by configuration.
	PresetRetryOrReconfig = NewControls(Retry, ReloadConfig)
	// PresetConfiglessStage suits stage bodies that take collected data but no configuration.
	PresetConfiglessStage = NewControls(Continue, ContinueSuppress, Retry, ReloadData)
	// PresetFullStage enables every control.
	PresetFullStage = NewControls(allControls...)
)
