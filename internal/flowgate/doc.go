// Package flowgate wraps pipeline steps in an operator-facing recovery gate.
//
// A Gate runs one step, and on failure (or on success when the continue
// control is enabled) asks a DecisionProvider what to do next: continue,
// retry, reload configuration, reload the step's input data, or abort. The
// controls a gate may offer are declared statically through a Descriptor so
// misuse is reported when the gate is built rather than inside the prompt
// loop. A Runner carries the state shared by every gate of one pipeline run,
// most notably the latch that suppresses further continuation prompts.
package flowgate
