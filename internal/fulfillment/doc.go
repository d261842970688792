// Package fulfillment asks the operator for everything the rendering stages
// need but the submissions do not carry: avatar pairings, frame size, template
// geometry, clip override settings and missing clip timestamps.
//
// Only missing values are asked for. Answers are validated as they are typed,
// and template values are offered back as defaults for the next selection.
package fulfillment
