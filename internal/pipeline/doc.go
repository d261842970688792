// Package pipeline runs the six musicosa stages in order.
//
// Every stage is two flow-control gates: a collector that gathers the input
// and an executor that does the work and prints the stage summary. What a
// stage produces is kept in State and committed to the store in a single
// transaction once the stage completes, so a run can resume from any stage
// with start_from. Missing settings and persistence failures end the run
// without prompting; everything else goes back to the operator at the gate.
package pipeline
