// Package ranking turns scored entries into ranked statistics.
//
// Ranking happens independently per group (award). Averages are rounded half
// away from zero to a configured number of decimal digits; entries whose
// rounded averages are equal form a draw group and share the best place the
// group occupies ("minimum rank"). Every entry also receives a unique
// ranking sequence: a counter starts at the number of ranked entries and is
// decremented while walking from the worst entry to the best, so the best
// entry ends up with sequence 1. Within a draw group the order in which the
// counter is handed out comes from an explicit TieBreaker: Random (seedable)
// or AuthorAverageGiven (deterministic).
package ranking
