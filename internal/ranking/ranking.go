package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmptyInput reports that there was nothing to rank.
	ErrEmptyInput = errors.New("nothing to rank")
	// ErrInvalidDigits reports a negative rounding precision.
	ErrInvalidDigits = errors.New("significant decimal digits must not be negative")
)

// Candidate is an entry with the raw scores it received.
type Candidate struct {
	EntryID string
	// Author is the member who submitted the entry, if any. Used by
	// AuthorAverageGiven.
	Author string
	Scores []float64
}

// Group is an independent ranking universe (an award).
type Group struct {
	Key        string
	Candidates []Candidate
}

// Stats is the ranking outcome of a single entry.
type Stats struct {
	EntryID         string
	Group           string
	AvgScore        float64
	RankingPlace    int
	RankingSequence int
}

// Scope selects how ranking sequences are numbered.
type Scope int

const (
	// ScopeGlobal numbers the whole result 1..N, groups taken in input order,
	// so sequences are unique across groups.
	ScopeGlobal Scope = iota
	// ScopeGroup numbers each group 1..N independently. Sequences then repeat
	// across groups.
	ScopeGroup
)

func (s Scope) String() string {
	if s == ScopeGroup {
		return "group"
	}
	return "global"
}

// Options configures a ranking pass.
type Options struct {
	Digits   int
	TieBreak TieBreaker
	Scope    Scope
}

// Result holds the stats for every input candidate plus non-fatal warnings.
type Result struct {
	Stats    []Stats
	Warnings []string
}

// Rank computes stats for every candidate of every group. The output lists
// groups in input order; within a group stats are sorted by ascending average
// (worst first), the order the sequence counter walks.
func Rank(groups []Group, opts Options) (Result, error) {
	if opts.Digits < 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidDigits, opts.Digits)
	}
	if len(groups) == 0 {
		return Result{}, fmt.Errorf("%w: no groups", ErrEmptyInput)
	}
	total := 0
	for _, g := range groups {
		if len(g.Candidates) == 0 {
			return Result{}, fmt.Errorf("%w: group %q has no entries", ErrEmptyInput, g.Key)
		}
		total += len(g.Candidates)
	}
	tieBreak := opts.TieBreak
	if tieBreak == nil {
		tieBreak = ByEntryID{}
	}

	var res Result
	res.Stats = make([]Stats, 0, total)
	sequence := total
	for _, g := range groups {
		if opts.Scope == ScopeGroup {
			sequence = len(g.Candidates)
		}
		stats, warnings := rankGroup(g, opts.Digits, tieBreak, &sequence)
		res.Stats = append(res.Stats, stats...)
		res.Warnings = append(res.Warnings, warnings...)
	}
	return res, nil
}

type scored struct {
	candidate Candidate
	avg       float64
}

func rankGroup(g Group, digits int, tieBreak TieBreaker, sequence *int) ([]Stats, []string) {
	var warnings []string
	items := make([]scored, 0, len(g.Candidates))
	for _, c := range g.Candidates {
		avg, ok := Average(c.Scores, digits)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Entry '%s' in '%s' has no votes", c.EntryID, g.Key))
		}
		items = append(items, scored{candidate: c, avg: avg})
	}
	// Entry id as secondary key keeps the walk independent of input order.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].avg != items[j].avg {
			return items[i].avg < items[j].avg
		}
		return items[i].candidate.EntryID < items[j].candidate.EntryID
	})

	count := len(items)
	out := make([]Stats, 0, count)
	for cursor := 0; cursor < count; {
		end := cursor + 1
		for end < count && items[end].avg == items[cursor].avg {
			end++
		}
		draw := items[cursor:end]
		place := (count - cursor) - len(draw) + 1

		ordered := make([]Candidate, len(draw))
		avgByID := make(map[string]float64, len(draw))
		for i, item := range draw {
			ordered[i] = item.candidate
			avgByID[item.candidate.EntryID] = item.avg
		}
		if len(ordered) > 1 {
			ordered = tieBreak.Order(g.Key, ordered)
		}
		for _, c := range ordered {
			out = append(out, Stats{
				EntryID:         c.EntryID,
				Group:           g.Key,
				AvgScore:        avgByID[c.EntryID],
				RankingPlace:    place,
				RankingSequence: *sequence,
			})
			*sequence--
		}
		cursor = end
	}
	return out, warnings
}

// Average returns the mean of scores rounded to digits. ok is false when
// there are no scores; the average is then 0.
func Average(scores []float64, digits int) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return Round(sum/float64(len(scores)), digits), true
}

// Round rounds half away from zero to the given number of decimal digits.
func Round(value float64, digits int) float64 {
	if digits <= 0 {
		return math.Round(value)
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(value*scale) / scale
}
