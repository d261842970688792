package ranking

import (
	"math/rand/v2"
	"sort"
)

// TieBreaker orders the members of a draw group. The first candidate of the
// returned slice receives the highest remaining ranking sequence of the
// group, the last one the lowest (closest to 1).
type TieBreaker interface {
	Name() string
	Order(group string, tied []Candidate) []Candidate
}

// ByEntryID orders ties by entry id. Used when no policy is configured.
type ByEntryID struct{}

func (ByEntryID) Name() string { return "entry_id" }

func (ByEntryID) Order(_ string, tied []Candidate) []Candidate {
	out := append([]Candidate(nil), tied...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out
}

// Random shuffles ties. Two Random values built from the same seed produce the
// same orders for the same sequence of calls.
type Random struct {
	seed uint64
	rng  *rand.Rand
}

// NewRandom returns a seeded random tie-breaker.
func NewRandom(seed uint64) *Random {
	return &Random{seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Seed reports the seed the tie-breaker was built with.
func (r *Random) Seed() uint64 { return r.seed }

func (r *Random) Name() string { return "random" }

func (r *Random) Order(_ string, tied []Candidate) []Candidate {
	out := ByEntryID{}.Order("", tied)
	r.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// AuthorAverageGiven orders ties by the average score the entry's author gave,
// lowest first. Entries without an author (or whose author never voted) sort
// before all authored ones; remaining ties fall back to entry id.
type AuthorAverageGiven struct {
	Averages map[string]float64
}

func (AuthorAverageGiven) Name() string { return "author_avg_given" }

func (a AuthorAverageGiven) Order(_ string, tied []Candidate) []Candidate {
	out := append([]Candidate(nil), tied...)
	key := func(c Candidate) (float64, bool) {
		if c.Author == "" {
			return 0, false
		}
		v, ok := a.Averages[c.Author]
		return v, ok
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki, oki := key(out[i])
		kj, okj := key(out[j])
		if oki != okj {
			return !oki
		}
		if ki != kj {
			return ki < kj
		}
		return out[i].EntryID < out[j].EntryID
	})
	return out
}
