package ranking_test

import (
	"errors"
	"sort"
	"testing"

	"musicosa/internal/ranking"
)

func statsByID(stats []ranking.Stats) map[string]ranking.Stats {
	out := make(map[string]ranking.Stats, len(stats))
	for _, s := range stats {
		out[s.EntryID] = s
	}
	return out
}

func TestRankFourEntriesWithDraw(t *testing.T) {
	groups := []ranking.Group{{Key: "best-song", Candidates: []ranking.Candidate{
		{EntryID: "a", Scores: []float64{10, 10, 10}},
		{EntryID: "b", Scores: []float64{8, 8, 8}},
		{EntryID: "c", Scores: []float64{6, 6, 6}},
		{EntryID: "d", Scores: []float64{6, 6, 6}},
	}}}

	res, err := ranking.Rank(groups, ranking.Options{Digits: 0, TieBreak: ranking.NewRandom(7)})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	byID := statsByID(res.Stats)

	wantPlaces := map[string]int{"a": 1, "b": 2, "c": 3, "d": 3}
	for id, place := range wantPlaces {
		if byID[id].RankingPlace != place {
			t.Fatalf("entry %s: place %d, want %d", id, byID[id].RankingPlace, place)
		}
	}
	if byID["a"].RankingSequence != 1 || byID["b"].RankingSequence != 2 {
		t.Fatalf("unexpected sequences for a/b: %d %d", byID["a"].RankingSequence, byID["b"].RankingSequence)
	}
	tied := []int{byID["c"].RankingSequence, byID["d"].RankingSequence}
	sort.Ints(tied)
	if tied[0] != 3 || tied[1] != 4 {
		t.Fatalf("expected tied entries to hold sequences {3,4}, got %v", tied)
	}
}

func TestRankZeroVotesWarnsAndRanksLast(t *testing.T) {
	groups := []ranking.Group{{Key: "g", Candidates: []ranking.Candidate{
		{EntryID: "voted", Scores: []float64{5}},
		{EntryID: "silent"},
	}}}
	res, err := ranking.Rank(groups, ranking.Options{Digits: 2})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	byID := statsByID(res.Stats)
	silent := byID["silent"]
	if silent.AvgScore != 0 || silent.RankingPlace != 2 || silent.RankingSequence != 2 {
		t.Fatalf("unexpected stats for zero-vote entry: %+v", silent)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", res.Warnings)
	}
}

func TestRankRoundingCreatesDraws(t *testing.T) {
	groups := []ranking.Group{{Key: "g", Candidates: []ranking.Candidate{
		{EntryID: "x", Scores: []float64{7.04}},
		{EntryID: "y", Scores: []float64{7.01}},
		{EntryID: "z", Scores: []float64{7.25}},
	}}}
	res, err := ranking.Rank(groups, ranking.Options{Digits: 1})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	byID := statsByID(res.Stats)
	if byID["x"].RankingPlace != 2 || byID["y"].RankingPlace != 2 {
		t.Fatalf("expected x and y to tie on the rounded average, got %+v %+v", byID["x"], byID["y"])
	}
	if byID["z"].AvgScore != 7.3 || byID["z"].RankingPlace != 1 {
		t.Fatalf("unexpected z stats: %+v", byID["z"])
	}
}

func TestRankGroupsAreIndependent(t *testing.T) {
	groups := []ranking.Group{
		{Key: "one", Candidates: []ranking.Candidate{{EntryID: "a", Scores: []float64{1}}, {EntryID: "b", Scores: []float64{2}}}},
		{Key: "two", Candidates: []ranking.Candidate{{EntryID: "c", Scores: []float64{9}}, {EntryID: "d", Scores: []float64{3}}, {EntryID: "e", Scores: []float64{4}}}},
	}
	res, err := ranking.Rank(groups, ranking.Options{Scope: ranking.ScopeGroup})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	byID := statsByID(res.Stats)
	if byID["b"].RankingPlace != 1 || byID["c"].RankingPlace != 1 {
		t.Fatalf("expected a winner per group, got %+v %+v", byID["b"], byID["c"])
	}
	if byID["a"].RankingSequence != 2 || byID["d"].RankingSequence != 3 {
		t.Fatalf("expected sequences to restart per group, got %+v %+v", byID["a"], byID["d"])
	}
}

func TestRankGlobalScopeNumbersAcrossGroups(t *testing.T) {
	groups := []ranking.Group{
		{Key: "one", Candidates: []ranking.Candidate{{EntryID: "a", Scores: []float64{1}}, {EntryID: "b", Scores: []float64{2}}}},
		{Key: "two", Candidates: []ranking.Candidate{{EntryID: "c", Scores: []float64{9}}}},
	}
	res, err := ranking.Rank(groups, ranking.Options{Scope: ranking.ScopeGlobal})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	byID := statsByID(res.Stats)
	if byID["a"].RankingSequence != 3 || byID["b"].RankingSequence != 2 || byID["c"].RankingSequence != 1 {
		t.Fatalf("unexpected global sequences: %+v", res.Stats)
	}
}

func TestRankDefaultSequencesAreUniqueAcrossGroups(t *testing.T) {
	groups := []ranking.Group{
		{Key: "best-song", Candidates: []ranking.Candidate{{EntryID: "a1", Scores: []float64{9}}, {EntryID: "a2", Scores: []float64{4}}}},
		{Key: "best-video", Candidates: []ranking.Candidate{{EntryID: "b1", Scores: []float64{8}}, {EntryID: "b2", Scores: []float64{3}}}},
	}
	res, err := ranking.Rank(groups, ranking.Options{})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	owner := map[int]string{}
	for _, s := range res.Stats {
		if prev, ok := owner[s.RankingSequence]; ok {
			t.Fatalf("sequence %d shared by %s and %s", s.RankingSequence, prev, s.EntryID)
		}
		owner[s.RankingSequence] = s.EntryID
	}
	for seq := 1; seq <= 4; seq++ {
		if _, ok := owner[seq]; !ok {
			t.Fatalf("expected sequences 1..4, got %v", owner)
		}
	}
}

func TestRankFailures(t *testing.T) {
	if _, err := ranking.Rank(nil, ranking.Options{}); !errors.Is(err, ranking.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := ranking.Rank([]ranking.Group{{Key: "empty"}}, ranking.Options{}); !errors.Is(err, ranking.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput for empty group, got %v", err)
	}
	groups := []ranking.Group{{Key: "g", Candidates: []ranking.Candidate{{EntryID: "a"}}}}
	if _, err := ranking.Rank(groups, ranking.Options{Digits: -1}); !errors.Is(err, ranking.ErrInvalidDigits) {
		t.Fatalf("expected ErrInvalidDigits, got %v", err)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		value  float64
		digits int
		want   float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1.25, 1, 1.3},
		{7.333333, 2, 7.33},
		{9, 3, 9},
	}
	for _, tt := range tests {
		if got := ranking.Round(tt.value, tt.digits); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.value, tt.digits, got, tt.want)
		}
	}
}

func TestAuthorAverageGivenOrdersTies(t *testing.T) {
	tb := ranking.AuthorAverageGiven{Averages: map[string]float64{"generous": 9, "strict": 4}}
	tied := []ranking.Candidate{
		{EntryID: "e1", Author: "generous"},
		{EntryID: "e2", Author: "strict"},
		{EntryID: "e3"},
	}
	ordered := tb.Order("g", tied)
	got := []string{ordered[0].EntryID, ordered[1].EntryID, ordered[2].EntryID}
	want := []string{"e3", "e2", "e1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}

	groups := []ranking.Group{{Key: "g", Candidates: tied}}
	res, err := ranking.Rank(groups, ranking.Options{TieBreak: tb})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	byID := statsByID(res.Stats)
	if byID["e3"].RankingSequence != 3 || byID["e2"].RankingSequence != 2 || byID["e1"].RankingSequence != 1 {
		t.Fatalf("unexpected sequences: %+v", res.Stats)
	}
}

func TestMemberAverages(t *testing.T) {
	votes := []ranking.Vote{
		{Member: "alice", EntryID: "e1", Value: 8},
		{Member: "alice", EntryID: "e2", Value: 5},
		{Member: "bob", EntryID: "e1", Value: 6},
	}
	stats := []ranking.Stats{{EntryID: "e1", AvgScore: 7}, {EntryID: "e2", AvgScore: 5}}
	authors := map[string]string{"e1": "bob"}

	got := ranking.MemberAverages([]string{"alice", "bob"}, votes, authors, stats, 1)
	if got[0].Member != "alice" || got[0].AvgGiven != 6.5 || got[0].AvgReceived != nil {
		t.Fatalf("unexpected alice stats: %+v", got[0])
	}
	if got[1].AvgGiven != 6 || got[1].AvgReceived == nil || *got[1].AvgReceived != 7 {
		t.Fatalf("unexpected bob stats: %+v", got[1])
	}
}
