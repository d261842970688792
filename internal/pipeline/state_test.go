package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"musicosa/internal/fulfillment"
	"musicosa/internal/pipeline"
	"musicosa/internal/services"
	"musicosa/internal/store"
	"musicosa/internal/submissions"
	"musicosa/internal/testsupport"
	"musicosa/internal/timecode"
)

type failingCommitter struct{ calls int }

func (f *failingCommitter) Commit(context.Context, *store.Batch) error {
	f.calls++
	return errors.New("disk full")
}

func submissionsOutput() submissions.Output {
	return submissions.Output{
		Members: []store.Member{{ID: "m-ana", Name: "Ana"}, {ID: "m-bruno", Name: "Bruno"}},
		Entries: []store.Entry{
			{ID: "e-a", Title: "Song A", Award: "best-song", AuthorID: "m-ana"},
			{ID: "e-b", Title: "Song B", Award: "best-song"},
		},
		Scores: []store.Score{
			{MemberID: "m-ana", EntryID: "e-a", Value: 8},
			{MemberID: "m-bruno", EntryID: "e-b", Value: 6},
		},
		VideoOptions: []store.VideoOptions{{EntryID: "e-a", Start: timecode.FromSeconds(10), End: timecode.FromSeconds(40)}},
	}
}

func TestCheckpointCommitsPendingRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := st.AddAwards(ctx, store.Award{Slug: "best-song", Designation: "Best Song"}); err != nil {
		t.Fatalf("AddAwards: %v", err)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	state := pipeline.NewState(snap)
	state.RegisterSubmissions(submissionsOutput())

	n, err := state.Checkpoint(ctx, st, "stage 1")
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 records committed, got %d", n)
	}
	if !state.Pending().Empty() {
		t.Fatal("expected pending records to be cleared")
	}

	reloaded, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Members) != 2 || len(reloaded.Entries) != 2 || len(reloaded.Scores) != 2 {
		t.Fatalf("unexpected snapshot: %d members, %d entries, %d scores",
			len(reloaded.Members), len(reloaded.Entries), len(reloaded.Scores))
	}

	n, err = state.Checkpoint(ctx, st, "stage 2")
	if err != nil || n != 0 {
		t.Fatalf("expected empty checkpoint to be a no-op, got %d, %v", n, err)
	}
}

func TestCheckpointFailureIsFatalAndKeepsPending(t *testing.T) {
	state := pipeline.NewState(nil)
	state.RegisterSubmissions(submissionsOutput())

	committer := &failingCommitter{}
	_, err := state.Checkpoint(context.Background(), committer, "stage 1")
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("expected checkpoint failure to be fatal")
	}
	if state.Pending().Empty() {
		t.Fatal("expected pending records to survive a failed commit")
	}
	if committer.calls != 1 {
		t.Fatalf("expected one commit attempt, got %d", committer.calls)
	}
}

func TestRegisterSubmissionsKeepsKnownAvatar(t *testing.T) {
	state := pipeline.NewState(&store.Snapshot{
		Members: []store.Member{{ID: "m-ana", Name: "Ana", AvatarID: 3}},
	})
	state.RegisterSubmissions(submissionsOutput())

	if id, ok := state.MemberID("Bruno"); !ok || id != "m-bruno" {
		t.Fatalf("expected Bruno to be indexed, got %q, %v", id, ok)
	}
	for _, m := range state.Members {
		if m.Name == "Ana" && m.AvatarID != 3 {
			t.Fatalf("expected Ana to keep avatar 3, got %d", m.AvatarID)
		}
	}
	for _, m := range state.Pending().Members {
		if m.Name == "Ana" && m.AvatarID != 3 {
			t.Fatalf("expected pending Ana to keep avatar 3, got %d", m.AvatarID)
		}
	}
	if e, ok := state.Entry("e-b"); !ok || e.Title != "Song B" {
		t.Fatalf("expected entry e-b, got %+v, %v", e, ok)
	}
}

func TestRegisterRankingRejectsUnknownEntries(t *testing.T) {
	state := pipeline.NewState(nil)
	state.RegisterSubmissions(submissionsOutput())
	pendingBefore := state.Pending().Size()

	err := state.RegisterRanking([]store.EntryStats{{EntryID: "e-missing", RankingPlace: 1, RankingSequence: 1}}, nil)
	if err == nil {
		t.Fatal("expected unknown entry to be rejected")
	}
	if state.Pending().ReplaceEntryStats || state.Pending().Size() != pendingBefore {
		t.Fatal("expected rejected ranking to leave pending records untouched")
	}

	err = state.RegisterRanking([]store.EntryStats{
		{EntryID: "e-a", AvgScore: 8, RankingPlace: 1, RankingSequence: 1},
		{EntryID: "e-b", AvgScore: 6, RankingPlace: 2, RankingSequence: 2},
	}, nil)
	if err != nil {
		t.Fatalf("RegisterRanking: %v", err)
	}
	if !state.Pending().ReplaceEntryStats || !state.Pending().ReplaceMemberStats {
		t.Fatal("expected ranking to replace both stat tables")
	}
	if state.Sequence("e-b") != 2 || state.Sequence("e-unknown") != 0 {
		t.Fatalf("unexpected sequences: %d, %d", state.Sequence("e-b"), state.Sequence("e-unknown"))
	}
}

func TestTemplatedEntriesOrderedBySequenceDescending(t *testing.T) {
	state := pipeline.NewState(&store.Snapshot{Awards: []store.Award{{Slug: "best-song"}}})
	state.RegisterSubmissions(submissionsOutput())
	if err := state.RegisterRanking([]store.EntryStats{
		{EntryID: "e-a", RankingPlace: 1, RankingSequence: 1},
		{EntryID: "e-b", RankingPlace: 2, RankingSequence: 2},
	}, nil); err != nil {
		t.Fatalf("RegisterRanking: %v", err)
	}
	state.RegisterFulfillment(fulfillment.Output{
		Templates: []store.Template{{EntryID: "e-a", AvatarScale: 1}, {EntryID: "e-b", AvatarScale: 1}},
	})

	entries := state.TemplatedEntries()
	if len(entries) != 2 || entries[0].ID != "e-b" || entries[1].ID != "e-a" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}
