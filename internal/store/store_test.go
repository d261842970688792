package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"musicosa/internal/store"
	"musicosa/internal/timecode"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "musicosa.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedBasics(t *testing.T, st *store.Store) {
	t.Helper()
	err := st.Commit(context.Background(), &store.Batch{
		Awards:  []store.Award{{Slug: "best-song", Designation: "Best Song"}},
		Members: []store.Member{{ID: "m1", Name: "Alice"}, {ID: "m2", Name: "Bob"}},
		Entries: []store.Entry{
			{ID: "e1", Title: "One", AuthorID: "m1", Award: "best-song", VideoURL: "https://example.com/1"},
			{ID: "e2", Title: "Two", Nominee: "Band", Award: "best-song"},
		},
		Scores: []store.Score{
			{MemberID: "m1", EntryID: "e1", Value: 8},
			{MemberID: "m2", EntryID: "e1", Value: 6},
			{MemberID: "m1", EntryID: "e2", Value: 9.5},
		},
	})
	if err != nil {
		t.Fatalf("seed commit failed: %v", err)
	}
}

func TestOpenSeedsSettingKeysUnset(t *testing.T) {
	st := openStore(t)
	settings, err := st.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if _, ok := settings[store.KeySignificantDecimalDigits]; !ok {
		t.Fatalf("expected %s to be registered", store.KeySignificantDecimalDigits)
	}
	_, err = settings.Int(store.KeySignificantDecimalDigits)
	if !errors.Is(err, store.ErrSettingNotSet) {
		t.Fatalf("expected ErrSettingNotSet, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), store.KeySignificantDecimalDigits) {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestSecondOpenIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "musicosa.db")
	first, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer first.Close()

	if _, err := store.Open(context.Background(), path); !errors.Is(err, store.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	again, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen after close failed: %v", err)
	}
	_ = again.Close()
}

func TestCommitAndLoadRoundTrip(t *testing.T) {
	st := openStore(t)
	seedBasics(t, st)
	ctx := context.Background()

	received := 8.0
	err := st.Commit(ctx, &store.Batch{
		Avatars:            []store.Avatar{{ID: 1, ImageFilename: "alice.png", ImageHeight: 300, ScoreBoxTop: 10, ScoreBoxLeft: 20, ScoreBoxFontScale: 1.5}},
		Members:            []store.Member{{ID: "m1", Name: "Alice", AvatarID: 1}},
		ReplaceEntryStats:  true,
		EntryStats:         []store.EntryStats{{EntryID: "e1", AvgScore: 7, RankingPlace: 2, RankingSequence: 2}, {EntryID: "e2", AvgScore: 9.5, RankingPlace: 1, RankingSequence: 1}},
		ReplaceMemberStats: true,
		MemberStats:        []store.MemberStats{{MemberID: "m1", AvgGiven: 8.75, AvgReceived: &received}, {MemberID: "m2", AvgGiven: 6}},
		Templates:          []store.Template{{EntryID: "e1", AvatarScale: 1, VideoBoxWidth: 640, VideoBoxHeight: 360, VideoBoxTop: 100, VideoBoxLeft: 50}},
		VideoOptions:       []store.VideoOptions{{EntryID: "e1", Start: timecode.FromSeconds(60), End: timecode.FromSeconds(90)}},
		Metadata:           map[string]string{store.MetadataEdition: "2024"},
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.Members) != 2 || len(snap.Entries) != 2 || len(snap.Scores) != 3 {
		t.Fatalf("unexpected snapshot sizes: %d members %d entries %d scores", len(snap.Members), len(snap.Entries), len(snap.Scores))
	}
	if snap.Members[0].Name != "Alice" || snap.Members[0].AvatarID != 1 {
		t.Fatalf("unexpected member: %+v", snap.Members[0])
	}
	if snap.Entries[1].Nominee != "Band" || snap.Entries[1].AuthorID != "" {
		t.Fatalf("unexpected entry: %+v", snap.Entries[1])
	}
	if len(snap.EntryStats) != 2 || len(snap.MemberStats) != 2 {
		t.Fatalf("unexpected stats sizes: %d %d", len(snap.EntryStats), len(snap.MemberStats))
	}
	for _, ms := range snap.MemberStats {
		if ms.MemberID == "m2" && ms.AvgReceived != nil {
			t.Fatalf("expected nil received average for m2, got %v", *ms.AvgReceived)
		}
	}
	if len(snap.VideoOptions) != 1 || snap.VideoOptions[0].Start.Seconds() != 60 || snap.VideoOptions[0].End.Seconds() != 90 {
		t.Fatalf("unexpected video options: %+v", snap.VideoOptions)
	}
	if snap.Metadata[store.MetadataEdition] != "2024" {
		t.Fatalf("unexpected metadata: %v", snap.Metadata)
	}

	// Stage 1 re-runs must not drop avatar pairings.
	if err := st.Commit(ctx, &store.Batch{Members: []store.Member{{ID: "m1", Name: "Alice"}}}); err != nil {
		t.Fatalf("member upsert failed: %v", err)
	}
	snap, _ = st.Load(ctx)
	if snap.Members[0].AvatarID != 1 {
		t.Fatalf("expected avatar pairing to survive upsert, got %+v", snap.Members[0])
	}
}

func TestReplaceEntryStatsDropsStaleRows(t *testing.T) {
	st := openStore(t)
	seedBasics(t, st)
	ctx := context.Background()

	if err := st.Commit(ctx, &store.Batch{ReplaceEntryStats: true, EntryStats: []store.EntryStats{{EntryID: "e1"}, {EntryID: "e2"}}}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := st.Commit(ctx, &store.Batch{ReplaceEntryStats: true, EntryStats: []store.EntryStats{{EntryID: "e2", RankingPlace: 1, RankingSequence: 1}}}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.EntryStats) != 1 || snap.EntryStats[0].EntryID != "e2" {
		t.Fatalf("expected only e2 stats, got %+v", snap.EntryStats)
	}
}

func TestCommitRollsBackWholeBatch(t *testing.T) {
	st := openStore(t)
	seedBasics(t, st)
	ctx := context.Background()

	err := st.Commit(ctx, &store.Batch{
		Members: []store.Member{{ID: "m3", Name: "Carol"}},
		Scores:  []store.Score{{MemberID: "m3", EntryID: "missing-entry", Value: 5}},
	})
	if !errors.Is(err, store.ErrCommit) {
		t.Fatalf("expected ErrCommit, got %v", err)
	}
	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, m := range snap.Members {
		if m.Name == "Carol" {
			t.Fatal("expected member insert to be rolled back")
		}
	}
}

func TestSetSettingValidatesType(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	if _, err := st.SetSetting(ctx, store.KeySignificantDecimalDigits, "two"); !errors.Is(err, store.ErrSettingType) {
		t.Fatalf("expected ErrSettingType, got %v", err)
	}
	if _, err := st.SetSetting(ctx, "nope.key", "1"); !errors.Is(err, store.ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
	if _, err := st.SetSetting(ctx, "width_px", "1"); err == nil || !strings.Contains(err.Error(), "group.name") {
		t.Fatalf("expected malformed key to be rejected, got %v", err)
	}
	if _, err := st.SetSetting(ctx, store.KeyScoreMaxValue, "10,5"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	settings, err := st.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if v, err := settings.Float(store.KeyScoreMaxValue); err != nil || v != 10.5 {
		t.Fatalf("unexpected max score: %v %v", v, err)
	}
}

func TestRankingsOrderedByPlace(t *testing.T) {
	st := openStore(t)
	seedBasics(t, st)
	ctx := context.Background()
	if err := st.Commit(ctx, &store.Batch{ReplaceEntryStats: true, EntryStats: []store.EntryStats{
		{EntryID: "e1", AvgScore: 7, RankingPlace: 2, RankingSequence: 2},
		{EntryID: "e2", AvgScore: 9.5, RankingPlace: 1, RankingSequence: 1},
	}}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	rankings, err := st.Rankings(ctx, "best-song")
	if err != nil {
		t.Fatalf("Rankings failed: %v", err)
	}
	if len(rankings) != 2 || rankings[0].Entry.ID != "e2" || rankings[1].Stats.RankingPlace != 2 {
		t.Fatalf("unexpected rankings: %+v", rankings)
	}
}

func TestMetadataRejectsUnknownField(t *testing.T) {
	st := openStore(t)
	if err := st.SetMetadata(context.Background(), "colour", "blue"); err == nil {
		t.Fatal("expected unknown field error")
	}
	if err := st.SetMetadata(context.Background(), store.MetadataTopic, " Music "); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	meta, err := st.Metadata(context.Background())
	if err != nil || meta[store.MetadataTopic] != "Music" {
		t.Fatalf("unexpected metadata: %v %v", meta, err)
	}
}
