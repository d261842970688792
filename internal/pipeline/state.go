package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"musicosa/internal/fulfillment"
	"musicosa/internal/services"
	"musicosa/internal/store"
	"musicosa/internal/submissions"
)

// Committer persists a batch atomically.
type Committer interface {
	Commit(ctx context.Context, b *store.Batch) error
}

// State is the run's view of the persisted records plus whatever the stages
// produced since the last checkpoint.
type State struct {
	Metadata     map[string]string
	Settings     store.Settings
	Avatars      []store.Avatar
	Members      []store.Member
	MemberStats  []store.MemberStats
	Awards       []store.Award
	Entries      []store.Entry
	Scores       []store.Score
	EntryStats   []store.EntryStats
	Templates    []store.Template
	VideoOptions []store.VideoOptions

	memberByName map[string]string
	entryByID    map[string]int

	pending store.Batch
}

// NewState hydrates a state from a store snapshot. A nil snapshot gives an
// empty state.
func NewState(snap *store.Snapshot) *State {
	s := &State{Metadata: map[string]string{}, Settings: store.Settings{}}
	if snap != nil {
		if snap.Metadata != nil {
			s.Metadata = snap.Metadata
		}
		if snap.Settings != nil {
			s.Settings = snap.Settings
		}
		s.Avatars = snap.Avatars
		s.Members = snap.Members
		s.MemberStats = snap.MemberStats
		s.Awards = snap.Awards
		s.Entries = snap.Entries
		s.Scores = snap.Scores
		s.EntryStats = snap.EntryStats
		s.Templates = snap.Templates
		s.VideoOptions = snap.VideoOptions
	}
	s.reindex()
	return s
}

func (s *State) reindex() {
	s.memberByName = make(map[string]string, len(s.Members))
	for _, m := range s.Members {
		s.memberByName[m.Name] = m.ID
	}
	s.entryByID = make(map[string]int, len(s.Entries))
	for i, e := range s.Entries {
		s.entryByID[e.ID] = i
	}
}

// MemberID resolves a member name.
func (s *State) MemberID(name string) (string, bool) {
	id, ok := s.memberByName[name]
	return id, ok
}

// Entry returns the entry with the given id.
func (s *State) Entry(id string) (store.Entry, bool) {
	i, ok := s.entryByID[id]
	if !ok {
		return store.Entry{}, false
	}
	return s.Entries[i], true
}

// Pending returns the records waiting for the next checkpoint.
func (s *State) Pending() *store.Batch {
	return &s.pending
}

// Checkpoint commits the pending records in one transaction and clears them.
// A failed commit leaves the pending records in place and is fatal.
func (s *State) Checkpoint(ctx context.Context, c Committer, stage string) (int, error) {
	if s.pending.Empty() {
		return 0, nil
	}
	size := s.pending.Size()
	if err := c.Commit(ctx, &s.pending); err != nil {
		return 0, services.Wrap(services.ErrPersistence, stage, "checkpoint", "transaction rolled back", err)
	}
	s.pending = store.Batch{}
	return size, nil
}

// RegisterSubmissions records the members, entries, scores, and clip windows
// that passed stage 1 validation. Known members keep their avatar.
func (s *State) RegisterSubmissions(out submissions.Output) {
	for _, m := range out.Members {
		if id, ok := s.memberByName[m.Name]; ok && id == m.ID {
			if i := slices.IndexFunc(s.Members, func(x store.Member) bool { return x.ID == id }); i >= 0 {
				m.AvatarID = s.Members[i].AvatarID
			}
		}
		s.Members = upsert(s.Members, m, func(x store.Member) string { return x.ID })
		s.memberByName[m.Name] = m.ID
		s.pending.Members = append(s.pending.Members, m)
	}
	for _, e := range out.Entries {
		s.Entries = upsert(s.Entries, e, func(x store.Entry) string { return x.ID })
		s.pending.Entries = append(s.pending.Entries, e)
	}
	s.reindex()
	for _, sc := range out.Scores {
		s.Scores = upsert(s.Scores, sc, func(x store.Score) string { return x.MemberID + "\x00" + x.EntryID })
		s.pending.Scores = append(s.pending.Scores, sc)
	}
	for _, v := range out.VideoOptions {
		s.VideoOptions = upsert(s.VideoOptions, v, func(x store.VideoOptions) string { return x.EntryID })
		s.pending.VideoOptions = append(s.pending.VideoOptions, v)
	}
}

// RegisterRanking replaces every entry and member stat. Stats naming an
// unknown entry are rejected before anything changes.
func (s *State) RegisterRanking(entries []store.EntryStats, members []store.MemberStats) error {
	for _, st := range entries {
		if _, ok := s.entryByID[st.EntryID]; !ok {
			return fmt.Errorf("ranking produced stats for unknown entry %s", st.EntryID)
		}
	}
	s.EntryStats = append([]store.EntryStats(nil), entries...)
	s.MemberStats = append([]store.MemberStats(nil), members...)
	s.pending.ReplaceEntryStats = true
	s.pending.EntryStats = s.EntryStats
	s.pending.ReplaceMemberStats = true
	s.pending.MemberStats = s.MemberStats
	return nil
}

// RegisterFulfillment records what the operator supplied during stage 3.
func (s *State) RegisterFulfillment(out fulfillment.Output) {
	for _, setting := range out.Settings {
		s.Settings[setting.Key()] = setting
		s.pending.Settings = append(s.pending.Settings, setting)
	}
	for _, a := range out.Avatars {
		s.Avatars = upsert(s.Avatars, a, func(x store.Avatar) string { return fmt.Sprint(x.ID) })
		s.pending.Avatars = append(s.pending.Avatars, a)
	}
	for _, m := range out.Members {
		s.Members = upsert(s.Members, m, func(x store.Member) string { return x.ID })
		s.pending.Members = append(s.pending.Members, m)
	}
	for _, t := range out.Templates {
		s.Templates = upsert(s.Templates, t, func(x store.Template) string { return x.EntryID })
		s.pending.Templates = append(s.pending.Templates, t)
	}
	for _, v := range out.VideoOptions {
		s.VideoOptions = upsert(s.VideoOptions, v, func(x store.VideoOptions) string { return x.EntryID })
		s.pending.VideoOptions = append(s.pending.VideoOptions, v)
	}
	s.reindex()
}

// Sequence returns the ranking sequence of an entry, zero when unranked.
func (s *State) Sequence(entryID string) int {
	for _, st := range s.EntryStats {
		if st.EntryID == entryID {
			return st.RankingSequence
		}
	}
	return 0
}

// TemplatedEntries returns the entries that have a template, in award order
// then by descending sequence.
func (s *State) TemplatedEntries() []store.Entry {
	has := make(map[string]bool, len(s.Templates))
	for _, t := range s.Templates {
		has[t.EntryID] = true
	}
	var out []store.Entry
	for _, e := range s.orderedEntries() {
		if has[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// orderedEntries sorts entries by award registration order, then by
// descending ranking sequence, then by title.
func (s *State) orderedEntries() []store.Entry {
	awardIndex := make(map[string]int, len(s.Awards))
	for i, a := range s.Awards {
		awardIndex[a.Slug] = i
	}
	seq := make(map[string]int, len(s.EntryStats))
	for _, st := range s.EntryStats {
		seq[st.EntryID] = st.RankingSequence
	}
	out := append([]store.Entry(nil), s.Entries...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := awardIndex[out[i].Award], awardIndex[out[j].Award]
		if ai != aj {
			return ai < aj
		}
		if seq[out[i].ID] != seq[out[j].ID] {
			return seq[out[i].ID] > seq[out[j].ID]
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func upsert[T any](items []T, item T, key func(T) string) []T {
	k := key(item)
	if i := slices.IndexFunc(items, func(x T) bool { return key(x) == k }); i >= 0 {
		items[i] = item
		return items
	}
	return append(items, item)
}
