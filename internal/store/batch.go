package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrCommit marks a failed batch commit. Nothing from the batch was written.
var ErrCommit = errors.New("commit failed")

// Batch groups the records one stage hands over for persistence. Rows are
// upserted by primary key. Entry and member stats are replaced wholesale when
// the matching Replace flag is set.
type Batch struct {
	Metadata map[string]string
	Settings []Setting
	Avatars  []Avatar
	Members  []Member
	Awards   []Award
	Entries  []Entry
	Scores   []Score

	ReplaceEntryStats  bool
	EntryStats         []EntryStats
	ReplaceMemberStats bool
	MemberStats        []MemberStats

	Templates    []Template
	VideoOptions []VideoOptions
}

// Empty reports whether the batch carries no work.
func (b *Batch) Empty() bool {
	if b == nil {
		return true
	}
	return len(b.Metadata) == 0 && len(b.Settings) == 0 && len(b.Avatars) == 0 &&
		len(b.Members) == 0 && len(b.Awards) == 0 && len(b.Entries) == 0 &&
		len(b.Scores) == 0 && !b.ReplaceEntryStats && len(b.EntryStats) == 0 &&
		!b.ReplaceMemberStats && len(b.MemberStats) == 0 &&
		len(b.Templates) == 0 && len(b.VideoOptions) == 0
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Metadata) + len(b.Settings) + len(b.Avatars) + len(b.Members) +
		len(b.Awards) + len(b.Entries) + len(b.Scores) + len(b.EntryStats) +
		len(b.MemberStats) + len(b.Templates) + len(b.VideoOptions)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Commit writes the batch inside a single transaction. Any failure rolls the
// whole batch back and is reported wrapped in ErrCommit.
func (s *Store) Commit(ctx context.Context, b *Batch) error {
	if b.Empty() {
		return nil
	}
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := writeBatch(ctx, tx, b); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	return nil
}

func writeBatch(ctx context.Context, tx execer, b *Batch) error {
	for _, field := range MetadataFields {
		value, ok := b.Metadata[field]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (field, value) VALUES (?, ?)
			ON CONFLICT(field) DO UPDATE SET value = excluded.value`, field, value); err != nil {
			return fmt.Errorf("metadata %s: %w", field, err)
		}
	}
	for _, setting := range b.Settings {
		if _, err := tx.ExecContext(ctx, `INSERT INTO settings (group_key, setting, type, value) VALUES (?, ?, ?, ?)
			ON CONFLICT(group_key, setting) DO UPDATE SET type = excluded.type, value = excluded.value`,
			setting.Group, setting.Name, string(setting.Type), ptrToNullable(setting.Value)); err != nil {
			return fmt.Errorf("setting %s: %w", setting.Key(), err)
		}
	}
	for _, a := range b.Avatars {
		if _, err := tx.ExecContext(ctx, `INSERT INTO avatars (id, image_filename, image_height, score_box_position_top,
			score_box_position_left, score_box_font_scale, score_box_font_color) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET image_filename = excluded.image_filename, image_height = excluded.image_height,
			score_box_position_top = excluded.score_box_position_top, score_box_position_left = excluded.score_box_position_left,
			score_box_font_scale = excluded.score_box_font_scale, score_box_font_color = excluded.score_box_font_color`,
			a.ID, a.ImageFilename, a.ImageHeight, a.ScoreBoxTop, a.ScoreBoxLeft, a.ScoreBoxFontScale, nullableString(a.ScoreBoxFontColor)); err != nil {
			return fmt.Errorf("avatar %d: %w", a.ID, err)
		}
	}
	for _, m := range b.Members {
		if _, err := tx.ExecContext(ctx, `INSERT INTO members (id, name, avatar) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, avatar = COALESCE(excluded.avatar, members.avatar)`,
			m.ID, m.Name, nullableInt(m.AvatarID)); err != nil {
			return fmt.Errorf("member %s: %w", m.Name, err)
		}
	}
	for _, a := range b.Awards {
		if _, err := tx.ExecContext(ctx, `INSERT INTO awards (slug, designation) VALUES (?, ?)
			ON CONFLICT(slug) DO UPDATE SET designation = excluded.designation`, a.Slug, a.Designation); err != nil {
			return fmt.Errorf("award %s: %w", a.Slug, err)
		}
	}
	for _, e := range b.Entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO entries (id, title, nominee, author, award, video_url) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title, nominee = excluded.nominee, author = excluded.author,
			award = excluded.award, video_url = excluded.video_url`,
			e.ID, e.Title, nullableString(e.Nominee), nullableString(e.AuthorID), e.Award, nullableString(e.VideoURL)); err != nil {
			return fmt.Errorf("entry %s: %w", e.Title, err)
		}
	}
	for _, sc := range b.Scores {
		if _, err := tx.ExecContext(ctx, `INSERT INTO scores (member, entry, value) VALUES (?, ?, ?)
			ON CONFLICT(member, entry) DO UPDATE SET value = excluded.value`, sc.MemberID, sc.EntryID, sc.Value); err != nil {
			return fmt.Errorf("score %s/%s: %w", sc.MemberID, sc.EntryID, err)
		}
	}
	if b.ReplaceEntryStats {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_stats"); err != nil {
			return fmt.Errorf("clear entry stats: %w", err)
		}
	}
	for _, st := range b.EntryStats {
		if _, err := tx.ExecContext(ctx, `INSERT INTO entry_stats (entry, avg_score, ranking_place, ranking_sequence) VALUES (?, ?, ?, ?)
			ON CONFLICT(entry) DO UPDATE SET avg_score = excluded.avg_score, ranking_place = excluded.ranking_place,
			ranking_sequence = excluded.ranking_sequence`, st.EntryID, st.AvgScore, st.RankingPlace, st.RankingSequence); err != nil {
			return fmt.Errorf("entry stats %s: %w", st.EntryID, err)
		}
	}
	if b.ReplaceMemberStats {
		if _, err := tx.ExecContext(ctx, "DELETE FROM member_stats"); err != nil {
			return fmt.Errorf("clear member stats: %w", err)
		}
	}
	for _, st := range b.MemberStats {
		if _, err := tx.ExecContext(ctx, `INSERT INTO member_stats (member, avg_given_score, avg_received_score) VALUES (?, ?, ?)
			ON CONFLICT(member) DO UPDATE SET avg_given_score = excluded.avg_given_score,
			avg_received_score = excluded.avg_received_score`, st.MemberID, st.AvgGiven, nullableFloat(st.AvgReceived)); err != nil {
			return fmt.Errorf("member stats %s: %w", st.MemberID, err)
		}
	}
	for _, t := range b.Templates {
		if _, err := tx.ExecContext(ctx, `INSERT INTO templates (entry, avatar_scale, video_box_width_px, video_box_height_px,
			video_box_position_top_px, video_box_position_left_px) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(entry) DO UPDATE SET avatar_scale = excluded.avatar_scale, video_box_width_px = excluded.video_box_width_px,
			video_box_height_px = excluded.video_box_height_px, video_box_position_top_px = excluded.video_box_position_top_px,
			video_box_position_left_px = excluded.video_box_position_left_px`,
			t.EntryID, t.AvatarScale, t.VideoBoxWidth, t.VideoBoxHeight, t.VideoBoxTop, t.VideoBoxLeft); err != nil {
			return fmt.Errorf("template %s: %w", t.EntryID, err)
		}
	}
	for _, v := range b.VideoOptions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO video_options (entry, timestamp_start, timestamp_end) VALUES (?, ?, ?)
			ON CONFLICT(entry) DO UPDATE SET timestamp_start = excluded.timestamp_start, timestamp_end = excluded.timestamp_end`,
			v.EntryID, v.Start.String(), v.End.String()); err != nil {
			return fmt.Errorf("video options %s: %w", v.EntryID, err)
		}
	}
	return nil
}
