package store

import (
	"context"
	"database/sql"
	"fmt"

	"musicosa/internal/timecode"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Snapshot is the full persisted state read at the start of a run.
type Snapshot struct {
	Metadata     map[string]string
	Settings     Settings
	Avatars      []Avatar
	Members      []Member
	MemberStats  []MemberStats
	Awards       []Award
	Entries      []Entry
	Scores       []Score
	EntryStats   []EntryStats
	Templates    []Template
	VideoOptions []VideoOptions
}

// Load reads every table into a Snapshot.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	ctx = ensureContext(ctx)
	snap := &Snapshot{}
	var err error
	if snap.Metadata, err = loadMetadata(ctx, s.db); err != nil {
		return nil, err
	}
	if snap.Settings, err = loadSettings(ctx, s.db); err != nil {
		return nil, err
	}
	loaders := []struct {
		name string
		load func() error
	}{
		{"avatars", func() (err error) { snap.Avatars, err = loadAvatars(ctx, s.db); return }},
		{"members", func() (err error) { snap.Members, err = loadMembers(ctx, s.db); return }},
		{"member_stats", func() (err error) { snap.MemberStats, err = loadMemberStats(ctx, s.db); return }},
		{"awards", func() (err error) { snap.Awards, err = s.Awards(ctx); return }},
		{"entries", func() (err error) { snap.Entries, err = loadEntries(ctx, s.db); return }},
		{"scores", func() (err error) { snap.Scores, err = loadScores(ctx, s.db); return }},
		{"entry_stats", func() (err error) { snap.EntryStats, err = loadEntryStats(ctx, s.db); return }},
		{"templates", func() (err error) { snap.Templates, err = loadTemplates(ctx, s.db); return }},
		{"video_options", func() (err error) { snap.VideoOptions, err = loadVideoOptions(ctx, s.db); return }},
	}
	for _, l := range loaders {
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("load %s: %w", l.name, err)
		}
	}
	return snap, nil
}

// collect runs query and scans each row with scan.
func collect[T any](ctx context.Context, q queryer, query string, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func loadMetadata(ctx context.Context, q queryer) (map[string]string, error) {
	type pair struct{ field, value string }
	pairs, err := collect(ctx, q, "SELECT field, value FROM metadata", func(sc scanner) (pair, error) {
		var p pair
		return p, sc.Scan(&p.field, &p.value)
	})
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.field] = p.value
	}
	return out, nil
}

func loadSettings(ctx context.Context, q queryer) (Settings, error) {
	rows, err := collect(ctx, q, "SELECT group_key, setting, type, value FROM settings", func(sc scanner) (Setting, error) {
		var (
			setting Setting
			kind    string
			value   sql.NullString
		)
		if err := sc.Scan(&setting.Group, &setting.Name, &kind, &value); err != nil {
			return Setting{}, err
		}
		setting.Type = SettingType(kind)
		setting.Value = nullableToPtr(value)
		return setting, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	out := make(Settings, len(rows))
	for _, setting := range rows {
		out[setting.Key()] = setting
	}
	return out, nil
}

func loadAvatars(ctx context.Context, q queryer) ([]Avatar, error) {
	return collect(ctx, q, `SELECT id, image_filename, image_height, score_box_position_top,
		score_box_position_left, score_box_font_scale, score_box_font_color FROM avatars ORDER BY id`,
		func(sc scanner) (Avatar, error) {
			var (
				a     Avatar
				color sql.NullString
			)
			err := sc.Scan(&a.ID, &a.ImageFilename, &a.ImageHeight, &a.ScoreBoxTop, &a.ScoreBoxLeft, &a.ScoreBoxFontScale, &color)
			a.ScoreBoxFontColor = color.String
			return a, err
		})
}

func loadMembers(ctx context.Context, q queryer) ([]Member, error) {
	return collect(ctx, q, "SELECT id, name, avatar FROM members ORDER BY name", func(sc scanner) (Member, error) {
		var (
			m      Member
			avatar sql.NullInt64
		)
		err := sc.Scan(&m.ID, &m.Name, &avatar)
		m.AvatarID = avatar.Int64
		return m, err
	})
}

func loadMemberStats(ctx context.Context, q queryer) ([]MemberStats, error) {
	return collect(ctx, q, "SELECT member, avg_given_score, avg_received_score FROM member_stats", func(sc scanner) (MemberStats, error) {
		var (
			m        MemberStats
			given    sql.NullFloat64
			received sql.NullFloat64
		)
		err := sc.Scan(&m.MemberID, &given, &received)
		m.AvgGiven = given.Float64
		if received.Valid {
			v := received.Float64
			m.AvgReceived = &v
		}
		return m, err
	})
}

// Awards returns every award ordered by slug.
func (s *Store) Awards(ctx context.Context) ([]Award, error) {
	return collect(ensureContext(ctx), s.db, "SELECT slug, designation FROM awards ORDER BY slug", func(sc scanner) (Award, error) {
		var a Award
		return a, sc.Scan(&a.Slug, &a.Designation)
	})
}

func loadEntries(ctx context.Context, q queryer) ([]Entry, error) {
	return collect(ctx, q, "SELECT id, title, nominee, author, award, video_url FROM entries ORDER BY award, title", scanEntry)
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e                         Entry
		nominee, author, videoURL sql.NullString
	)
	err := sc.Scan(&e.ID, &e.Title, &nominee, &author, &e.Award, &videoURL)
	e.Nominee = nominee.String
	e.AuthorID = author.String
	e.VideoURL = videoURL.String
	return e, err
}

func loadScores(ctx context.Context, q queryer) ([]Score, error) {
	return collect(ctx, q, "SELECT member, entry, value FROM scores ORDER BY entry, member", func(sc scanner) (Score, error) {
		var s Score
		return s, sc.Scan(&s.MemberID, &s.EntryID, &s.Value)
	})
}

func loadEntryStats(ctx context.Context, q queryer) ([]EntryStats, error) {
	return collect(ctx, q, `SELECT entry, COALESCE(avg_score, 0), COALESCE(ranking_place, 0), COALESCE(ranking_sequence, 0)
		FROM entry_stats`, func(sc scanner) (EntryStats, error) {
		var s EntryStats
		return s, sc.Scan(&s.EntryID, &s.AvgScore, &s.RankingPlace, &s.RankingSequence)
	})
}

func loadTemplates(ctx context.Context, q queryer) ([]Template, error) {
	return collect(ctx, q, `SELECT entry, avatar_scale, video_box_width_px, video_box_height_px,
		video_box_position_top_px, video_box_position_left_px FROM templates`, func(sc scanner) (Template, error) {
		var t Template
		return t, sc.Scan(&t.EntryID, &t.AvatarScale, &t.VideoBoxWidth, &t.VideoBoxHeight, &t.VideoBoxTop, &t.VideoBoxLeft)
	})
}

func loadVideoOptions(ctx context.Context, q queryer) ([]VideoOptions, error) {
	return collect(ctx, q, "SELECT entry, timestamp_start, timestamp_end FROM video_options", func(sc scanner) (VideoOptions, error) {
		var (
			v          VideoOptions
			start, end string
		)
		if err := sc.Scan(&v.EntryID, &start, &end); err != nil {
			return v, err
		}
		var err error
		if v.Start, err = timecode.Parse(start); err != nil {
			return v, fmt.Errorf("entry %s start: %w", v.EntryID, err)
		}
		if v.End, err = timecode.Parse(end); err != nil {
			return v, fmt.Errorf("entry %s end: %w", v.EntryID, err)
		}
		return v, nil
	})
}

// Rankings joins entries with their stats, best first within each award.
func (s *Store) Rankings(ctx context.Context, award string) ([]Ranking, error) {
	query := `SELECT e.id, e.title, e.nominee, e.author, e.award, e.video_url,
		st.avg_score, st.ranking_place, st.ranking_sequence
		FROM entries e JOIN entry_stats st ON st.entry = e.id`
	args := []any{}
	if award != "" {
		query += " WHERE e.award = ?"
		args = append(args, award)
	}
	query += " ORDER BY e.award, st.ranking_place, st.ranking_sequence"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rankings: %w", err)
	}
	defer rows.Close()
	var out []Ranking
	for rows.Next() {
		var (
			r                         Ranking
			nominee, author, videoURL sql.NullString
			avg                       sql.NullFloat64
			place, seq                sql.NullInt64
		)
		if err := rows.Scan(&r.Entry.ID, &r.Entry.Title, &nominee, &author, &r.Entry.Award, &videoURL, &avg, &place, &seq); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		r.Entry.Nominee = nominee.String
		r.Entry.AuthorID = author.String
		r.Entry.VideoURL = videoURL.String
		r.Stats = EntryStats{EntryID: r.Entry.ID, AvgScore: avg.Float64, RankingPlace: int(place.Int64), RankingSequence: int(seq.Int64)}
		out = append(out, r)
	}
	return out, rows.Err()
}
