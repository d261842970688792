package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"musicosa/internal/store"
	"musicosa/internal/timecode"
)

// ErrNoEntries is returned when there is nothing to fulfil against.
var ErrNoEntries = errors.New("no entries loaded")

var (
	scalePattern = regexp.MustCompile(`^\d+([.]\d+)?$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

const newAvatar = "new"

// Input is the state stage 3 completes.
type Input struct {
	Settings     store.Settings
	Avatars      []store.Avatar
	Members      []store.Member
	Awards       []store.Award
	Entries      []store.Entry
	EntryStats   []store.EntryStats
	Templates    []store.Template
	VideoOptions []store.VideoOptions
}

// Output holds only what was asked for during this run.
type Output struct {
	Settings     []store.Setting
	Avatars      []store.Avatar
	Members      []store.Member
	Templates    []store.Template
	VideoOptions []store.VideoOptions
}

// Empty reports whether nothing had to be asked.
func (o Output) Empty() bool {
	return len(o.Settings) == 0 && len(o.Avatars) == 0 && len(o.Members) == 0 &&
		len(o.Templates) == 0 && len(o.VideoOptions) == 0
}

// Fulfill asks for every missing value. The clip duration setting must be set.
func Fulfill(ctx context.Context, p *Prompter, in Input) (Output, error) {
	duration, err := in.Settings.Int(store.KeyEntryVideoDuration)
	if err != nil {
		return Output{}, err
	}
	if len(in.Entries) == 0 {
		return Output{}, ErrNoEntries
	}

	f := &fulfiller{ctx: ctx, p: p, settings: in.Settings}
	steps := []func(Input) error{
		f.avatarPairings,
		f.frameSettings,
		f.templates,
		f.generationSettings,
		func(in Input) error { return f.videoOptions(in, duration) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		if err := step(in); err != nil {
			return Output{}, err
		}
	}
	return f.out, nil
}

type fulfiller struct {
	ctx      context.Context
	p        *Prompter
	settings store.Settings
	out      Output
}

func (f *fulfiller) ask(label string, validate func(string) error, def string) (string, error) {
	if err := f.ctx.Err(); err != nil {
		return "", err
	}
	return f.p.Ask(label, validate, def)
}

func (f *fulfiller) section(title string) {
	f.p.Printf("")
	f.p.Printf(".: %s :.", title)
	f.p.Printf("")
}

func (f *fulfiller) avatarPairings(in Input) error {
	f.section("AVATAR PAIRINGS")
	var unpaired []store.Member
	for _, m := range in.Members {
		if m.AvatarID == 0 {
			unpaired = append(unpaired, m)
		}
	}
	if len(unpaired) == 0 {
		f.p.Printf("All members have an avatar ✔")
		return nil
	}

	avatars := slices.Clone(in.Avatars)
	var nextID int64 = 1
	for _, a := range avatars {
		nextID = max(nextID, a.ID+1)
	}
	for _, m := range unpaired {
		f.p.Printf("Member '%s' has no avatar", m.Name)
		for _, a := range avatars {
			f.p.Printf("%s[%d] %s", indent, a.ID, a.ImageFilename)
		}
		choice, err := f.ask("Avatar id (or 'new')", func(v string) error {
			if strings.EqualFold(v, newAvatar) {
				return nil
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || !slices.ContainsFunc(avatars, func(a store.Avatar) bool { return a.ID == id }) {
				return fmt.Errorf("invalid avatar '%s' (use a listed id or 'new')", v)
			}
			return nil
		}, "")
		if err != nil {
			return err
		}
		var id int64
		if strings.EqualFold(choice, newAvatar) {
			avatar, err := f.newAvatar(nextID)
			if err != nil {
				return err
			}
			avatars = append(avatars, avatar)
			f.out.Avatars = append(f.out.Avatars, avatar)
			id = avatar.ID
			nextID++
		} else {
			id, _ = strconv.ParseInt(choice, 10, 64)
		}
		m.AvatarID = id
		f.out.Members = append(f.out.Members, m)
	}
	return nil
}

func (f *fulfiller) newAvatar(id int64) (store.Avatar, error) {
	a := store.Avatar{ID: id}
	filename, err := f.ask("Image filename", func(v string) error {
		if v == "" {
			return errors.New("image filename must not be empty")
		}
		return nil
	}, "")
	if err != nil {
		return a, err
	}
	a.ImageFilename = filename
	if a.ImageHeight, err = f.askInt("Image height (px)", 1, ""); err != nil {
		return a, err
	}
	if a.ScoreBoxTop, err = f.askInt("Score box top position (px)", 0, ""); err != nil {
		return a, err
	}
	if a.ScoreBoxLeft, err = f.askInt("Score box left position (px)", 0, ""); err != nil {
		return a, err
	}
	scale, err := f.ask("Score box font scale (factor)", validateScale, "")
	if err != nil {
		return a, err
	}
	a.ScoreBoxFontScale, _ = strconv.ParseFloat(scale, 64)
	color, err := f.ask("Score box font color (#RRGGBB, empty for default)", func(v string) error {
		if v != "" && !colorPattern.MatchString(v) {
			return fmt.Errorf("invalid color '%s' (must look like #RRGGBB)", v)
		}
		return nil
	}, "")
	if err != nil {
		return a, err
	}
	a.ScoreBoxFontColor = color
	return a, nil
}

func (f *fulfiller) askInt(label string, minimum int, def string) (int, error) {
	raw, err := f.ask(label, func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < minimum {
			if minimum > 0 {
				return fmt.Errorf("invalid value '%s' (must be a positive number)", v)
			}
			return fmt.Errorf("invalid value '%s' (must be a non-negative number)", v)
		}
		return nil
	}, def)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(raw)
	return n, nil
}

func validateScale(v string) error {
	if !scalePattern.MatchString(v) {
		return fmt.Errorf("invalid scale factor '%s' (must be a numeric factor)", v)
	}
	return nil
}

// setInt asks for an integer setting unless it is already set.
func (f *fulfiller) setInt(key, label string, minimum int) error {
	if f.settings.IsSet(key) {
		f.p.Printf("%s set ✔", key)
		return nil
	}
	f.p.Printf("%s not set...", key)
	n, err := f.askInt(label, minimum, "")
	if err != nil {
		return err
	}
	updated, setting, err := f.settings.With(key, strconv.Itoa(n))
	if err != nil {
		return err
	}
	f.settings = updated
	f.out.Settings = append(f.out.Settings, setting)
	return nil
}

func (f *fulfiller) frameSettings(Input) error {
	f.section("FRAME SETTINGS")
	if err := f.setInt(store.KeyFrameWidth, "Width of the frame where assets get rendered (px)", 1); err != nil {
		return err
	}
	return f.setInt(store.KeyFrameHeight, "Height of the frame where assets get rendered (px)", 1)
}

func (f *fulfiller) generationSettings(Input) error {
	f.section("GENERATION SETTINGS")
	if err := f.setInt(store.KeyVideoclipsOverrideTopN, "Top N entries whose clips use the override duration (0 disables)", 0); err != nil {
		return err
	}
	return f.setInt(store.KeyVideoclipsOverrideUpToXSecs, "Override clip duration in seconds (0 plays the whole clip)", 0)
}

// templateDefaults carries the last answers into the next selection.
type templateDefaults struct {
	scale, width, height, top, left string
}

func (f *fulfiller) templates(in Input) error {
	f.section("ENTRY TEMPLATES")
	pending := pendingByAward(in)
	if len(pending) == 0 {
		f.p.Printf("All entries have a template assigned ✔")
		return nil
	}

	var defaults templateDefaults
	for _, award := range awardOrder(in.Awards, pending) {
		index := pending[award]
		numbers := make([]int, 0, len(index))
		for seq := range index {
			numbers = append(numbers, seq)
		}
		sort.Ints(numbers)
		f.p.Printf("[%s] Missing entry templates: [%s]", award, FormatSequence(numbers))

		assigned := make(map[int]store.Template, len(numbers))
		for len(assigned) < len(numbers) {
			var remaining []int
			for _, n := range numbers {
				if _, ok := assigned[n]; !ok {
					remaining = append(remaining, n)
				}
			}
			f.p.Printf("")
			f.p.Printf("%d remaining template(s) (%s)", len(remaining), FormatSequence(remaining))

			var selection []int
			_, err := f.ask("Templates selection (seq_num | [start]:[end] | empty to select all remaining)", func(v string) error {
				var perr error
				selection, perr = ParseSelection(v, numbers, remaining)
				return perr
			}, "")
			if err != nil {
				return err
			}

			f.p.Printf("")
			f.p.Printf("Setting values for %d template(s)...", len(selection))
			tmpl, err := f.askTemplate(&defaults)
			if err != nil {
				return err
			}
			for _, seq := range selection {
				t := tmpl
				t.EntryID = index[seq]
				assigned[seq] = t
			}
		}
		for _, n := range numbers {
			f.out.Templates = append(f.out.Templates, assigned[n])
		}
	}
	return nil
}

func (f *fulfiller) askTemplate(d *templateDefaults) (store.Template, error) {
	var t store.Template
	scale, err := f.ask("Avatar scale (factor)", validateScale, d.scale)
	if err != nil {
		return t, err
	}
	d.scale = scale
	t.AvatarScale, _ = strconv.ParseFloat(scale, 64)

	fields := []struct {
		label   string
		minimum int
		def     *string
		dst     *int
	}{
		{"Videoclip width (px)", 1, &d.width, &t.VideoBoxWidth},
		{"Videoclip height (px)", 1, &d.height, &t.VideoBoxHeight},
		{"Videoclip absolute top position (px)", 0, &d.top, &t.VideoBoxTop},
		{"Videoclip absolute left position (px)", 0, &d.left, &t.VideoBoxLeft},
	}
	for _, field := range fields {
		n, err := f.askInt(field.label, field.minimum, *field.def)
		if err != nil {
			return t, err
		}
		*field.def = strconv.Itoa(n)
		*field.dst = n
	}
	return t, nil
}

// pendingByAward maps award slug to sequence number to entry id for ranked
// entries without a template.
func pendingByAward(in Input) map[string]map[int]string {
	hasTemplate := make(map[string]bool, len(in.Templates))
	for _, t := range in.Templates {
		hasTemplate[t.EntryID] = true
	}
	sequence := make(map[string]int, len(in.EntryStats))
	for _, st := range in.EntryStats {
		sequence[st.EntryID] = st.RankingSequence
	}
	out := make(map[string]map[int]string)
	for _, e := range in.Entries {
		seq, ranked := sequence[e.ID]
		if !ranked || hasTemplate[e.ID] {
			continue
		}
		if out[e.Award] == nil {
			out[e.Award] = make(map[int]string)
		}
		out[e.Award][seq] = e.ID
	}
	return out
}

func awardOrder[V any](awards []store.Award, present map[string]V) []string {
	var order []string
	seen := make(map[string]bool)
	for _, a := range awards {
		if _, ok := present[a.Slug]; ok {
			order = append(order, a.Slug)
			seen[a.Slug] = true
		}
	}
	var rest []string
	for slug := range present {
		if !seen[slug] {
			rest = append(rest, slug)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func (f *fulfiller) videoOptions(in Input, duration int) error {
	f.section("VIDEO OPTIONS")
	has := make(map[string]bool, len(in.VideoOptions))
	for _, v := range in.VideoOptions {
		has[v.EntryID] = true
	}
	var missing []store.Entry
	for _, e := range in.Entries {
		if !has[e.ID] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		f.p.Printf("All entries have video options ✔")
		return nil
	}
	f.p.Printf("%d entries without video timestamps (clip length %ds)", len(missing), duration)
	for _, e := range missing {
		label := e.Title
		if e.Nominee != "" {
			label = fmt.Sprintf("%s [%s]", e.Title, e.Nominee)
		}
		f.p.Printf("[%s] %s", e.Award, label)
		var parsed timecode.Range
		_, err := f.ask("Video timestamp ([HH:]MM:SS-[HH:]MM:SS)", func(v string) error {
			var perr error
			parsed, perr = timecode.ParseRange(v, duration)
			return perr
		}, "")
		if err != nil {
			return err
		}
		f.out.VideoOptions = append(f.out.VideoOptions, store.VideoOptions{
			EntryID: e.ID,
			Start:   parsed.Start,
			End:     parsed.End,
		})
	}
	return nil
}
