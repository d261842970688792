package submissions

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"musicosa/internal/identity"
	"musicosa/internal/store"
	"musicosa/internal/timecode"
)

// ErrNoAwards is returned when no award has been registered yet.
var ErrNoAwards = errors.New("no awards registered")

// Input is everything stage 1 validates.
type Input struct {
	Forms    []AwardForm
	Catalog  []CatalogEntry
	Awards   []store.Award
	Members  []store.Member
	Settings store.Settings
}

// Output carries the validation messages and the records that passed.
type Output struct {
	Errors       []string
	Members      []store.Member
	Entries      []store.Entry
	Scores       []store.Score
	VideoOptions []store.VideoOptions
}

// Valid reports whether no validation message was raised.
func (o Output) Valid() bool { return len(o.Errors) == 0 }

type bounds struct {
	min, max float64
	duration int
}

// Validate checks forms and catalog against the registered awards and the
// validation settings. Missing settings or awards are returned as errors;
// data problems end up in Output.Errors.
func Validate(in Input) (Output, error) {
	if len(in.Awards) == 0 {
		return Output{}, ErrNoAwards
	}
	b, err := readBounds(in.Settings, in.Catalog)
	if err != nil {
		return Output{}, err
	}

	v := &validator{
		bounds:   b,
		awards:   make(map[string]bool, len(in.Awards)),
		members:  make(map[string]bool),
		entries:  make(map[string][]CatalogEntry),
		entryIDs: make(map[string]string),
	}
	for _, a := range in.Awards {
		v.awards[a.Slug] = true
	}
	v.validateForms(in.Forms, len(in.Awards))
	for _, m := range in.Members {
		v.registered = append(v.registered, m.Name)
	}
	v.validateMembership()
	v.validateCatalog(in.Catalog)
	v.collectScores(in.Forms)

	names := make([]string, 0, len(v.members))
	for name := range v.members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id, err := identity.MemberID(name)
		if err != nil {
			continue
		}
		v.out.Members = append(v.out.Members, store.Member{ID: id, Name: name})
	}
	return v.out, nil
}

func readBounds(settings store.Settings, catalog []CatalogEntry) (bounds, error) {
	var b bounds
	var err error
	if b.min, err = settings.Float(store.KeyScoreMinValue); err != nil {
		return b, err
	}
	if b.max, err = settings.Float(store.KeyScoreMaxValue); err != nil {
		return b, err
	}
	if b.min > b.max {
		return b, fmt.Errorf("%s (%g) is greater than %s (%g)", store.KeyScoreMinValue, b.min, store.KeyScoreMaxValue, b.max)
	}
	needsDuration := slices.ContainsFunc(catalog, func(e CatalogEntry) bool { return e.VideoTimestamp != "" })
	if needsDuration {
		if b.duration, err = settings.Int(store.KeyEntryVideoDuration); err != nil {
			return b, err
		}
	}
	return b, nil
}

type validator struct {
	bounds     bounds
	awards     map[string]bool
	members    map[string]bool
	registered []string

	// member names per valid form, in row order.
	formMembers map[string][]string
	// indices of forms whose award is registered and not duplicated.
	validForms  []int

	// catalog rows per award, after validation.
	entries  map[string][]CatalogEntry
	entryIDs map[string]string
	out      Output
}

func (v *validator) errorf(format string, args ...any) {
	v.out.Errors = append(v.out.Errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateForms(forms []AwardForm, awardCount int) {
	if len(forms) != awardCount {
		v.errorf("Award form count mismatch (%d) (Should be %d)", len(forms), awardCount)
	}
	v.formMembers = make(map[string][]string)
	seenAward := make(map[string]bool)
	for i, form := range forms {
		if !v.awards[form.Award] {
			v.errorf("[%s] Invalid award slug (no such award registered)", form.Award)
			continue
		}
		if seenAward[form.Award] {
			v.errorf("[%s] Duplicated award form", form.Award)
			continue
		}
		seenAward[form.Award] = true
		v.validForms = append(v.validForms, i)

		seenLabel := make(map[string]bool)
		for _, label := range form.Labels {
			key := strings.ToLower(label.String())
			if label.Title == "" {
				v.errorf("[%s] Entry label with empty title", form.Award)
			} else if seenLabel[key] {
				v.errorf("[%s] Entry '%s' is duplicated", form.Award, label)
			}
			seenLabel[key] = true
		}

		seenMember := make(map[string]bool)
		for _, row := range form.Rows {
			switch {
			case row.Member == "":
				v.errorf("[%s] Line %d: member name is empty", form.Award, row.Line)
			case seenMember[row.Member]:
				v.errorf("[%s] Line %d: member '%s' voted more than once", form.Award, row.Line, row.Member)
			default:
				seenMember[row.Member] = true
				v.members[row.Member] = true
				v.formMembers[form.Award] = append(v.formMembers[form.Award], row.Member)
			}
		}
	}
}

// validateMembership checks that every form lists the same members and that
// previously registered members still vote.
func (v *validator) validateMembership() {
	awards := make([]string, 0, len(v.formMembers))
	for award := range v.formMembers {
		awards = append(awards, award)
	}
	sort.Strings(awards)
	for _, award := range awards {
		present := v.formMembers[award]
		var missing []string
		for member := range v.members {
			if !slices.Contains(present, member) {
				missing = append(missing, member)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			v.errorf("[%s] Members without votes (%d): %s", award, len(missing), strings.Join(missing, ", "))
		}
	}
	for _, name := range v.registered {
		if len(v.members) > 0 && !v.members[name] {
			v.errorf("Registered member '%s' does not appear in any award form", name)
		}
	}
}

func (v *validator) validateCatalog(catalog []CatalogEntry) {
	seen := make(map[string]int)
	for _, row := range catalog {
		prefix := fmt.Sprintf("[entries:%d]", row.Line)
		if !v.awards[row.Award] {
			v.errorf("%s Invalid award '%s'", prefix, row.Award)
			continue
		}
		key := identity.EntryKey{Title: row.Title, Nominee: row.Nominee, Award: row.Award}
		id, err := identity.EntryID(key)
		if err != nil {
			v.errorf("%s %v", prefix, err)
			continue
		}
		if first, dup := seen[id]; dup {
			v.errorf("%s Entry '%s' duplicates line %d", prefix, key, first)
			continue
		}
		seen[id] = row.Line

		ok := true
		if row.Author != "" && !v.members[row.Author] && !slices.Contains(v.registered, row.Author) {
			v.errorf("%s Author '%s' is not a member", prefix, row.Author)
			ok = false
		}
		if row.VideoURL != "" {
			if err := validateURL(row.VideoURL); err != nil {
				v.errorf("%s Invalid video URL: %v", prefix, err)
				ok = false
			}
		}
		var clip *timecode.Range
		if row.VideoTimestamp != "" {
			r, err := timecode.ParseRange(row.VideoTimestamp, v.bounds.duration)
			if err != nil {
				v.errorf("%s Invalid video timestamp: %v", prefix, err)
				ok = false
			} else {
				clip = &r
			}
		}
		if !ok {
			continue
		}

		entry := store.Entry{ID: id, Title: key.Normalize().Title, Nominee: key.Normalize().Nominee, Award: row.Award, VideoURL: row.VideoURL}
		if row.Author != "" {
			entry.AuthorID, _ = identity.MemberID(row.Author)
			v.members[row.Author] = true
		}
		v.out.Entries = append(v.out.Entries, entry)
		if clip != nil {
			v.out.VideoOptions = append(v.out.VideoOptions, store.VideoOptions{EntryID: id, Start: clip.Start, End: clip.End})
		}
		v.entries[row.Award] = append(v.entries[row.Award], row)
		v.entryIDs[strings.ToLower(row.Award+"\x00"+Label{Title: key.Normalize().Title, Nominee: key.Normalize().Nominee}.String())] = id
	}
}

func (v *validator) collectScores(forms []AwardForm) {
	for _, i := range v.validForms {
		form := forms[i]
		columns := make([]string, len(form.Labels))
		for col, label := range form.Labels {
			id, ok := v.entryIDs[strings.ToLower(form.Award+"\x00"+label.String())]
			if !ok {
				v.errorf("[%s] Entry '%s' is not in the entries catalog", form.Award, label)
				continue
			}
			columns[col] = id
		}
		for _, row := range v.entries[form.Award] {
			found := slices.ContainsFunc(form.Labels, func(l Label) bool { return l.matches(row.Title, row.Nominee) })
			if !found {
				v.errorf("[%s] Entry '%s' is missing from the form", form.Award, Label{Title: row.Title, Nominee: row.Nominee})
			}
		}

		voted := make(map[string]bool)
		for _, row := range form.Rows {
			if row.Member == "" || voted[row.Member] {
				continue
			}
			voted[row.Member] = true
			memberID, err := identity.MemberID(row.Member)
			if err != nil {
				continue
			}
			for col, cell := range row.Cells {
				if columns[col] == "" {
					continue
				}
				value, err := v.parseScore(cell)
				if err != nil {
					v.errorf("[%s] [%s] [%s] %v", form.Award, row.Member, form.Labels[col], err)
					continue
				}
				v.out.Scores = append(v.out.Scores, store.Score{MemberID: memberID, EntryID: columns[col], Value: value})
			}
		}
	}
}

// parseScore accepts a decimal point or comma.
func (v *validator) parseScore(cell string) (float64, error) {
	if cell == "" {
		return 0, errors.New("missing score")
	}
	value, err := strconv.ParseFloat(strings.Replace(cell, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score '%s'", cell)
	}
	if value < v.bounds.min || value > v.bounds.max {
		return 0, fmt.Errorf("invalid score '%s' (Should be a number between %g and %g)", cell, v.bounds.min, v.bounds.max)
	}
	return value, nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid URL '%s'", raw)
	}
	return nil
}
