package store

import "musicosa/internal/timecode"

// Metadata fields describing the event edition.
const (
	MetadataEdition   = "edition"
	MetadataTopic     = "topic"
	MetadataOrganiser = "organiser"
	MetadataStartDate = "start_date"
)

// MetadataFields lists the recognised metadata keys in display order.
var MetadataFields = []string{MetadataEdition, MetadataTopic, MetadataOrganiser, MetadataStartDate}

// Avatar describes the image and score box drawn for a member on templates.
type Avatar struct {
	ID                int64
	ImageFilename     string
	ImageHeight       int
	ScoreBoxTop       int
	ScoreBoxLeft      int
	ScoreBoxFontScale float64
	ScoreBoxFontColor string
}

// Member is a voter. Members may also author entries.
type Member struct {
	ID       string
	Name     string
	AvatarID int64 // zero when unpaired
}

// Award is a ranking group.
type Award struct {
	Slug        string
	Designation string
}

// Entry is a competing submission within one award.
type Entry struct {
	ID       string
	Title    string
	Nominee  string
	AuthorID string
	Award    string
	VideoURL string
}

// Score is one member's vote for one entry.
type Score struct {
	MemberID string
	EntryID  string
	Value    float64
}

// EntryStats is the derived ranking of an entry.
type EntryStats struct {
	EntryID         string
	AvgScore        float64
	RankingPlace    int
	RankingSequence int
}

// MemberStats summarises a member's voting. AvgReceived is nil for members
// who authored no entries.
type MemberStats struct {
	MemberID    string
	AvgGiven    float64
	AvgReceived *float64
}

// Template holds the geometry of an entry's rendered template.
type Template struct {
	EntryID        string
	AvatarScale    float64
	VideoBoxWidth  int
	VideoBoxHeight int
	VideoBoxTop    int
	VideoBoxLeft   int
}

// VideoOptions is the clip window used for an entry's video bit.
type VideoOptions struct {
	EntryID string
	Start   timecode.Clock
	End     timecode.Clock
}

// Ranking joins an entry with its stats for reporting.
type Ranking struct {
	Entry Entry
	Stats EntryStats
}
