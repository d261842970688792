// Package artifacts names the files the rendering stages read and write.
//
// Entry images and clips live under {artifacts}/{award}/ named after the entry
// slug. Video bits and the final video live under {video_bits}/{award}/.
package artifacts

import (
	"path/filepath"
	"strconv"

	"musicosa/internal/store"
	"musicosa/internal/textutil"
)

const (
	ImageExt           = ".png"
	VideoExt           = ".mp4"
	PresentationSuffix = "-presentation"
)

// Layout roots every artifact path.
type Layout struct {
	Artifacts string
	VideoBits string
}

// Slug is the file stem shared by an entry's image, presentation and clip.
func Slug(e store.Entry) string {
	return textutil.EntrySlug(e.Title, e.Nominee)
}

func (l Layout) awardDir(root, award string) string {
	return filepath.Join(root, textutil.SanitizeFileName(award))
}

// EntryImage is the rendered template of e.
func (l Layout) EntryImage(e store.Entry) string {
	return filepath.Join(l.awardDir(l.Artifacts, e.Award), Slug(e)+ImageExt)
}

// PresentationImage is the presentation card shown before e in the final video.
func (l Layout) PresentationImage(e store.Entry) string {
	return filepath.Join(l.awardDir(l.Artifacts, e.Award), Slug(e)+PresentationSuffix+ImageExt)
}

// ClipBase is the downloader output path without extension.
func (l Layout) ClipBase(e store.Entry) string {
	return filepath.Join(l.awardDir(l.Artifacts, e.Award), Slug(e))
}

// Clip is the downloaded source video of e.
func (l Layout) Clip(e store.Entry) string {
	return l.ClipBase(e) + VideoExt
}

// VideoBitsDir holds every video bit of award.
func (l Layout) VideoBitsDir(award string) string {
	return l.awardDir(l.VideoBits, award)
}

// VideoBit is the composed clip for the entry ranked at sequence.
func (l Layout) VideoBit(award string, sequence int) string {
	return filepath.Join(l.VideoBitsDir(award), strconv.Itoa(sequence)+VideoExt)
}

// FinalVideo is the stitched video of award.
func (l Layout) FinalVideo(award, name string) string {
	return filepath.Join(l.VideoBitsDir(award), textutil.SanitizeFileName(name)+VideoExt)
}
