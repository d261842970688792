package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// StripAccents removes combining marks after canonical decomposition.
func StripAccents(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Slugify lowercases value, strips accents, and joins alphanumeric runs with
// single hyphens. Returns "" when nothing usable remains.
func Slugify(value string) string {
	value = strings.ToLower(StripAccents(strings.TrimSpace(value)))
	var b strings.Builder
	pendingHyphen := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// EntrySlug builds the artifact base name for an entry: the title slug, plus
// the nominee slug when the entry has one.
func EntrySlug(title, nominee string) string {
	slug := Slugify(title)
	if n := Slugify(nominee); n != "" {
		if slug == "" {
			return n
		}
		return slug + "-" + n
	}
	return slug
}

// Designation turns an award slug into a display name ("best-song" -> "Best Song").
func Designation(slug string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(strings.TrimSpace(slug), "-", " "))
}
