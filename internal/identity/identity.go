// Package identity derives the stable identifiers members and entries are
// stored under. Identifiers are name based (uuid5 in the OID namespace) so a
// re-run over the same forms maps onto the same rows.
package identity

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyName  = errors.New("member name cannot be empty")
	ErrEmptyTitle = errors.New("entry title cannot be empty")
	ErrEmptyAward = errors.New("entry award cannot be empty")
)

// MemberID returns the identifier for a member name.
func MemberID(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(), nil
}

// EntryKey is the natural key of an entry: title plus optional nominee,
// scoped to one award.
type EntryKey struct {
	Title   string
	Nominee string
	Award   string
}

// String renders the key the way form headers reference entries.
func (k EntryKey) String() string {
	if k.Nominee == "" {
		return k.Award + "/" + k.Title
	}
	return k.Award + "/" + k.Title + " [" + k.Nominee + "]"
}

// Normalize trims every component.
func (k EntryKey) Normalize() EntryKey {
	return EntryKey{
		Title:   strings.TrimSpace(k.Title),
		Nominee: strings.TrimSpace(k.Nominee),
		Award:   strings.TrimSpace(k.Award),
	}
}

// EntryID returns the identifier for an entry natural key.
func EntryID(key EntryKey) (string, error) {
	key = key.Normalize()
	if key.Title == "" {
		return "", ErrEmptyTitle
	}
	if key.Award == "" {
		return "", ErrEmptyAward
	}
	name := key.Title + "|" + key.Nominee + "|" + key.Award
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(), nil
}

// NewRunID returns a random identifier correlating the log lines of one run.
func NewRunID() string {
	return uuid.NewString()
}
