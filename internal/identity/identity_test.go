package identity_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"musicosa/internal/identity"
)

func TestMemberIDIsStableUUID5(t *testing.T) {
	first, err := identity.MemberID("Alice")
	if err != nil {
		t.Fatalf("MemberID failed: %v", err)
	}
	second, err := identity.MemberID("  Alice ")
	if err != nil {
		t.Fatalf("MemberID failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected trimmed names to share an id: %s vs %s", first, second)
	}
	parsed, err := uuid.Parse(first)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	if parsed.Version() != 5 {
		t.Fatalf("expected version 5 uuid, got %d", parsed.Version())
	}
	if want := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Alice")).String(); first != want {
		t.Fatalf("unexpected id: got %s want %s", first, want)
	}
}

func TestEntryIDDistinguishesAwardAndNominee(t *testing.T) {
	base := identity.EntryKey{Title: "Song", Award: "best-song"}
	a, err := identity.EntryID(base)
	if err != nil {
		t.Fatalf("EntryID failed: %v", err)
	}
	b, _ := identity.EntryID(identity.EntryKey{Title: "Song", Award: "best-video"})
	c, _ := identity.EntryID(identity.EntryKey{Title: "Song", Nominee: "Band", Award: "best-song"})
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct ids, got %s %s %s", a, b, c)
	}
}

func TestEmptyInputsRejected(t *testing.T) {
	if _, err := identity.MemberID(" "); !errors.Is(err, identity.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := identity.EntryID(identity.EntryKey{Award: "x"}); !errors.Is(err, identity.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := identity.EntryID(identity.EntryKey{Title: "x"}); !errors.Is(err, identity.ErrEmptyAward) {
		t.Fatalf("expected ErrEmptyAward, got %v", err)
	}
}
