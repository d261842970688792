package services_test

import (
	"errors"
	"strings"
	"testing"

	"musicosa/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "stage 4", "screenshot", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"stage 4", "screenshot", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if !services.IsFatal(services.Wrap(services.ErrPersistence, "stage 2", "commit", "", errors.New("disk full"))) {
		t.Fatal("expected persistence error to be fatal")
	}
	if !services.IsFatal(services.Wrap(services.ErrConfiguration, "stage 4", "settings", "", errors.New("setting not set"))) {
		t.Fatal("expected configuration error to be fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrValidation, "stage 1", "", "bad row", nil)) {
		t.Fatal("expected validation error to be recoverable")
	}
}
