package testsupport

import (
	"context"
	"testing"

	"musicosa/internal/config"
	"musicosa/internal/store"
)

// MustOpenStore opens the store configured in cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), cfg.DatabasePath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// SeedSettings stores the given key/value settings.
func SeedSettings(t testing.TB, st *store.Store, values map[string]string) {
	t.Helper()

	for key, value := range values {
		if _, err := st.SetSetting(context.Background(), key, value); err != nil {
			t.Fatalf("store.SetSetting %s: %v", key, err)
		}
	}
}

// MustCommit commits a batch or fails the test.
func MustCommit(t testing.TB, st *store.Store, batch *store.Batch) {
	t.Helper()

	if err := st.Commit(context.Background(), batch); err != nil {
		t.Fatalf("store.Commit: %v", err)
	}
}
