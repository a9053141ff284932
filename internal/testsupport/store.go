package testsupport

import (
	"context"
	"testing"

	"avatarctl/internal/config"
	"avatarctl/internal/journal"
	"avatarctl/internal/studio"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordVideo journals a snapshot for tests.
func RecordVideo(t testing.TB, store *journal.Store, video studio.VideoDetail) {
	t.Helper()

	if err := store.Record(context.Background(), video); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
}
