package session_test

import (
	"testing"
	"time"

	"avatarctl/internal/session"
	"avatarctl/internal/testsupport"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenJournal(t, cfg).DB()

	store, err := session.NewSQLiteStore(db, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	creds, err := session.NewCredentials(store, "access_token", "refresh_token")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}

	if creds.Authenticated() {
		t.Fatal("expected empty store to be unauthenticated")
	}
	if err := creds.Replace("a1", "r1"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	pair, err := creds.Pair()
	if err != nil || pair.Access != "a1" || pair.Refresh != "r1" {
		t.Fatalf("unexpected pair %+v (%v)", pair, err)
	}

	if err := creds.Replace("a2", ""); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	pair, _ = creds.Pair()
	if pair.Access != "a2" || pair.Refresh != "r1" {
		t.Fatalf("expected refresh token to be kept, got %+v", pair)
	}

	if err := creds.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	values, err := store.Get("access_token", "refresh_token")
	if err != nil || len(values) != 0 {
		t.Fatalf("expected cleared slots, got %v (%v)", values, err)
	}
}

func TestSQLiteStoreSharedAcrossHandles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenJournal(t, cfg)
	second := testsupport.MustOpenJournal(t, cfg)

	writer, _ := session.NewSQLiteStore(first.DB(), 0)
	reader, _ := session.NewSQLiteStore(second.DB(), 0)

	if err := writer.Set(map[string]string{"access_token": "shared"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	values, err := reader.Get("access_token")
	if err != nil || values["access_token"] != "shared" {
		t.Fatalf("expected token visible to second handle, got %v (%v)", values, err)
	}
}
