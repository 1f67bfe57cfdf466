package app

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	base := t.TempDir()
	return &CredentialStore{
		DurableDir: filepath.Join(base, "durable"),
		SessionDir: filepath.Join(base, "session"),
	}
}

func TestCredentialStore_SaveWritesOneScope(t *testing.T) {
	store := newTestStore(t)
	profile := Profile{ID: 7, Email: "a@b.com", Username: "alice"}

	if err := store.Save("tok-session", profile, false); err != nil {
		t.Fatalf("Save(session) = %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.DurableDir, "token")); !os.IsNotExist(err) {
		t.Fatalf("session save touched the durable scope")
	}

	token, got, ok := store.Load()
	if !ok || token != "tok-session" || got != profile {
		t.Fatalf("Load() = %q, %+v, %v", token, got, ok)
	}
}

func TestCredentialStore_DurableScopeWins(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("tok-session", Profile{ID: 1, Username: "sess"}, false); err != nil {
		t.Fatalf("Save(session) = %v", err)
	}
	if err := store.Save("tok-durable", Profile{ID: 2, Username: "dur"}, true); err != nil {
		t.Fatalf("Save(durable) = %v", err)
	}

	token, profile, ok := store.Load()
	if !ok || token != "tok-durable" || profile.Username != "dur" {
		t.Fatalf("Load() = %q, %+v, %v, want durable record", token, profile, ok)
	}
}

func TestCredentialStore_HalfRecordReadsAsAbsent(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(store.DurableDir, 0o700); err != nil {
		t.Fatal(err)
	}
	// Token without a profile.
	if err := os.WriteFile(filepath.Join(store.DurableDir, "token"), []byte("orphan"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, ok := store.Load(); ok {
		t.Fatalf("Load() found a half record")
	}
}

func TestCredentialStore_CorruptProfileReadsAsAbsent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("tok", Profile{ID: 1}, true); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.DurableDir, "profile.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, ok := store.Load(); ok {
		t.Fatalf("Load() accepted a corrupt profile")
	}
}

func TestCredentialStore_ClearRemovesBothScopes(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("tok-d", Profile{ID: 1}, true); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("tok-s", Profile{ID: 1}, false); err != nil {
		t.Fatal(err)
	}

	store.Clear()

	if _, _, ok := store.Load(); ok {
		t.Fatalf("Load() found credentials after Clear")
	}
}
