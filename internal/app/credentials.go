package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Profile is the minimal user identity kept alongside the token.
type Profile struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// CredentialStore persists the bearer token and profile across two scopes:
// a durable one that survives restarts ("remember me") and a per-boot one
// that does not. Reads check both because the write scope is not recorded;
// the durable scope wins. Every failure degrades to "no credentials" rather
// than an error, so a corrupt store can never wedge startup.
//
// Layout per scope:
//
//	<dir>/token
//	<dir>/profile.json
type CredentialStore struct {
	DurableDir string
	SessionDir string
}

const (
	tokenFile   = "token"
	profileFile = "profile.json"
)

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		DurableDir: defaultDurableDir(),
		SessionDir: defaultSessionDir(),
	}
}

func defaultDurableDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "climaviz", "credentials")
	}
	return filepath.Join(base, "climaviz", "credentials")
}

func defaultSessionDir() string {
	// XDG runtime dirs are wiped at end of session, which is the closest
	// analog to browser sessionStorage a CLI has.
	if base := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); base != "" {
		return filepath.Join(base, "climaviz", "credentials")
	}
	return filepath.Join(os.TempDir(), "climaviz-session", "credentials")
}

// Save writes the pair to exactly one scope. Token shape is not validated
// here; the server is the authority on what a token means.
func (s *CredentialStore) Save(token string, profile Profile, durable bool) error {
	dir := s.SessionDir
	if durable {
		dir = s.DurableDir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, tokenFile), []byte(token), 0o600); err != nil {
		return err
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, profileFile), data, 0o600)
}

// Load returns the stored pair, preferring the durable scope. A scope with
// only half a record (token without profile, or the reverse) reads as absent.
func (s *CredentialStore) Load() (string, Profile, bool) {
	if token, profile, ok := loadScope(s.DurableDir); ok {
		return token, profile, true
	}
	return loadScope(s.SessionDir)
}

func loadScope(dir string) (string, Profile, bool) {
	raw, err := os.ReadFile(filepath.Join(dir, tokenFile))
	if err != nil {
		return "", Profile{}, false
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", Profile{}, false
	}
	data, err := os.ReadFile(filepath.Join(dir, profileFile))
	if err != nil {
		return "", Profile{}, false
	}
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return "", Profile{}, false
	}
	return token, profile, true
}

// Clear removes the record from both scopes so a stale credential in the
// non-active scope cannot resurrect a session after logout.
func (s *CredentialStore) Clear() {
	for _, dir := range []string{s.DurableDir, s.SessionDir} {
		_ = os.Remove(filepath.Join(dir, tokenFile))
		_ = os.Remove(filepath.Join(dir, profileFile))
	}
}
