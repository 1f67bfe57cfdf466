package app

import "sync"

// SessionState tells where the manager is in its lifecycle. Initializing
// exists only between construction and the first (synchronous) store load.
type SessionState int

const (
	StateInitializing SessionState = iota
	StateAnonymous
	StateAuthenticated
)

// Forecast horizons by tier. These mirror server policy; the server remains
// authoritative and will answer AuthRequired if the mirror ever drifts.
const (
	MaxDaysAnonymous     = 2
	MaxDaysAuthenticated = 7
)

// Session is the current token/profile snapshot. Token and Profile are set
// and cleared together; one without the other never escapes this package.
type Session struct {
	Token   string
	Profile Profile
}

// SessionManager owns the authentication state for the process. One instance
// is created in main and handed to everything that needs it; there is no
// package-level current session.
type SessionManager struct {
	mu    sync.RWMutex
	state SessionState
	sess  Session
	store *CredentialStore
}

// NewSessionManager derives the initial state from the credential store.
// No network call happens here; a stale token is only discovered when a
// request comes back AuthRequired.
func NewSessionManager(store *CredentialStore) *SessionManager {
	m := &SessionManager{state: StateInitializing, store: store}
	if token, profile, ok := store.Load(); ok {
		m.state = StateAuthenticated
		m.sess = Session{Token: token, Profile: profile}
	} else {
		m.state = StateAnonymous
	}
	return m
}

func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated && m.sess.Token != ""
}

// Current returns a copy of the session snapshot. Callers must not cache the
// result across user actions; re-read it instead.
func (m *SessionManager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess
}

// Token returns the bearer token, empty when anonymous.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.Token
}

// MaxForecastDays is the client-enforced ceiling on the forecast horizon.
// UX-only: requests are still dispatched with whatever the user typed when
// callers choose to, and the server's AuthRequired answer wins.
func (m *SessionManager) MaxForecastDays() int {
	if m.IsAuthenticated() {
		return MaxDaysAuthenticated
	}
	return MaxDaysAnonymous
}

// Login moves to Authenticated and writes through to the store. The durable
// flag picks the storage scope ("remember me").
func (m *SessionManager) Login(token string, profile Profile, durable bool) error {
	m.mu.Lock()
	m.state = StateAuthenticated
	m.sess = Session{Token: token, Profile: profile}
	m.mu.Unlock()
	return m.store.Save(token, profile, durable)
}

// Logout moves to Anonymous and purges both storage scopes.
func (m *SessionManager) Logout() {
	m.mu.Lock()
	m.state = StateAnonymous
	m.sess = Session{}
	m.mu.Unlock()
	m.store.Clear()
}
