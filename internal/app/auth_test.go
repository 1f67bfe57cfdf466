package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		username  string
		password  string
		confirm   string
		terms     bool
		wantField string
	}{
		{"valid", "a@b.com", "alice", "secret1", "secret1", true, ""},
		{"missing email", "", "alice", "secret1", "secret1", true, "email"},
		{"bad email", "not-an-email", "alice", "secret1", "secret1", true, "email"},
		{"short username", "a@b.com", "al", "secret1", "secret1", true, "username"},
		{"short password", "a@b.com", "alice", "abc", "abc", true, "password"},
		{"mismatched confirm", "a@b.com", "alice", "secret1", "secret2", true, "confirmPassword"},
		{"terms not accepted", "a@b.com", "alice", "secret1", "secret1", false, "terms"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateRegistration(tc.email, tc.username, tc.password, tc.confirm, tc.terms)
			if tc.wantField == "" {
				assert.Nil(t, errs)
				return
			}
			require.NotNil(t, errs)
			assert.Contains(t, errs, tc.wantField)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.Nil(t, ValidateLogin("a@b.com", "secret"))
	assert.Contains(t, ValidateLogin("nope", "secret"), "email")
	assert.Contains(t, ValidateLogin("a@b.com", ""), "password")
}

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestDecodeProfile(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{
		"sub":      "7",
		"email":    "a@b.com",
		"username": "alice",
	})

	profile, err := DecodeProfile(token)
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: 7, Email: "a@b.com", Username: "alice"}, profile)
}

func TestDecodeProfile_RejectsGarbage(t *testing.T) {
	_, err := DecodeProfile("not.a.token")
	assert.Error(t, err)
}

func newAuthFixture(t *testing.T, handler http.HandlerFunc) (*AuthService, *SessionManager, *CredentialStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := newTestStore(t)
	session := NewSessionManager(store)
	dispatcher := newTestDispatcher(t, srv.URL, session)
	return NewAuthService(dispatcher, session, NewLogger(io.Discard)), session, store
}

func TestAuthService_LoginCommitsSession(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"sub": "7", "email": "a@b.com", "username": "alice"})
	auth, session, store := newAuthFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.com", creds["email"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"jwt": token})
	})

	profile, err := auth.Login(context.Background(), "a@b.com", "secret1", true)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.True(t, session.IsAuthenticated())

	// Durable login survives a fresh store read.
	storedToken, storedProfile, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, token, storedToken)
	assert.Equal(t, profile, storedProfile)
}

func TestAuthService_LoginRejectionStaysAnonymous(t *testing.T) {
	auth, session, _ := newAuthFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Credenciales incorrectas"})
	})

	_, err := auth.Login(context.Background(), "a@b.com", "wrong1", false)
	require.ErrorIs(t, err, ErrAuthRejected)
	assert.False(t, session.IsAuthenticated())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, OutcomeAuthRequired, reqErr.Kind)
}

func TestAuthService_LoginValidatesBeforeDispatch(t *testing.T) {
	called := false
	auth, _, _ := newAuthFixture(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := auth.Login(context.Background(), "not-an-email", "secret1", false)
	var fieldErrs ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.False(t, called, "invalid input must not reach the wire")
}

func TestAuthService_RegisterSurfacesServerErrors(t *testing.T) {
	auth, _, _ := newAuthFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RegisterResult{Message: "El correo ya está registrado", NumOfErrors: 1})
	})

	res, err := auth.Register(context.Background(), "a@b.com", "alice", "secret1", "secret1", true)
	require.ErrorIs(t, err, ErrAuthRejected)
	assert.Equal(t, 1, res.NumOfErrors)

	// The server's own wording stays reachable on the chain so callers can
	// show it untouched.
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, OutcomeDomainError, reqErr.Kind)
	assert.Equal(t, "El correo ya está registrado", reqErr.Message)
}

func TestAuthService_RegisterSuccess(t *testing.T) {
	auth, _, _ := newAuthFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RegisterResult{Message: "Usuario creado. Revisa tu correo."})
	})

	res, err := auth.Register(context.Background(), "a@b.com", "alice", "secret1", "secret1", true)
	require.NoError(t, err)
	assert.Equal(t, "Usuario creado. Revisa tu correo.", res.Message)
}

func TestAuthService_LogoutClearsStore(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"sub": "1", "username": "bob", "email": "b@c.com"})
	auth, session, store := newAuthFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"jwt": token})
	})

	_, err := auth.Login(context.Background(), "b@c.com", "secret1", true)
	require.NoError(t, err)

	auth.Logout()
	assert.False(t, session.IsAuthenticated())
	_, _, ok := store.Load()
	assert.False(t, ok)
}
