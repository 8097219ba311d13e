package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// EditorSessionName is the cookie remembering the caller's open edit session.
const EditorSessionName = "reportly-editor"

const (
	sessionKeyEditSessionID = "edit_session_id"
	sessionKeyUserID        = "user_id"
)

// SessionStore keeps the id of the caller's most recent edit session in a
// signed cookie so a reloaded editor can resume it.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates a cookie-backed store.
//
// The secret is SHA-256 hashed to derive the 32-byte signing key, so any
// passphrase works. It must be the same across restarts and replicas.
// Cookies live for ttl, matching the server-side edit session lifetime.
func NewSessionStore(secret string, ttl time.Duration, cookies CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// RememberEditSession records editSessionID as the current session for userID.
func (s *SessionStore) RememberEditSession(w http.ResponseWriter, r *http.Request, userID, editSessionID string) error {
	session, err := s.store.Get(r, EditorSessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load editor cookie: %w", err)
	}
	session.Values[sessionKeyUserID] = userID
	session.Values[sessionKeyEditSessionID] = editSessionID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save editor cookie: %w", err)
	}
	return nil
}

// CurrentEditSession returns the remembered edit session id for userID.
// A cookie written for another user is ignored.
func (s *SessionStore) CurrentEditSession(r *http.Request, userID string) (string, bool) {
	session, err := s.store.Get(r, EditorSessionName)
	if err != nil || session == nil {
		return "", false
	}
	owner, _ := session.Values[sessionKeyUserID].(string)
	id, _ := session.Values[sessionKeyEditSessionID].(string)
	if owner != userID || id == "" {
		return "", false
	}
	return id, true
}

// ForgetEditSession clears the remembered edit session.
func (s *SessionStore) ForgetEditSession(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, EditorSessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load editor cookie: %w", err)
	}
	delete(session.Values, sessionKeyUserID)
	delete(session.Values, sessionKeyEditSessionID)
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save editor cookie: %w", err)
	}
	return nil
}
