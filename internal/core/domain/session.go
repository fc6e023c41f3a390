package domain

import "sync"

// Session is the explicit per-login state object. It starts Anonymous and
// changes only through the documented transitions: Authenticate (login or
// account creation), SetLastImage (successful generation), Reset (logout).
// UserID and Username are always both set or both zero.
//
// A session is shared by every request carrying its token, and a generation
// request holds it across a long upstream call, so all field access goes
// through the mutex. Readers take a Snapshot and work from that.
type Session struct {
	mu        sync.Mutex
	loggedIn  bool
	userID    int64
	username  string
	lastImage string
}

// SessionSnapshot is a point-in-time copy of a session's state, safe to read
// and serialize without holding the session lock.
type SessionSnapshot struct {
	LoggedIn  bool   `json:"logged_in"`
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	LastImage string `json:"last_image,omitempty"`
}

// NewSession constructs a session in the Anonymous state.
func NewSession() *Session {
	return &Session{}
}

// Authenticate transitions the session to LoggedIn for the given account.
func (s *Session) Authenticate(userID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = true
	s.userID = userID
	s.username = username
}

// SetLastImage records the most recent successful generation. The caller
// only invokes this after the generation service returned a URL, so
// LastImage never points at a merely-requested image.
func (s *Session) SetLastImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastImage = url
}

// Reset clears every field, returning the session to Anonymous.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
	s.userID = 0
	s.username = ""
	s.lastImage = ""
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		LoggedIn:  s.loggedIn,
		UserID:    s.userID,
		Username:  s.username,
		LastImage: s.lastImage,
	}
}

// SessionStore holds live sessions keyed by bearer token. Sessions are
// process-scoped and never persisted; a restart logs everyone out. The same
// username may hold several concurrent sessions (accepted gap, kept from the
// original contract).
type SessionStore interface {
	// Create registers the session and returns its bearer token.
	Create(sess *Session) string

	// Get returns the session for the token, or false when unknown.
	Get(token string) (*Session, bool)

	// Delete removes the session for the token. Unknown tokens are a no-op.
	Delete(token string)
}
