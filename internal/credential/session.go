package credential

import (
	"sync"
	"time"
)

// State is the lifecycle position of the session credential
type State int

const (
	StateAbsent State = iota
	StateFormatInvalid
	StateFormatValid
	StateRemoteVerified
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateFormatInvalid:
		return "format_invalid"
	case StateFormatValid:
		return "format_valid"
	case StateRemoteVerified:
		return "remote_verified"
	case StatePersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and YAML output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Usable reports whether a key in this state may be sent to the provider
func (s State) Usable() bool {
	return s >= StateFormatValid
}

// Session is the one in-memory credential slot shared by the credential
// manager and the analyzer.
type Session struct {
	mutex      sync.RWMutex
	token      string
	state      State
	verifiedAt time.Time
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{}
}

// Snapshot returns the token and its state
func (s *Session) Snapshot() (string, State) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.token, s.state
}

// VerifiedAt returns when the provider last accepted the token
func (s *Session) VerifiedAt() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.verifiedAt
}

func (s *Session) set(token string, state State) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
	s.state = state
	if state == StateRemoteVerified {
		s.verifiedAt = time.Now()
	}
}

// advance moves the state forward only if the token has not changed
// in the meantime.
func (s *Session) advance(token string, state State) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.token != token {
		return false
	}
	s.state = state
	return true
}

// markVerified records a successful probe of token
func (s *Session) markVerified(token string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.token == token {
		s.verifiedAt = time.Now()
	}
}

// Reset returns the session to Absent
func (s *Session) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = ""
	s.state = StateAbsent
	s.verifiedAt = time.Time{}
}
