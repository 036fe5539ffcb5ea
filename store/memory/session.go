// Package memory provides in-memory stores suitable for single-process use.
package memory

import (
	"sync"

	"github.com/stellar-ramp/sdk-go/sep10"
)

// SessionStore holds authenticated SEP-10 sessions keyed by home domain and
// account, so one wallet can stay authenticated against several anchors at
// once. Safe for concurrent use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sep10.Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sep10.Session),
	}
}

func sessionKey(homeDomain, account string) string {
	return homeDomain + "|" + account
}

// Put stores a session, replacing any prior session for the same home domain
// and account.
func (s *SessionStore) Put(session *sep10.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(session.HomeDomain, session.Account)] = session
}

// Get returns the stored session for a home domain and account, or nil when
// none exists. Expired sessions are returned as-is; callers decide whether to
// re-authenticate via Session.Valid.
func (s *SessionStore) Get(homeDomain, account string) *sep10.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionKey(homeDomain, account)]
}

// GetValid returns the stored session only if it is still usable.
func (s *SessionStore) GetValid(homeDomain, account string) *sep10.Session {
	session := s.Get(homeDomain, account)
	if session == nil || !session.Valid() {
		return nil
	}
	return session
}

// Clear removes the session for a home domain and account, if any.
func (s *SessionStore) Clear(homeDomain, account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(homeDomain, account))
}

// ClearAll removes every stored session.
func (s *SessionStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*sep10.Session)
}
