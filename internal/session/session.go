// Package session runs one conversation turn end to end: record the question,
// animate the wait, call the assistant, then resolve, dispatch and render.
package session

import (
	"strings"
	"sync"

	"dot-hub/internal/assistant"
	"dot-hub/internal/conversation"
)

// Session is the signed-in user and their conversation history.
type Session struct {
	mu       sync.Mutex
	identity assistant.Identity
	Store    *conversation.Store
}

func New(id assistant.Identity) *Session {
	return &Session{identity: id, Store: conversation.NewStore()}
}

// ID is the remote session id: the user's display name, or "anonymous".
func (s *Session) ID() string {
	return s.Identity().SessionID()
}

func (s *Session) Identity() assistant.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SignedIn reports whether a named user is attached.
func (s *Session) SignedIn() bool {
	return strings.TrimSpace(s.Identity().Name) != ""
}

func (s *Session) SetIdentity(id assistant.Identity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
}

// Reset clears the conversation history.
func (s *Session) Reset() {
	s.Store.Reset()
}
