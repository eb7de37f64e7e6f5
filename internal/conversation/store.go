// Package conversation holds the bounded turn history sent to the assistant.
package conversation

import "sync"

// MaxTurns caps the history at ten exchanges.
const MaxTurns = 20

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the exchange. The JSON shape is what the assistant
// endpoint expects in its history field.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Mark captures the store state just before an Append so it can be undone.
type Mark struct {
	generation uint64
	turns      []Turn
}

// Store is the ordered, capped turn history for one active session.
type Store struct {
	mu         sync.Mutex
	turns      []Turn
	generation uint64
}

func NewStore() *Store {
	return &Store{}
}

// Append adds a turn, trims the oldest turns past MaxTurns and returns a mark
// of the state before the append.
func (s *Store) Append(turn Turn) Mark {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark := Mark{generation: s.generation, turns: append([]Turn(nil), s.turns...)}
	s.turns = append(s.turns, turn)
	s.trimLocked()
	return mark
}

// AppendIfCurrent appends only when no Reset happened since mark was taken.
func (s *Store) AppendIfCurrent(mark Mark, turn Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mark.generation != s.generation {
		return false
	}
	s.turns = append(s.turns, turn)
	s.trimLocked()
	return true
}

// Rollback restores the state captured by mark. A Reset since the mark wins.
func (s *Store) Rollback(mark Mark) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mark.generation != s.generation {
		return false
	}
	s.turns = append(s.turns[:0:0], mark.turns...)
	return true
}

// HistoryExcludingLast returns every turn but the most recent one.
func (s *Store) HistoryExcludingLast() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.turns) == 0 {
		return []Turn{}
	}
	out := make([]Turn, len(s.turns)-1)
	copy(out, s.turns[:len(s.turns)-1])
	return out
}

func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.generation++
}

func (s *Store) trimLocked() {
	if over := len(s.turns) - MaxTurns; over > 0 {
		s.turns = append(s.turns[:0:0], s.turns[over:]...)
	}
}
