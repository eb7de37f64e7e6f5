package conversation

import (
	"fmt"
	"reflect"
	"testing"
)

func exchange(s *Store, i int) {
	s.Append(Turn{Role: RoleUser, Content: fmt.Sprintf("q%d", i)})
	s.Append(Turn{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)})
}

func TestAppendCapsHistoryOldestFirst(t *testing.T) {
	s := NewStore()
	for i := 0; i < 15; i++ {
		exchange(s, i)
		if s.Len() > MaxTurns {
			t.Fatalf("history grew past cap: %d", s.Len())
		}
	}
	turns := s.Turns()
	if len(turns) != MaxTurns {
		t.Fatalf("expected %d turns, got %d", MaxTurns, len(turns))
	}
	if turns[0].Content != "q5" {
		t.Fatalf("expected oldest surviving turn q5, got %q", turns[0].Content)
	}
	if turns[len(turns)-1].Content != "a14" {
		t.Fatalf("expected newest turn a14, got %q", turns[len(turns)-1].Content)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			t.Fatalf("roles do not alternate at %d: %v", i, turns)
		}
	}
}

func TestHistoryExcludingLast(t *testing.T) {
	s := NewStore()
	if got := s.HistoryExcludingLast(); len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
	exchange(s, 1)
	s.Append(Turn{Role: RoleUser, Content: "in flight"})

	got := s.HistoryExcludingLast()
	want := []Turn{{RoleUser, "q1"}, {RoleAssistant, "a1"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRollbackRestoresPriorState(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		exchange(s, i)
	}
	before := s.Turns()

	mark := s.Append(Turn{Role: RoleUser, Content: "doomed"})
	if !s.Rollback(mark) {
		t.Fatalf("rollback refused")
	}
	if !reflect.DeepEqual(s.Turns(), before) {
		t.Fatalf("rollback did not restore history:\n got %v\nwant %v", s.Turns(), before)
	}
}

func TestResetInvalidatesOutstandingMarks(t *testing.T) {
	s := NewStore()
	mark := s.Append(Turn{Role: RoleUser, Content: "q"})
	s.Reset()

	if s.AppendIfCurrent(mark, Turn{Role: RoleAssistant, Content: "late"}) {
		t.Fatalf("late reply appended after reset")
	}
	if s.Rollback(mark) {
		t.Fatalf("rollback applied after reset")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %v", s.Turns())
	}
}
