package thinking

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"dot-hub/internal/schedule"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) ShowPlaceholder() { r.add("placeholder") }

func (r *recorder) SetPhrase(text string) { r.add("phrase:" + text) }

func (r *recorder) Clear() { r.add("clear") }

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func phrases(events []string) []string {
	var out []string
	for _, e := range events {
		if strings.HasPrefix(e, "phrase:") {
			out = append(out, strings.TrimPrefix(e, "phrase:"))
		}
	}
	return out
}

func TestStopBeforeFirstStepShowsNoPhrase(t *testing.T) {
	sched := &schedule.Manual{}
	rec := &recorder{}
	c := New(sched, rec, rand.New(rand.NewSource(1)))

	s := c.Start()
	sched.Advance(500 * time.Millisecond)
	s.Stop()
	sched.Advance(10 * time.Second)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "placeholder" || got[1] != "clear" {
		t.Fatalf("expected placeholder then clear, got %v", got)
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no pending steps, got %d", sched.Pending())
	}
}

func TestFullSequenceTiming(t *testing.T) {
	sched := &schedule.Manual{}
	rec := &recorder{}
	c := New(sched, rec, rand.New(rand.NewSource(3)))
	c.Start()

	checkpoints := []struct {
		at   time.Duration
		seen int
	}{
		{799 * time.Millisecond, 0},
		{800 * time.Millisecond, 1},
		{2400 * time.Millisecond, 2},
		{4000 * time.Millisecond, 3},
		{5600 * time.Millisecond, 4},
		{7199 * time.Millisecond, 4},
		{7200 * time.Millisecond, 5},
		{9200 * time.Millisecond, 9},
	}
	for _, cp := range checkpoints {
		sched.Advance(cp.at - sched.Elapsed())
		if got := len(phrases(rec.snapshot())); got != cp.seen {
			t.Fatalf("at %v expected %d phrases, got %d", cp.at, cp.seen, got)
		}
	}

	got := phrases(rec.snapshot())
	all := Pools()
	for i := 0; i < 4; i++ {
		found := false
		for _, p := range all[i] {
			if got[i] == p {
				found = true
			}
		}
		if !found {
			t.Fatalf("phrase %d %q not from pool %d", i, got[i], i+1)
		}
	}
	want := []string{"five...", "four...", "three...", "two...", "one..."}
	for i, w := range want {
		if got[4+i] != w {
			t.Fatalf("countdown step %d = %q, want %q", i, got[4+i], w)
		}
	}
}

func TestStartReplacesPreviousSession(t *testing.T) {
	sched := &schedule.Manual{}
	rec := &recorder{}
	c := New(sched, rec, nil)

	first := c.Start()
	sched.Advance(time.Second)
	second := c.Start()

	if !first.Stopped() || second.Stopped() {
		t.Fatalf("expected only the first session stopped")
	}
	if sched.Pending() != len(Plan(nil)) {
		t.Fatalf("expected one session's steps pending, got %d", sched.Pending())
	}

	c.Stop()
	c.Stop()
	sched.Advance(20 * time.Second)
	if n := len(phrases(rec.snapshot())); n != 1 {
		t.Fatalf("expected only the first session's 800ms phrase, got %d", n)
	}
}

func TestTimersStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	c := New(schedule.Timers{}, rec, nil)
	s := c.Start()
	s.Stop()

	got := rec.snapshot()
	if len(got) != 2 || got[1] != "clear" {
		t.Fatalf("unexpected events %v", got)
	}
}
