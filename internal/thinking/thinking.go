// Package thinking animates the wait for an assistant reply: a placeholder,
// four rounds of phrases and a closing countdown.
package thinking

import (
	"sync"
	"time"

	"dot-hub/internal/schedule"
)

// Display is the single indicator line the animation drives.
type Display interface {
	ShowPlaceholder()
	SetPhrase(text string)
	Clear()
}

var pools = [][]string{
	{"Let's have a look...", "Gimme a sec...", "Hunting that down..."},
	{"Digging the data...", "Joining the dots...", "Piecing bits together..."},
	{"Lining it all up...", "Checking for tickety boo...", "Quick lick of polish..."},
	{"Dotting my eyes...", "One more thing...", "Nearly there..."},
}

var countdown = []string{"five...", "four...", "three...", "two...", "one..."}

var poolOffsets = []time.Duration{
	800 * time.Millisecond,
	2400 * time.Millisecond,
	4000 * time.Millisecond,
	5600 * time.Millisecond,
}

const (
	countdownStart = 7200 * time.Millisecond
	countdownStep  = 500 * time.Millisecond
)

// Step is one scheduled phrase change.
type Step struct {
	At     time.Duration
	Phrase string
}

// Plan picks one phrase per pool and appends the countdown.
func Plan(rng interface{ Intn(n int) int }) []Step {
	steps := make([]Step, 0, len(pools)+len(countdown))
	for i, pool := range pools {
		idx := 0
		if rng != nil {
			idx = rng.Intn(len(pool))
		}
		steps = append(steps, Step{At: poolOffsets[i], Phrase: pool[idx]})
	}
	for i, word := range countdown {
		steps = append(steps, Step{At: countdownStart + time.Duration(i)*countdownStep, Phrase: word})
	}
	return steps
}

// Pools returns a copy of the phrase pools in display order.
func Pools() [][]string {
	out := make([][]string, len(pools))
	for i, p := range pools {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// Choreographer owns at most one live Session.
type Choreographer struct {
	sched   schedule.Scheduler
	display Display
	rng     interface{ Intn(n int) int }

	mu      sync.Mutex
	current *Session
}

func New(sched schedule.Scheduler, display Display, rng interface{ Intn(n int) int }) *Choreographer {
	return &Choreographer{sched: sched, display: display, rng: rng}
}

// Start stops any running session, shows the placeholder and schedules the
// phrase steps.
func (c *Choreographer) Start() *Session {
	c.mu.Lock()
	prev := c.current
	c.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	s := &Session{display: c.display}
	c.display.ShowPlaceholder()

	steps := Plan(c.rng)
	s.mu.Lock()
	for _, step := range steps {
		phrase := step.Phrase
		s.cancels = append(s.cancels, c.sched.After(step.At, func() { s.show(phrase) }))
	}
	s.mu.Unlock()

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	return s
}

// Stop ends the live session, if any.
func (c *Choreographer) Stop() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// Session is one running animation.
type Session struct {
	display Display

	mu      sync.Mutex
	stopped bool
	cancels []schedule.Cancel
}

func (s *Session) show(phrase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.display.SetPhrase(phrase)
}

// Stop cancels pending steps and clears the display. Safe to call twice.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.display.Clear()
}

func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
