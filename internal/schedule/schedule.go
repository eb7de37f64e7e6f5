// Package schedule runs delayed callbacks for the thinking animation and
// assistant-issued redirects.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a pending callback. Calling it after the callback ran is a no-op.
type Cancel func()

// Scheduler runs fn once after d.
type Scheduler interface {
	After(d time.Duration, fn func()) Cancel
}

// Timers schedules callbacks on real time.AfterFunc timers.
type Timers struct{}

func (Timers) After(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Manual is a Scheduler driven by Advance. It never runs callbacks on its own,
// which makes timed behaviour deterministic in tests and in the headless mode.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

func (m *Manual) After(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &manualTask{at: m.now + d, seq: m.seq, fn: fn}
	m.pending = append(m.pending, task)
	return func() {
		m.mu.Lock()
		task.canceled = true
		m.mu.Unlock()
	}
}

// Advance moves the clock forward by d and runs every due callback in order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		task := m.nextDueLocked(target)
		if task == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = task.at
		canceled := task.canceled
		m.mu.Unlock()
		if !canceled {
			task.fn()
		}
	}
}

// Pending reports how many callbacks are scheduled and not canceled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.canceled {
			n++
		}
	}
	return n
}

// Elapsed returns the manual clock position.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) nextDueLocked(target time.Duration) *manualTask {
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at == m.pending[j].at {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].at < m.pending[j].at
	})
	if len(m.pending) == 0 || m.pending[0].at > target {
		return nil
	}
	task := m.pending[0]
	m.pending = m.pending[1:]
	return task
}
