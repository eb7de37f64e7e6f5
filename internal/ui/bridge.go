package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"dot-hub/internal/jobs"
	"dot-hub/internal/schedule"
)

const (
	viewHome    = "home"
	viewWIP     = "wip"
	viewTracker = "tracker"
)

type timerMsg struct{ id int }

// bridge is the pipeline's view of the dashboard. Every method runs on the
// Update goroutine: timers come back as timerMsg instead of firing on their
// own, so the model is never touched concurrently. The model holds it by
// pointer so copies of the value-receiver Model share it.
type bridge struct {
	nextTimer int
	timers    map[int]func()
	queued    []tea.Cmd

	// thinking line
	thinking bool
	phrase   string

	// navigation
	view          string
	wipClient     string
	trackerClient string
	navigated     bool

	edits   []jobs.Record
	submits []string
}

func newBridge() *bridge {
	return &bridge{timers: make(map[int]func()), view: viewHome}
}

func (b *bridge) After(d time.Duration, fn func()) schedule.Cancel {
	b.nextTimer++
	id := b.nextTimer
	b.timers[id] = fn
	b.queued = append(b.queued, tea.Tick(d, func(time.Time) tea.Msg { return timerMsg{id: id} }))
	return func() { delete(b.timers, id) }
}

// fire runs timer id if it is still pending.
func (b *bridge) fire(id int) {
	fn, ok := b.timers[id]
	if !ok {
		return
	}
	delete(b.timers, id)
	fn()
}

func (b *bridge) ShowPlaceholder() {
	b.thinking, b.phrase = true, ""
}

func (b *bridge) SetPhrase(text string) {
	b.thinking, b.phrase = true, text
}

func (b *bridge) Clear() {
	b.thinking, b.phrase = false, ""
}

func (b *bridge) NavigateTo(view string) {
	switch view {
	case viewWIP, viewTracker, viewHome:
		b.view = view
	default:
		b.view = viewHome
	}
	b.navigated = true
}

func (b *bridge) SetClientFilter(view, client string) {
	switch view {
	case viewWIP:
		b.wipClient = client
	case viewTracker:
		b.trackerClient = client
	}
}

func (b *bridge) Open(job jobs.Record) {
	b.edits = append(b.edits, job)
}

func (b *bridge) submit(text string) {
	b.submits = append(b.submits, text)
}

// take empties the queues filled since the last call.
func (b *bridge) take() (cmds []tea.Cmd, edits []jobs.Record, submits []string) {
	cmds, edits, submits = b.queued, b.edits, b.submits
	b.queued, b.edits, b.submits = nil, nil, nil
	return cmds, edits, submits
}
