// Package dispatch turns a decoded assistant reply into what the dashboard
// shows next, and schedules the navigation a redirect asks for.
package dispatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dot-hub/internal/assistant"
	"dot-hub/internal/jobs"
	"dot-hub/internal/schedule"
)

const (
	DefaultPrompt  = "What can Dot do?"
	RedirectDelay  = 1500 * time.Millisecond
	errorMessage   = "Sorry, I got in a muddle over that one."
	unknownMessage = "I'm not sure what happened there."
)

var fallbackMessages = []string{
	"Hmm, I'm having trouble thinking right now. Try again?",
	"Sorry, my brain just glitched. Give it another go?",
	"Oops, something went sideways. Mind trying that again?",
	"My wires got crossed for a sec. One more time?",
	"That one got away from me. Try again?",
}

// Navigation is a pending view change requested by the assistant.
type Navigation struct {
	Target string
	Client string
}

// Instruction is everything the renderer needs for one turn.
type Instruction struct {
	Kind       string
	Message    string
	Jobs       []jobs.Record
	NextPrompt *string
	Navigation *Navigation
}

// Navigator is implemented by whatever owns the views.
type Navigator interface {
	NavigateTo(view string)
	SetClientFilter(view, client string)
}

type Dispatcher struct {
	resolver *jobs.Resolver
	sched    schedule.Scheduler
	nav      Navigator
	log      zerolog.Logger

	mu      sync.Mutex
	pending schedule.Cancel
}

func New(resolver *jobs.Resolver, sched schedule.Scheduler, nav Navigator, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{resolver: resolver, sched: sched, nav: nav, log: log}
}

// Dispatch classifies reply. Only Redirect has a side effect.
func (d *Dispatcher) Dispatch(reply assistant.Reply) Instruction {
	switch r := reply.(type) {
	case assistant.Answer:
		return Instruction{Kind: r.Kind(), Message: r.Message, Jobs: d.resolve(r.Jobs), NextPrompt: r.NextPrompt}
	case assistant.Action:
		return Instruction{Kind: r.Kind(), Message: r.Message, NextPrompt: r.NextPrompt}
	case assistant.Confirm:
		return Instruction{Kind: r.Kind(), Message: r.Message, Jobs: d.resolve(r.Jobs)}
	case assistant.Clarify:
		return Instruction{Kind: r.Kind(), Message: r.Message, Jobs: d.resolve(r.Jobs)}
	case assistant.Redirect:
		nav := &Navigation{Target: r.To, Client: r.Client}
		d.scheduleNavigation(*nav)
		return Instruction{Kind: r.Kind(), Message: r.Message, Navigation: nav}
	case assistant.Horoscope:
		return Instruction{Kind: r.Kind(), Message: r.Message, NextPrompt: r.NextPrompt}
	case assistant.ErrorReply:
		msg := r.Message
		if msg == "" {
			msg = errorMessage
		}
		return Instruction{Kind: r.Kind(), Message: msg, NextPrompt: prompt(DefaultPrompt)}
	case assistant.Unknown:
		msg := r.Message
		if msg == "" {
			msg = unknownMessage
		}
		return Instruction{Kind: r.Kind(), Message: msg, Jobs: d.resolve(r.Jobs), NextPrompt: r.NextPrompt}
	default:
		d.log.Warn().Msgf("unhandled reply %T", reply)
		return Instruction{Kind: "unknown", Message: unknownMessage}
	}
}

// Fallback is shown when the assistant call failed outright.
func Fallback(rng interface{ Intn(n int) int }) Instruction {
	msg := fallbackMessages[0]
	if rng != nil {
		msg = fallbackMessages[rng.Intn(len(fallbackMessages))]
	}
	return Instruction{Kind: "fallback", Message: msg, NextPrompt: prompt(DefaultPrompt)}
}

// FallbackMessages lists every message Fallback may choose.
func FallbackMessages() []string {
	return append([]string(nil), fallbackMessages...)
}

// CancelNavigation drops a redirect that has not fired yet.
func (d *Dispatcher) CancelNavigation() {
	d.mu.Lock()
	cancel := d.pending
	d.pending = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (d *Dispatcher) scheduleNavigation(nav Navigation) {
	if d.nav == nil || d.sched == nil || nav.Target == "" {
		d.log.Debug().Str("target", nav.Target).Msg("redirect without navigator")
		return
	}
	d.CancelNavigation()

	cancel := d.sched.After(RedirectDelay, func() {
		d.mu.Lock()
		d.pending = nil
		d.mu.Unlock()
		if nav.Client != "" {
			d.nav.SetClientFilter(nav.Target, nav.Client)
		}
		d.nav.NavigateTo(nav.Target)
	})

	d.mu.Lock()
	d.pending = cancel
	d.mu.Unlock()
}

func (d *Dispatcher) resolve(refs []jobs.Ref) []jobs.Record {
	if d.resolver == nil {
		return nil
	}
	return d.resolver.Resolve(refs)
}

func prompt(s string) *string {
	return &s
}
