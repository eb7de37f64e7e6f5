package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"dot-hub/internal/assistant"
	"dot-hub/internal/dispatch"
	"dot-hub/internal/jobs"
	"dot-hub/internal/metrics"
	"dot-hub/internal/render"
	"dot-hub/internal/schedule"
	"dot-hub/internal/thinking"
)

// Options are the collaborators a pipeline is wired from. Session, Display,
// Navigator and Editor may be nil; Identity is used when Session is.
type Options struct {
	Session   *Session
	Identity  assistant.Identity
	Sender    Sender
	Cache     *jobs.Cache
	Scheduler schedule.Scheduler
	Navigator dispatch.Navigator
	Display   thinking.Display
	Editor    render.JobEditor
	Surface   render.Surface
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
	Rand      interface{ Intn(n int) int }
	Now       func() time.Time
}

// Assemble builds the turn pipeline. Suggestions resubmit synchronously
// through Ask until the caller installs its own submitter on the renderer.
func Assemble(o Options) *Pipeline {
	sched := o.Scheduler
	if sched == nil {
		sched = schedule.Timers{}
	}

	cache := o.Cache
	if cache == nil {
		cache = jobs.NewCache()
	}

	resolver := jobs.NewResolver(cache, o.Log.With().Str("component", "resolver").Logger())
	resolver.OnDangling = func(string) { o.Metrics.Unresolved() }

	dispatcher := dispatch.New(resolver, sched, o.Navigator, o.Log.With().Str("component", "dispatch").Logger())
	renderer := render.New(o.Surface, o.Editor, nil)

	var choreo *thinking.Choreographer
	if o.Display != nil {
		choreo = thinking.New(sched, o.Display, o.Rand)
	}

	sess := o.Session
	if sess == nil {
		sess = New(o.Identity)
	}

	p := NewPipeline(Deps{
		Session:    sess,
		Sender:     o.Sender,
		Cache:      cache,
		Dispatcher: dispatcher,
		Renderer:   renderer,
		Surface:    o.Surface,
		Thinking:   choreo,
		Metrics:    o.Metrics,
		Log:        o.Log.With().Str("component", "pipeline").Logger(),
		Rand:       o.Rand,
		Now:        o.Now,
	})
	renderer.SetSubmit(func(text string) {
		if _, err := p.Ask(context.Background(), text); err != nil {
			p.log.Debug().Err(err).Msg("suggestion not submitted")
		}
	})
	return p
}
