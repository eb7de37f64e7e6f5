package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dot-hub/internal/assistant"
	"dot-hub/internal/dispatch"
	"dot-hub/internal/jobs"
	"dot-hub/internal/metrics"
	"dot-hub/internal/render"
	"dot-hub/internal/thinking"
)

// IdleTimeout is how long a signed-in user may be inactive before the remote
// session is cleared.
const IdleTimeout = 15 * time.Minute

var (
	// ErrTurnInFlight is returned by Begin while a previous turn is outstanding.
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrStaleTurn means the conversation moved on before the reply arrived.
	ErrStaleTurn = errors.New("turn abandoned before reply")
)

// Sender is the remote assistant.
type Sender interface {
	Send(ctx context.Context, question string, tc assistant.Context) *assistant.Response
	ClearSession(ctx context.Context, sessionID string)
}

// Ticket identifies one submitted turn. Only the newest ticket may finish.
type Ticket struct {
	Seq      uint64
	Question string
	Context  assistant.Context
	Started  time.Time
}

type Deps struct {
	Session    *Session
	Sender     Sender
	Cache      *jobs.Cache
	Dispatcher *dispatch.Dispatcher
	Renderer   *render.Renderer
	Surface    render.Surface
	Thinking   *thinking.Choreographer
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
	Rand       interface{ Intn(n int) int }
	Now        func() time.Time
}

type Pipeline struct {
	session    *Session
	sender     Sender
	cache      *jobs.Cache
	dispatcher *dispatch.Dispatcher
	renderer   *render.Renderer
	surface    render.Surface
	thinking   *thinking.Choreographer
	metrics    *metrics.Metrics
	log        zerolog.Logger
	rng        interface{ Intn(n int) int }
	now        func() time.Time

	mu           sync.Mutex
	seq          uint64
	pending      *Ticket
	lastActivity time.Time
	idleCleared  bool
}

func NewPipeline(d Deps) *Pipeline {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		session:      d.Session,
		sender:       d.Sender,
		cache:        d.Cache,
		dispatcher:   d.Dispatcher,
		renderer:     d.Renderer,
		surface:      d.Surface,
		thinking:     d.Thinking,
		metrics:      d.Metrics,
		log:          d.Log,
		rng:          d.Rand,
		now:          now,
		lastActivity: now(),
	}
}

func (p *Pipeline) Session() *Session { return p.session }

func (p *Pipeline) Renderer() *render.Renderer { return p.renderer }

// Busy reports whether a turn is outstanding. Input is disabled while it is.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Begin records the question on the surface, starts the thinking animation
// and issues a ticket. A blank question asks the default prompt.
func (p *Pipeline) Begin(question string) (Ticket, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		question = dispatch.DefaultPrompt
	}

	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return Ticket{}, ErrTurnInFlight
	}
	p.seq++
	t := Ticket{
		Seq:      p.seq,
		Question: question,
		Context:  assistant.NewContext(p.session.Identity(), p.snapshot()),
		Started:  p.now(),
	}
	p.pending = &t
	p.lastActivity = t.Started
	p.idleCleared = false
	p.mu.Unlock()

	if p.surface != nil {
		p.surface.AppendQuestion(question)
		p.surface.ScrollToBottom()
	}
	if p.thinking != nil {
		p.thinking.Start()
	}
	p.log.Debug().Uint64("seq", t.Seq).Msg("turn started")
	return t, nil
}

// Call performs the network half of the turn. It is safe to run off the UI
// goroutine.
func (p *Pipeline) Call(ctx context.Context, t Ticket) *assistant.Response {
	return p.sender.Send(ctx, t.Question, t.Context)
}

// Finish renders the reply for t. Replies for a ticket that is no longer
// current are dropped and report false.
func (p *Pipeline) Finish(t Ticket, resp *assistant.Response) (*render.Response, bool) {
	p.mu.Lock()
	if p.pending == nil || p.pending.Seq != t.Seq {
		p.mu.Unlock()
		p.metrics.StaleReply()
		p.log.Debug().Uint64("seq", t.Seq).Msg("stale reply dropped")
		return nil, false
	}
	p.pending = nil
	p.lastActivity = p.now()
	p.mu.Unlock()

	if p.thinking != nil {
		p.thinking.Stop()
	}

	var in dispatch.Instruction
	if resp == nil {
		in = dispatch.Fallback(p.rng)
	} else {
		in = p.dispatcher.Dispatch(assistant.Decode(*resp))
	}
	p.metrics.Turn(in.Kind)

	out := p.renderer.Render(in)
	p.log.Debug().
		Uint64("seq", t.Seq).
		Str("kind", in.Kind).
		Int("cards", len(out.Cards)).
		Dur("elapsed", p.now().Sub(t.Started)).
		Msg("turn rendered")
	return out, true
}

// Ask runs a whole turn synchronously.
func (p *Pipeline) Ask(ctx context.Context, question string) (*render.Response, error) {
	t, err := p.Begin(question)
	if err != nil {
		return nil, err
	}
	resp := p.Call(ctx, t)
	out, ok := p.Finish(t, resp)
	if !ok {
		return nil, ErrStaleTurn
	}
	return out, nil
}

// Home abandons any outstanding turn and clears the conversation.
func (p *Pipeline) Home() {
	p.mu.Lock()
	p.pending = nil
	p.lastActivity = p.now()
	p.mu.Unlock()

	if p.dispatcher != nil {
		p.dispatcher.CancelNavigation()
	}
	if p.thinking != nil {
		p.thinking.Stop()
	}
	p.session.Reset()
	if p.surface != nil {
		p.surface.Reset()
	}
}

// SignOut clears the remote session, then goes home and forgets the user.
func (p *Pipeline) SignOut(ctx context.Context) {
	id := p.session.ID()
	signedIn := p.session.SignedIn()
	p.Home()
	if signedIn {
		p.sender.ClearSession(ctx, id)
		p.metrics.SessionCleared("signout")
	}
	p.session.SetIdentity(assistant.Identity{})
}

// Touch records user activity.
func (p *Pipeline) Touch() {
	p.mu.Lock()
	p.lastActivity = p.now()
	p.idleCleared = false
	p.mu.Unlock()
}

// Idle clears the remote session once a signed-in user has been inactive for
// IdleTimeout. It reports whether a clear was sent.
func (p *Pipeline) Idle(ctx context.Context, now time.Time) bool {
	p.mu.Lock()
	if p.idleCleared || p.pending != nil || now.Sub(p.lastActivity) < IdleTimeout {
		p.mu.Unlock()
		return false
	}
	p.idleCleared = true
	p.mu.Unlock()

	if !p.session.SignedIn() {
		return false
	}
	p.sender.ClearSession(ctx, p.session.ID())
	p.metrics.SessionCleared("idle")
	p.log.Info().Str("session_id", p.session.ID()).Msg("session cleared after inactivity")
	return true
}

func (p *Pipeline) snapshot() []jobs.Record {
	if p.cache == nil {
		return nil
	}
	return p.cache.Snapshot()
}
