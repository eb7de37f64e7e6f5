package render

import (
	"sync"

	"dot-hub/internal/dispatch"
)

// Response is one rendered assistant turn.
type Response struct {
	Kind       string
	Message    string
	Blocks     []Block
	Cards      []*Card
	Suggestion *Suggestion
	Navigation *dispatch.Navigation
}

// Suggestion is the follow-up prompt offered under a response. Activating it
// submits the text as a new question.
type Suggestion struct {
	Text   string
	submit func(string)

	mu   sync.Mutex
	used bool
}

// Activate submits the suggestion once. Later calls do nothing and report
// false.
func (s *Suggestion) Activate() bool {
	s.mu.Lock()
	if s.used || s.submit == nil {
		s.mu.Unlock()
		return false
	}
	s.used = true
	s.mu.Unlock()
	s.submit(s.Text)
	return true
}

func (s *Suggestion) Used() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Surface is the conversation area.
type Surface interface {
	AppendQuestion(text string)
	Append(resp *Response)
	ScrollToBottom()
	Reset()
}

type Renderer struct {
	surface Surface
	editor  JobEditor
	submit  func(string)
}

// New builds a renderer. submit is how suggestions re-enter the pipeline; it
// is set later with SetSubmit when the pipeline is built after the renderer.
func New(surface Surface, editor JobEditor, submit func(string)) *Renderer {
	return &Renderer{surface: surface, editor: editor, submit: submit}
}

func (r *Renderer) SetSubmit(submit func(string)) {
	r.submit = submit
}

// Render builds the response for in, appends it to the surface and scrolls
// to it.
func (r *Renderer) Render(in dispatch.Instruction) *Response {
	resp := &Response{
		Kind:       in.Kind,
		Message:    in.Message,
		Blocks:     Format(in.Message),
		Navigation: in.Navigation,
	}
	for _, job := range in.Jobs {
		resp.Cards = append(resp.Cards, NewCard(job, r.editor))
	}
	if in.NextPrompt != nil && *in.NextPrompt != "" {
		resp.Suggestion = &Suggestion{Text: *in.NextPrompt, submit: r.submit}
	}

	if r.surface != nil {
		r.surface.Append(resp)
		r.surface.ScrollToBottom()
	}
	return resp
}
