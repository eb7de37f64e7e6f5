package render

import "sync"

// Entry is one item on the conversation surface: a question or a response.
type Entry struct {
	Question string
	Response *Response
}

func (e Entry) IsQuestion() bool { return e.Response == nil }

// Transcript is an in-memory Surface. The dashboard draws from it and the
// exporter writes it out.
type Transcript struct {
	mu       sync.Mutex
	entries  []Entry
	scrolls  int
	onChange func()
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// OnChange registers a callback run after every mutation.
func (t *Transcript) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

func (t *Transcript) AppendQuestion(text string) {
	t.mutate(func() { t.entries = append(t.entries, Entry{Question: text}) })
}

func (t *Transcript) Append(resp *Response) {
	t.mutate(func() { t.entries = append(t.entries, Entry{Response: resp}) })
}

func (t *Transcript) ScrollToBottom() {
	t.mutate(func() { t.scrolls++ })
}

func (t *Transcript) Reset() {
	t.mutate(func() { t.entries = nil })
}

func (t *Transcript) mutate(fn func()) {
	t.mu.Lock()
	fn()
	cb := t.onChange
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Last returns the newest response, or nil.
func (t *Transcript) Last() *Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Response != nil {
			return t.entries[i].Response
		}
	}
	return nil
}

// Cards lists every card on the surface in display order.
func (t *Transcript) Cards() []*Card {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Card
	for _, e := range t.entries {
		if e.Response != nil {
			out = append(out, e.Response.Cards...)
		}
	}
	return out
}

// Scrolls counts ScrollToBottom calls.
func (t *Transcript) Scrolls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrolls
}
