package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"dot-hub/internal/assistant"
	"dot-hub/internal/jobs"
	"dot-hub/internal/session"
)

type fakeSender struct {
	mu      sync.Mutex
	cleared []string
}

func (f *fakeSender) Send(ctx context.Context, question string, tc assistant.Context) *assistant.Response {
	return nil
}

func (f *fakeSender) ClearSession(ctx context.Context, sessionID string) {
	f.mu.Lock()
	f.cleared = append(f.cleared, sessionID)
	f.mu.Unlock()
}

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, sender *fakeSender) Model {
	t.Helper()
	cache := jobs.NewCache()
	cache.Replace([]jobs.Record{
		{Number: "TOW088", Name: "Summer launch", Stage: "Craft", UpdateDue: "2026-10-23"},
		{Number: "SKY014", Name: "Broadband refresh", WithClient: true, UpdateDue: "2026-10-01"},
		{Number: "SKY015", Name: "Sport promo"},
	})
	m := NewModel(Deps{
		Session: session.New(assistant.Identity{Name: "Sam", AccessLevel: jobs.LevelFull}),
		Sender:  sender,
		Cache:   cache,
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return testNow },
	})
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return out
}

// collect runs cmd and any batched commands it wraps. Only use it where no
// tick commands are queued.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, collect(c)...)
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func answer(t *testing.T, m Model, resp *assistant.Response) Model {
	t.Helper()
	tk, err := m.pipeline.Begin("what's due?")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return update(t, m, turnDoneMsg{ticket: tk, resp: resp})
}

func TestBridgeTimers(t *testing.T) {
	b := newBridge()
	ran := 0
	b.After(time.Second, func() { ran++ })
	cancel := b.After(time.Second, func() { ran += 10 })

	cmds, _, _ := b.take()
	if len(cmds) != 2 {
		t.Fatalf("expected two tick commands, got %d", len(cmds))
	}
	cancel()
	b.fire(1)
	b.fire(1)
	b.fire(2)
	if ran != 1 {
		t.Fatalf("expected first timer once and second canceled, got %d", ran)
	}
}

func TestEnterStartsTurnAndBlocksSecond(t *testing.T) {
	m := newTestModel(t, &fakeSender{})
	m.input.SetValue("what's due this week?")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.pipeline.Busy() {
		t.Fatalf("expected turn in flight")
	}
	entries := m.surface.Entries()
	if len(entries) != 1 || entries[0].Question != "what's due this week?" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared")
	}
	if !m.bridge.thinking {
		t.Fatalf("thinking indicator not shown")
	}

	m.input.SetValue("another")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.surface.Entries()) != 1 || m.status != "Dot is still thinking" {
		t.Fatalf("second submit should be rejected, status=%q", m.status)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.pipeline.Busy() || len(m.surface.Entries()) != 0 || m.bridge.thinking {
		t.Fatalf("home should abandon the turn and clear the conversation")
	}
}

func TestAnswerRendersCardsAndSuggestion(t *testing.T) {
	next := "Want more?"
	m := newTestModel(t, &fakeSender{})
	m = answer(t, m, &assistant.Response{
		Type:       "answer",
		Message:    "Here's what I found",
		Jobs:       []jobs.Ref{jobs.NumberRef("tow 088")},
		NextPrompt: &next,
	})

	if m.bridge.thinking || m.pipeline.Busy() {
		t.Fatalf("turn should be finished")
	}
	content := m.conversationContent(m.surface.Entries())
	for _, want := range []string{"Here's what I found", "TOW088 | Summer launch", "Want more?"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in conversation:\n%s", want, content)
		}
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	entries := m.surface.Entries()
	if len(entries) != 3 || entries[2].Question != "Want more?" {
		t.Fatalf("suggestion should start a new turn, got %+v", entries)
	}
	if !m.pipeline.Busy() {
		t.Fatalf("expected suggestion turn in flight")
	}
}

func TestCardFocusToggleAndUpdate(t *testing.T) {
	m := newTestModel(t, &fakeSender{})
	m = answer(t, m, &assistant.Response{
		Type: "answer", Message: "Two jobs",
		Jobs: []jobs.Ref{jobs.NumberRef("TOW088"), jobs.NumberRef("SKY014")},
	})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.focusCards {
		t.Fatalf("tab should focus cards")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cardIndex != 1 {
		t.Fatalf("card index should clamp at 1, got %d", m.cardIndex)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	cards := m.surface.Cards()
	if cards[0].Expanded() || !cards[1].Expanded() {
		t.Fatalf("space should toggle the focused card only")
	}
	m = update(t, m, runes("u"))
	if m.status != "Update SKY014" {
		t.Fatalf("update should hand the job to the editor, status=%q", m.status)
	}
}

func TestRedirectNavigatesToFilteredWIP(t *testing.T) {
	m := newTestModel(t, &fakeSender{})
	m = answer(t, m, &assistant.Response{
		Type:           "redirect",
		Message:        "Taking you to SKY WIP",
		RedirectTo:     "wip",
		RedirectParams: &assistant.RedirectParams{Client: "SKY"},
	})
	if m.bridge.view != viewHome {
		t.Fatalf("navigation should wait for the delay")
	}
	if len(m.bridge.timers) != 1 {
		t.Fatalf("expected one pending navigation timer, got %d", len(m.bridge.timers))
	}
	var id int
	for k := range m.bridge.timers {
		id = k
	}
	m = update(t, m, timerMsg{id: id})

	if m.bridge.view != viewWIP || m.bridge.wipClient != "SKY" {
		t.Fatalf("expected wip filtered to SKY, got view=%s client=%s", m.bridge.view, m.bridge.wipClient)
	}
	items := m.wipList.Items()
	if len(items) != 2 {
		t.Fatalf("expected two SKY jobs, got %d", len(items))
	}
	if m.wipCard == nil || m.wipCard.Job.Client() != "SKY" {
		t.Fatalf("detail card not synced")
	}
}

func TestHomeCancelsPendingRedirect(t *testing.T) {
	m := newTestModel(t, &fakeSender{})
	m = answer(t, m, &assistant.Response{Type: "redirect", RedirectTo: "tracker"})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.bridge.timers) != 0 {
		t.Fatalf("home should cancel the redirect")
	}
}

func TestWIPSearchFallsBackToCache(t *testing.T) {
	m := newTestModel(t, &fakeSender{})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlW})
	if m.bridge.view != viewWIP || len(m.wipList.Items()) != 3 {
		t.Fatalf("expected all jobs in wip")
	}
	m = update(t, m, runes("/"))
	if !m.searchMode {
		t.Fatalf("expected search mode")
	}
	m.search.SetValue("broadband")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected search command")
	}
	for _, msg := range collect(cmd) {
		m = update(t, m, msg)
	}
	if len(m.wipList.Items()) != 1 || m.wipCard.Job.Number != "SKY014" {
		t.Fatalf("expected SKY014 only, got %d items", len(m.wipList.Items()))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searchQuery != "" || len(m.wipList.Items()) != 3 {
		t.Fatalf("esc should clear the search")
	}
}

func TestSignOutOnQuit(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModel(t, sender)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if len(sender.cleared) != 1 || sender.cleared[0] != "Sam" {
		t.Fatalf("expected remote clear for Sam, got %v", sender.cleared)
	}
	if m.pipeline.Session().SignedIn() {
		t.Fatalf("expected signed out")
	}
}

func TestTrackerContent(t *testing.T) {
	records := []jobs.Record{
		{Number: "TOW088"},
		{Number: "SKY014", WithClient: true, UpdateDue: "2026-10-01"},
		{Number: "SKY015"},
	}
	out := trackerContent(records, jobs.Access{Level: jobs.LevelFull}, "sky", testNow)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two clients:\n%s", out)
	}
	if got := strings.Join(strings.Fields(lines[1]), " "); got != "> SKY 2 1 1" {
		t.Fatalf("unexpected SKY row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  TOW") {
		t.Fatalf("unexpected TOW row %q", lines[2])
	}

	restricted := trackerContent(records, jobs.Access{Level: jobs.LevelClientWIP, Client: "TOW"}, "", testNow)
	if strings.Contains(restricted, "SKY") {
		t.Fatalf("restricted user should not see SKY:\n%s", restricted)
	}
}
