package render

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"dot-hub/internal/dispatch"
	"dot-hub/internal/jobs"
)

func TestFormatGroupsBulletRuns(t *testing.T) {
	msg := "Here's the lot:\n\n- one\n• two\n  * three  \nThat's all\n- four"
	got := Format(msg)
	want := []Block{
		{Kind: Paragraph, Lines: []string{"Here's the lot:"}},
		{Kind: List, Lines: []string{"one", "two", "three"}},
		{Kind: Paragraph, Lines: []string{"That's all"}},
		{Kind: List, Lines: []string{"four"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestFormatRequiresSpaceAfterMarker(t *testing.T) {
	got := Format("-5 degrees\n*bold*")
	if len(got) != 2 || got[0].Kind != Paragraph || got[1].Kind != Paragraph {
		t.Fatalf("expected two paragraphs, got %+v", got)
	}
	if len(Format("  \n\n")) != 0 {
		t.Fatalf("blank message should have no blocks")
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(Format("Intro\n- a\n- b\nOutro"))
	want := "Intro\n\n- a\n- b\n\nOutro"
	if md != want {
		t.Fatalf("got %q want %q", md, want)
	}
}

type editorSpy struct{ opened []string }

func (e *editorSpy) Open(job jobs.Record) { e.opened = append(e.opened, job.Number) }

func TestRenderAppendsAndScrolls(t *testing.T) {
	surface := NewTranscript()
	editor := &editorSpy{}
	var submitted []string
	r := New(surface, editor, func(s string) { submitted = append(submitted, s) })

	next := "Want more?"
	resp := r.Render(dispatch.Instruction{
		Kind:       "answer",
		Message:    "Here's what I found",
		Jobs:       []jobs.Record{{Number: "TOW088", Name: "Summer launch"}},
		NextPrompt: &next,
	})

	if surface.Last() != resp || surface.Scrolls() != 1 {
		t.Fatalf("response not appended and scrolled")
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Title() != "TOW088 | Summer launch" {
		t.Fatalf("unexpected cards %+v", resp.Cards)
	}

	card := resp.Cards[0]
	if card.Expanded() || !card.Toggle() || !card.Expanded() || card.Toggle() {
		t.Fatalf("card toggle did not flip state")
	}
	card.Update()
	if !reflect.DeepEqual(editor.opened, []string{"TOW088"}) {
		t.Fatalf("editor not opened for card: %v", editor.opened)
	}

	if resp.Suggestion == nil || resp.Suggestion.Text != "Want more?" {
		t.Fatalf("expected suggestion")
	}
	if !resp.Suggestion.Activate() || resp.Suggestion.Activate() {
		t.Fatalf("suggestion should activate exactly once")
	}
	if !reflect.DeepEqual(submitted, []string{"Want more?"}) {
		t.Fatalf("unexpected submissions %v", submitted)
	}
}

func TestRenderWithoutPromptHasNoSuggestion(t *testing.T) {
	r := New(NewTranscript(), nil, nil)
	if resp := r.Render(dispatch.Instruction{Message: "Which one?"}); resp.Suggestion != nil {
		t.Fatalf("unexpected suggestion")
	}
}

func TestDueLabel(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.Local)
	cases := map[string]string{
		"2026-10-18":           "Today",
		"2026-10-19T09:00:00Z": "Tomorrow",
		"2026-10-01":           "Overdue",
		"2026-10-23":           "Fri 23 Oct",
		"":                     "TBC",
		"soon":                 "TBC",
	}
	for in, want := range cases {
		if got := DueLabel(in, now); got != want {
			t.Fatalf("DueLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCardText(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)
	c := NewCard(jobs.Record{
		Number:        "SKY014",
		Name:          "Broadband refresh",
		Stage:         "Craft",
		LiveDate:      "2026-10-19",
		WithClient:    true,
		UpdateHistory: []string{"1 Oct | kickoff", "5 Oct | scripts", "9 Oct | shoot", "12 Oct | edit"},
	}, nil)

	if c.Latest() != "No updates yet" || c.Description() != "No description" {
		t.Fatalf("unexpected defaults %q %q", c.Latest(), c.Description())
	}
	if got := c.Summary(now); got != "Craft - Live Tomorrow - With client" {
		t.Fatalf("unexpected summary %q", got)
	}
	want := []string{"12 Oct | edit", "9 Oct | shoot", "5 Oct | scripts"}
	if got := c.RecentActivity(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	collapsed := c.View(60, now, false)
	if strings.Contains(collapsed, "Recent Activity") {
		t.Fatalf("collapsed card shows detail")
	}
	c.Toggle()
	expanded := c.View(60, now, true)
	if !strings.Contains(expanded, "Recent Activity") || !strings.Contains(expanded, "12 Oct | edit") {
		t.Fatalf("expanded card missing detail:\n%s", expanded)
	}
}

func TestTranscriptResetAndCards(t *testing.T) {
	tr := NewTranscript()
	changes := 0
	tr.OnChange(func() { changes++ })
	r := New(tr, nil, nil)

	tr.AppendQuestion("Show me SKY")
	r.Render(dispatch.Instruction{Jobs: []jobs.Record{{Number: "SKY014"}, {Number: "SKY015"}}})
	if len(tr.Entries()) != 2 || len(tr.Cards()) != 2 {
		t.Fatalf("unexpected transcript %+v", tr.Entries())
	}
	if !tr.Entries()[0].IsQuestion() {
		t.Fatalf("first entry should be the question")
	}
	tr.Reset()
	if len(tr.Entries()) != 0 || tr.Last() != nil {
		t.Fatalf("reset left entries")
	}
	if changes != 4 {
		t.Fatalf("expected 4 change notifications, got %d", changes)
	}
}
