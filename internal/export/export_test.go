package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dot-hub/internal/dispatch"
	"dot-hub/internal/jobs"
	"dot-hub/internal/render"
)

func sampleEntries() []render.Entry {
	r := render.New(nil, nil, nil)
	next := "Want the rest?"
	resp := r.Render(dispatch.Instruction{
		Kind:       "answer",
		Message:    "Two jobs due:\n• TOW088 Friday\n• SKY014 Monday",
		Jobs:       []jobs.Record{{Number: "TOW088", Name: "Summer launch", Stage: "Craft"}},
		NextPrompt: &next,
	})
	return []render.Entry{
		{Question: "What's due?"},
		{Response: resp},
		{Question: "   "},
		{Response: r.Render(dispatch.Instruction{Kind: "answer"})},
	}
}

func TestBuildTranscriptMarkdown(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	out := BuildTranscriptMarkdown(sampleEntries(), now)

	if strings.Count(out, "## You") != 1 || strings.Count(out, "## Dot") != 1 {
		t.Fatalf("blank entries should be skipped, got:\n%s", out)
	}
	for _, want := range []string{"What's due?", "- TOW088 Friday", "- **TOW088 | Summer launch**: Craft", "> Want the rest?"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "## You") > strings.Index(out, "## Dot") {
		t.Fatalf("question should precede reply")
	}
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{overrideDir: dir, now: func() time.Time {
		return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	}}

	path, err := e.Export(Meta{SessionID: "Sam Jones", User: "Sam Jones", AccessLevel: "Full"}, sampleEntries())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(dir, "dot-Sam_Jones-20261018-093000.md"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	md := string(b)
	if !strings.HasPrefix(md, "# Dot conversation Sam Jones") {
		t.Fatalf("unexpected header:\n%s", md)
	}
	if !strings.Contains(md, "access: Full") || !strings.Contains(md, "Exported: 2026-10-18T09:30:00Z") {
		t.Fatalf("missing metadata:\n%s", md)
	}
}

func TestOutputPathRelativeOverride(t *testing.T) {
	e := &Exporter{overrideDir: "out", cwd: "/work"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := e.outputPath(Meta{}, now); got != "/work/out/dot-session-20260102-030405.md" {
		t.Fatalf("unexpected path %q", got)
	}
	e.overrideDir = ""
	if got := e.outputPath(Meta{SessionID: "a/b"}, now); got != "/work/exports/dot-a_b-20260102-030405.md" {
		t.Fatalf("unexpected default path %q", got)
	}
}
