package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dot-hub/internal/render"
)

// Meta describes the conversation being exported.
type Meta struct {
	SessionID   string
	User        string
	AccessLevel string
}

type Exporter struct {
	overrideDir string
	cwd         string
	now         func() time.Time
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd, now: time.Now}, nil
}

// Export writes entries as markdown and returns the file path.
func (e *Exporter) Export(meta Meta, entries []render.Entry) (string, error) {
	now := e.now().UTC()
	path := e.outputPath(meta, now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	md := BuildSessionMarkdown(meta, BuildTranscriptMarkdown(entries, now), now)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// BuildTranscriptMarkdown renders questions and replies in order. Job cards
// become a bullet list under the reply; now resolves relative due dates.
func BuildTranscriptMarkdown(entries []render.Entry, now time.Time) string {
	var b strings.Builder
	for _, en := range entries {
		if en.IsQuestion() {
			q := strings.TrimSpace(en.Question)
			if q == "" {
				continue
			}
			b.WriteString("## You\n\n")
			b.WriteString(q + "\n\n")
			continue
		}

		resp := en.Response
		body := strings.TrimSpace(render.Markdown(resp.Blocks))
		if body == "" && len(resp.Cards) == 0 {
			continue
		}
		b.WriteString("## Dot\n\n")
		if body != "" {
			b.WriteString(body + "\n\n")
		}
		for _, c := range resp.Cards {
			b.WriteString("- **" + c.Title() + "**: " + c.Summary(now) + "\n")
		}
		if len(resp.Cards) > 0 {
			b.WriteString("\n")
		}
		if resp.Suggestion != nil {
			b.WriteString("> " + resp.Suggestion.Text + "\n\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func BuildSessionMarkdown(meta Meta, transcript string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Dot conversation " + safeValue(meta.SessionID) + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("user: " + safeValue(meta.User) + "\n")
	b.WriteString("access: " + safeValue(meta.AccessLevel) + "\n")
	b.WriteString("```\n\n")
	b.WriteString(transcript)
	if !strings.HasSuffix(transcript, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Exporter) outputPath(meta Meta, now time.Time) string {
	name := "dot-" + safeFileName(meta.SessionID) + "-" + now.Format("20060102-150405") + ".md"
	if e.overrideDir != "" {
		dir := e.overrideDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
		return filepath.Join(dir, name)
	}
	return filepath.Join(e.cwd, "exports", name)
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "session"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
