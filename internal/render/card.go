package render

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"dot-hub/internal/jobs"
)

// JobEditor opens the job-edit surface for a record.
type JobEditor interface {
	Open(job jobs.Record)
}

// Card is one expandable job card. Cards start collapsed.
type Card struct {
	Job      jobs.Record
	expanded bool
	editor   JobEditor
}

func NewCard(job jobs.Record, editor JobEditor) *Card {
	return &Card{Job: job, editor: editor}
}

// Toggle flips the expanded state and returns the new state.
func (c *Card) Toggle() bool {
	c.expanded = !c.expanded
	return c.expanded
}

func (c *Card) Expanded() bool { return c.expanded }

// Update hands the job to the editor.
func (c *Card) Update() {
	if c.editor != nil {
		c.editor.Open(c.Job)
	}
}

func (c *Card) Title() string {
	return c.Job.Number + " | " + c.Job.Name
}

func (c *Card) Latest() string {
	if u := strings.TrimSpace(c.Job.Update); u != "" {
		return u
	}
	return "No updates yet"
}

// Summary is "stage - Live X - With client", skipping missing parts.
func (c *Card) Summary(now time.Time) string {
	var parts []string
	if c.Job.Stage != "" {
		parts = append(parts, c.Job.Stage)
	}
	if c.Job.LiveDate != "" {
		parts = append(parts, "Live "+DueLabel(c.Job.LiveDate, now))
	}
	if c.Job.WithClient {
		parts = append(parts, "With client")
	}
	return strings.Join(parts, " - ")
}

func (c *Card) Description() string {
	if d := strings.TrimSpace(c.Job.Description); d != "" {
		return d
	}
	return "No description"
}

// RecentActivity returns up to three history entries, newest first.
func (c *Card) RecentActivity() []string {
	h := c.Job.UpdateHistory
	out := make([]string, 0, 3)
	for i := len(h) - 1; i >= 0 && len(out) < 3; i-- {
		out = append(out, h[i])
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DueLabel renders a due date relative to now: Today, Tomorrow, Overdue,
// "Mon 2 Jan", or TBC when missing or unreadable.
func DueLabel(raw string, now time.Time) string {
	t, ok := parseDate(raw)
	if !ok {
		return "TBC"
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	case day.Before(today):
		return "Overdue"
	default:
		return t.Format("Mon 2 Jan")
	}
}

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	cardFocusStyle = cardStyle.BorderForeground(lipgloss.Color("39"))
	cardTitleStyle = lipgloss.NewStyle().Bold(true)
	cardMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// View lays the card out for a terminal of the given width.
func (c *Card) View(width int, now time.Time, focused bool) string {
	if width < 24 {
		width = 24
	}
	inner := width - 4

	due := DueLabel(c.Job.UpdateDue, now)
	dueText := cardMetaStyle.Render("due " + due)
	if due == "Overdue" {
		dueText = overdueStyle.Render("due " + due)
	}

	lines := []string{
		cardTitleStyle.Render(ansi.Truncate(c.Title(), inner, "…")),
		ansi.Truncate(c.Latest(), inner, "…"),
		dueText,
	}
	if c.expanded {
		if s := c.Summary(now); s != "" {
			lines = append(lines, cardMetaStyle.Render(ansi.Truncate(s, inner, "…")))
		}
		lines = append(lines, "", cardLabelStyle.Render("The Project"))
		lines = append(lines, lipgloss.NewStyle().Width(inner).Render(c.Description()))
		lines = append(lines, "", cardLabelStyle.Render("Recent Activity"))
		recent := c.RecentActivity()
		if len(recent) == 0 {
			lines = append(lines, cardMetaStyle.Render("No recent activity"))
		}
		for _, entry := range recent {
			lines = append(lines, ansi.Truncate("· "+entry, inner, "…"))
		}
		lines = append(lines, cardMetaStyle.Render("[u] update"))
	}

	style := cardStyle
	if focused {
		style = cardFocusStyle
	}
	return style.Width(width - 2).Render(strings.Join(lines, "\n"))
}
