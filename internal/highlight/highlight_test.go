package highlight

import (
	"strings"
	"testing"
)

func brackets(s string) string { return "[[" + s + "]]" }

func TestQueryCaseInsensitive(t *testing.T) {
	in := "Poster reprint\nsecond poster\n"
	res := Query(in, "poster", brackets)

	if res.Count != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Count)
	}
	if len(res.LineIndex) != 2 || res.LineIndex[0] != 0 || res.LineIndex[1] != 1 {
		t.Fatalf("unexpected line indexes: %#v", res.LineIndex)
	}
	if !strings.Contains(res.Text, "[[Poster]]") || !strings.Contains(res.Text, "[[poster]]") {
		t.Fatalf("highlight wrapper not applied: %q", res.Text)
	}
}

func TestQueryTreatsInputLiterally(t *testing.T) {
	res := Query("cost (est.) 4k", "(est.)", brackets)
	if res.Count != 1 || !strings.Contains(res.Text, "[[(est.)]]") {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := Query("anything", "  ", brackets); res.Count != 0 || res.Text != "anything" {
		t.Fatalf("blank query should be a no-op")
	}
}

func TestApplyPreservesEscapeSequences(t *testing.T) {
	in := "a \x1b[31mTOW088\x1b[0m b"
	res := Apply(in, JobPattern([]string{"TOW088"}), func(s string) string { return "<" + s + ">" })

	if res.Count != 1 {
		t.Fatalf("expected 1 match, got %d", res.Count)
	}
	if !strings.Contains(res.Text, "\x1b[31m<TOW088>\x1b[0m") {
		t.Fatalf("expected escaped segment to stay intact, got %q", res.Text)
	}
}

func TestApplyDoesNotMatchAcrossANSIBoundaries(t *testing.T) {
	in := "TO\x1b[31mW0\x1b[0m88"
	res := Apply(in, JobPattern([]string{"TOW088"}), brackets)
	if res.Count != 0 {
		t.Fatalf("expected 0 matches across ansi boundaries, got %d", res.Count)
	}
}

func TestJobPattern(t *testing.T) {
	re := JobPattern([]string{"TOW088", "sky 014", "TOW088", ""})
	res := Apply("tow 088 and SKY014 but not TOW0889 or XSKY014", re, brackets)
	if res.Count != 2 {
		t.Fatalf("expected 2 matches, got %d: %q", res.Count, res.Text)
	}
	if !strings.Contains(res.Text, "[[tow 088]]") || !strings.Contains(res.Text, "[[SKY014]]") {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if JobPattern(nil) != nil {
		t.Fatalf("expected nil pattern for no numbers")
	}
	if res := Apply("TOW088", nil, brackets); res.Text != "TOW088" {
		t.Fatalf("nil pattern should be a no-op")
	}
}
