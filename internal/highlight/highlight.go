// Package highlight marks matches inside rendered (possibly ANSI-styled) text.
// Matches never span an escape sequence.
package highlight

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// Query highlights case-insensitive occurrences of query.
func Query(input, query string, wrap func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	return Apply(input, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(query)), wrap)
}

// JobPattern matches any of the given job numbers. Whitespace is allowed
// between the letter prefix and the digits, so "TOW 088" matches TOW088.
// It returns nil when numbers is empty.
func JobPattern(numbers []string) *regexp.Regexp {
	seen := map[string]bool{}
	alts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.ToUpper(strings.Join(strings.Fields(n), ""))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		split := strings.IndexFunc(n, unicode.IsDigit)
		if split <= 0 {
			alts = append(alts, regexp.QuoteMeta(n))
			continue
		}
		alts = append(alts, regexp.QuoteMeta(n[:split])+`\s*`+regexp.QuoteMeta(n[split:]))
	}
	if len(alts) == 0 {
		return nil
	}
	// Longest first so TOW0881 wins over TOW088.
	sort.Slice(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Apply wraps every match of re, line by line, leaving escape sequences
// untouched. A nil re returns input unchanged.
func Apply(input string, re *regexp.Regexp, wrap func(string) string) Result {
	if re == nil {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")
	var out strings.Builder
	var lineMatches []int
	total := 0

	for lineNo, line := range lines {
		core, hasNewline := strings.CutSuffix(line, "\n")
		rendered, count := applyToANSIText(core, re, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			lineMatches = append(lineMatches, lineNo)
			total += count
		}
	}

	return Result{Text: out.String(), Count: total, LineIndex: lineMatches}
}

func applyToANSIText(s string, re *regexp.Regexp, wrap func(string) string) (string, int) {
	indices := ansiCSI.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return applyToPlain(s, re, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range indices {
		if idx[0] > pos {
			plain, count := applyToPlain(s[pos:idx[0]], re, wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		plain, count := applyToPlain(s[pos:], re, wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func applyToPlain(s string, re *regexp.Regexp, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s, 0
	}
	var out strings.Builder
	start, count := 0, 0
	for _, m := range matches {
		if m[0] == m[1] {
			continue
		}
		out.WriteString(s[start:m[0]])
		out.WriteString(wrap(s[m[0]:m[1]]))
		start = m[1]
		count++
	}
	out.WriteString(s[start:])
	return out.String(), count
}
