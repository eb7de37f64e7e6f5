// Package render turns a dispatched turn into what the conversation shows:
// message blocks, job cards and the follow-up suggestion.
package render

import (
	"regexp"
	"strings"
)

type BlockKind int

const (
	Paragraph BlockKind = iota
	List
)

// Block is a paragraph (one line) or a bullet list (one line per item).
type Block struct {
	Kind  BlockKind
	Lines []string
}

var bulletPrefix = regexp.MustCompile(`^[•\-\*]\s`)
var bulletStrip = regexp.MustCompile(`^[•\-\*]\s*`)

// Format splits a message into blocks. Lines are trimmed and blank lines
// dropped; consecutive bullet lines collapse into one List.
func Format(message string) []Block {
	var blocks []Block
	for _, raw := range strings.Split(message, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !bulletPrefix.MatchString(line) {
			blocks = append(blocks, Block{Kind: Paragraph, Lines: []string{line}})
			continue
		}
		item := bulletStrip.ReplaceAllString(line, "")
		if n := len(blocks); n > 0 && blocks[n-1].Kind == List {
			blocks[n-1].Lines = append(blocks[n-1].Lines, item)
			continue
		}
		blocks = append(blocks, Block{Kind: List, Lines: []string{item}})
	}
	return blocks
}

// Markdown renders blocks for glamour. Paragraphs are separated by a blank
// line; list items become "- " bullets.
func Markdown(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case List:
			items := make([]string, len(b.Lines))
			for i, l := range b.Lines {
				items[i] = "- " + l
			}
			parts = append(parts, strings.Join(items, "\n"))
		default:
			parts = append(parts, strings.Join(b.Lines, " "))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Plain renders blocks without markup, for logs and the headless printer.
func Plain(blocks []Block) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		for j, l := range block.Lines {
			if j > 0 {
				b.WriteString("\n")
			}
			if block.Kind == List {
				b.WriteString("  • ")
			}
			b.WriteString(l)
		}
	}
	return b.String()
}
