// Package commands parses "Category > Block" command sequences out of
// free-form chat text. The exporter consumes the sequences to build Scratch
// scripts; the chat UI uses the same splitting rule to render command chips.
package commands

import (
	"regexp"
	"strings"
)

var (
	inlineSpanRe   = regexp.MustCompile("`([^`]+)`")
	separatorRe    = regexp.MustCompile(`\s*(?:->|→|⇒|=>|\+|,|;)\s*`)
	bulletPrefixRe = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
)

var arrowSeparators = []string{"->", "→", "⇒", "=>"}

// Extract scans raw text for command sequences: inline code spans that
// contain a ">", whole lines wrapped in backticks, and lines carrying
// arrow-like separators or a ">" once leading bullet/number markers are
// stripped. Each hit is split on the fixed separator set into trimmed
// tokens; sequences with no tokens are discarded. Sequence order follows
// first appearance, inline spans before whole lines.
func Extract(raw string) [][]string {
	var sequences [][]string
	seen := make(map[string]bool)

	add := func(text string) {
		cleaned := strings.TrimSpace(strings.ReplaceAll(text, "`", ""))
		if !strings.Contains(cleaned, ">") || seen[cleaned] {
			return
		}
		var tokens []string
		for _, part := range separatorRe.Split(cleaned, -1) {
			part = strings.TrimSpace(part)
			if part != "" {
				tokens = append(tokens, part)
			}
		}
		if len(tokens) > 0 {
			seen[cleaned] = true
			sequences = append(sequences, tokens)
		}
	}

	for _, m := range inlineSpanRe.FindAllStringSubmatch(raw, -1) {
		add(m[1])
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "`") && strings.HasSuffix(line, "`") && len(line) > 1 {
			add(line[1 : len(line)-1])
			continue
		}
		stripped := bulletPrefixRe.ReplaceAllString(line, "")
		if hasArrow(stripped) || strings.Contains(stripped, ">") {
			add(stripped)
		}
	}

	return sequences
}

func hasArrow(s string) bool {
	for _, sep := range arrowSeparators {
		if strings.Contains(s, sep) {
			return true
		}
	}
	return false
}
