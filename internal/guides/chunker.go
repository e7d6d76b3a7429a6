package guides

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkLen is the soft length target for a single chunk. It
// preserves the observed behaviour of the retrieval pipeline.
const DefaultMaxChunkLen = 1200

var paragraphBreakRe = regexp.MustCompile(`\n{2,}`)

// Chunk splits raw guide text into paragraph-aligned chunks. Consecutive
// paragraphs are concatenated greedily; when appending the next paragraph
// would push the buffer past max, the buffer is flushed first. A single
// paragraph longer than max stays whole in its own chunk: max is a soft
// target, not a hard cap. Deterministic for a given input and max.
func Chunk(raw string, max int) []string {
	if max <= 0 {
		max = DefaultMaxChunkLen
	}

	var paragraphs []string
	for _, p := range paragraphBreakRe.Split(raw, -1) {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	// Lengths are counted in runes so multi-byte text fills chunks to the
	// same size as ASCII.
	var chunks []string
	var buf strings.Builder
	bufLen := 0
	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if bufLen > 0 && bufLen+1+n > max {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
		if bufLen > 0 {
			buf.WriteByte('\n')
			bufLen++
		}
		buf.WriteString(p)
		bufLen += n
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
