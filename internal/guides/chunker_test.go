package guides

import (
	"strings"
	"testing"
)

func TestChunk_KeepsParagraphOrder(t *testing.T) {
	raw := "first paragraph\n\nsecond paragraph\n\n\nthird paragraph"
	chunks := Chunk(raw, 1200)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "first paragraph\nsecond paragraph\nthird paragraph"
	if chunks[0] != want {
		t.Fatalf("expected %q, got %q", want, chunks[0])
	}
}

func TestChunk_FlushesBeforeOverflow(t *testing.T) {
	a := strings.Repeat("a", 30)
	b := strings.Repeat("b", 30)
	c := strings.Repeat("c", 30)
	raw := a + "\n\n" + b + "\n\n" + c
	chunks := Chunk(raw, 65)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != a+"\n"+b {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
	if chunks[1] != c {
		t.Fatalf("unexpected second chunk: %q", chunks[1])
	}
}

func TestChunk_OversizedParagraphStaysWhole(t *testing.T) {
	big := strings.Repeat("x", 500)
	raw := "intro\n\n" + big + "\n\noutro"
	chunks := Chunk(raw, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1] != big {
		t.Fatalf("oversized paragraph was split")
	}
}

func TestChunk_ReconstructsAllParagraphs(t *testing.T) {
	raw := "alpha one\n\nbeta two\n\ngamma three\n\ndelta four"
	chunks := Chunk(raw, 20)
	joined := strings.Join(chunks, "\n")
	for _, p := range []string{"alpha one", "beta two", "gamma three", "delta four"} {
		if !strings.Contains(joined, p) {
			t.Fatalf("paragraph %q missing from chunks", p)
		}
	}
	// No chunk except an outsized single paragraph may exceed max by more
	// than one paragraph's length.
	for _, c := range chunks {
		if len(c) > 20+len("gamma three") {
			t.Fatalf("chunk too long: %q", c)
		}
	}
}

func TestChunk_CountsRunesNotBytes(t *testing.T) {
	// Three 399-rune Vietnamese paragraphs join to 1199 runes, which must
	// fit a single 1200 chunk even though each rune is multi-byte.
	p := strings.Repeat("Bước tiếp theo trong Scratch nhé ", 12) + "xoá"
	if n := len([]rune(p)); n != 399 {
		t.Fatalf("fixture paragraph is %d runes, want 399", n)
	}
	raw := p + "\n\n" + p + "\n\n" + p
	chunks := Chunk(raw, 1200)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for 1199 runes, got %d", len(chunks))
	}
	if chunks[0] != p+"\n"+p+"\n"+p {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	if got := Chunk("", 1200); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := Chunk("\n\n\n  \n\n", 1200); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}

func TestChunk_CollapsesInnerWhitespace(t *testing.T) {
	chunks := Chunk("hello   world\nsame paragraph", 1200)
	if len(chunks) != 1 || chunks[0] != "hello world same paragraph" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
}
