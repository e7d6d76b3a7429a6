package guides

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Guide is one source teaching document, pre-chunked for retrieval.
// Immutable after load.
type Guide struct {
	ID           string
	Title        string
	DisplayTitle string
	Path         string
	Chunks       []string
}

var (
	bracketPrefixRe = regexp.MustCompile(`^\[[^\]]+\]\s*`)
	underscoresRe   = regexp.MustCompile(`_+`)
	multiSpaceRe    = regexp.MustCompile(`\s{2,}`)
	lessonRe        = regexp.MustCompile(`(?i)(Buổi\s+\d+)(\s+)`)
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9]+`)

	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// FoldDiacritics strips combining marks so Vietnamese text can be compared
// and slugged in its ASCII form ("Buổi" -> "Buoi"). The đ letter carries no
// combining mark and is mapped separately.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "đ", "d")
	return strings.ReplaceAll(out, "Đ", "D")
}

// Slugify turns a guide title into a stable lowercase identifier.
func Slugify(s string) string {
	folded := strings.ToLower(FoldDiacritics(s))
	return strings.Trim(nonAlnumRe.ReplaceAllString(folded, "-"), "-")
}

// PrettifyTitle cleans a raw filename-derived title for display: drops a
// leading "[...]" tag, replaces underscores with spaces, collapses runs of
// whitespace and separates "Buổi N" lesson prefixes with a dash.
func PrettifyTitle(raw string) string {
	if raw == "" {
		return ""
	}
	s := bracketPrefixRe.ReplaceAllString(raw, "")
	s = underscoresRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	s = lessonRe.ReplaceAllString(s, "$1 – ")
	if s == "" {
		return raw
	}
	return s
}
