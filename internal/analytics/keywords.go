package analytics

import (
	"strings"
	"unicode"

	"github.com/mindx-labs/stemchat/internal/guides"
)

// Short Vietnamese and English function words that dominate chat text but
// carry no topical signal. Keys are diacritic-folded lowercase.
var keywordStopwords = map[string]bool{
	"nhung": true, "duoc": true, "trong": true, "cung": true, "nhieu": true,
	"mot": true, "cach": true, "hay": true, "khi": true, "voi": true,
	"cho": true, "nay": true, "vay": true, "minh": true, "ban": true,
	"lam": true, "sao": true, "the": true, "nao": true, "giup": true,
	"khong": true, "chua": true, "hoac": true, "phai": true, "tai": true,
	"this": true, "that": true, "with": true, "what": true, "have": true,
	"will": true, "your": true, "from": true, "make": true, "want": true,
	"help": true, "please": true, "them": true, "then": true, "when": true,
}

// keywordToken is one qualifying token: Key is the diacritic- and
// case-folded dedup form, Display keeps the original spelling.
type keywordToken struct {
	Key     string
	Display string
}

// extractKeywords tokenizes a user message for topic counting: digits and
// punctuation become separators, tokens shorter than 4 runes or in the
// stopword set are dropped.
func extractKeywords(text string) []keywordToken {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, text)

	var tokens []keywordToken
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) < 4 {
			continue
		}
		key := strings.ToLower(guides.FoldDiacritics(word))
		if keywordStopwords[key] {
			continue
		}
		tokens = append(tokens, keywordToken{Key: key, Display: word})
	}
	return tokens
}

// keywordTable accumulates folded-key counts while remembering the longest
// original-cased spelling seen for display.
type keywordTable struct {
	counts  map[string]int
	display map[string]string
}

func newKeywordTable() *keywordTable {
	return &keywordTable{counts: make(map[string]int), display: make(map[string]string)}
}

func (kt *keywordTable) add(text string) {
	for _, tok := range extractKeywords(text) {
		kt.counts[tok.Key]++
		if len(tok.Display) > len(kt.display[tok.Key]) {
			kt.display[tok.Key] = tok.Display
		}
	}
}

// top returns the n most frequent keywords under their display spellings.
func (kt *keywordTable) top(n int) []CountEntry {
	entries := topN(kt.counts, n)
	for i := range entries {
		if d := kt.display[entries[i].Name]; d != "" {
			entries[i].Name = d
		}
	}
	return entries
}
