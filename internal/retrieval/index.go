package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/mindx-labs/stemchat/internal/guides"
)

const (
	// DefaultFloor is the relevance floor: matches rated at or below it are
	// never surfaced as references.
	DefaultFloor = 0.1
	// DefaultLimit is the number of matches returned when the caller does
	// not ask for more.
	DefaultLimit = 3

	previewLen = 200
)

// Entry is one indexed guide chunk.
type Entry struct {
	ID           string
	SourceID     string
	SourceTitle  string
	DisplayTitle string
	Text         string
}

// Match is an Entry scored against a query. Ephemeral, produced per query.
type Match struct {
	Entry
	Rating  float64
	Preview string
}

// Index is a flat collection of guide chunks ranked by string similarity.
type Index struct {
	Entries []Entry
	Floor   float64

	dice *metrics.SorensenDice
}

// Build flattens guides into index entries, one per (guide, chunk) pair,
// preserving chunk order within a guide.
func Build(gs []guides.Guide) []Entry {
	var entries []Entry
	for _, g := range gs {
		display := g.DisplayTitle
		if display == "" {
			display = g.Title
		}
		for i, text := range g.Chunks {
			entries = append(entries, Entry{
				ID:           fmt.Sprintf("%s-%d", g.ID, i),
				SourceID:     g.ID,
				SourceTitle:  g.Title,
				DisplayTitle: display,
				Text:         text,
			})
		}
	}
	return entries
}

// New builds an index over the given guides with the default floor.
func New(gs []guides.Guide) *Index {
	return &Index{Entries: Build(gs), Floor: DefaultFloor, dice: metrics.NewSorensenDice()}
}

// Query rates every entry against q with a bigram Sorensen-Dice similarity
// (bounded [0,1]), drops entries at or below the floor and returns at most
// limit matches, best first. Ties keep original index order. An empty query
// or empty index yields no matches, never an error.
func (ix *Index) Query(q string, limit int) []Match {
	q = strings.TrimSpace(q)
	if q == "" || len(ix.Entries) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if ix.dice == nil {
		ix.dice = metrics.NewSorensenDice()
	}

	matches := make([]Match, 0, len(ix.Entries))
	for _, e := range ix.Entries {
		rating := strutil.Similarity(q, e.Text, ix.dice)
		if rating <= ix.Floor {
			continue
		}
		matches = append(matches, Match{Entry: e, Rating: rating, Preview: preview(e.Text)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Rating > matches[j].Rating })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen])
}
