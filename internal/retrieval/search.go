package retrieval

import (
	"github.com/blevesearch/bleve"
)

// Hit is a keyword-search result over the guide index.
type Hit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Searcher wraps a mem-only bleve index over the same entries as the
// relevance index. It backs the admin dashboard's guide-search box, where
// keyword matching beats the Dice rating used for chat references.
type Searcher struct {
	index bleve.Index
	meta  map[string]Entry
}

// NewSearcher indexes the entries into an in-memory bleve index.
func NewSearcher(entries []Entry) (*Searcher, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	meta := make(map[string]Entry, len(entries))
	for _, e := range entries {
		meta[e.ID] = e
		if err := index.Index(e.ID, e); err != nil {
			return nil, err
		}
	}
	return &Searcher{index: index, meta: meta}, nil
}

// Search runs a query-string search and returns up to k hits.
func (s *Searcher) Search(q string, k int) ([]Hit, error) {
	if k <= 0 {
		k = DefaultLimit
	}
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}
	var out []Hit
	for _, hit := range res.Hits {
		entry := s.meta[hit.ID]
		out = append(out, Hit{
			ID:      hit.ID,
			Title:   entry.DisplayTitle,
			Snippet: snippet(entry.Text),
			Score:   hit.Score,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= 300 {
		return s
	}
	return string(r[:300]) + "…"
}
