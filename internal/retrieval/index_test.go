package retrieval

import (
	"testing"

	"github.com/mindx-labs/stemchat/internal/guides"
)

func testIndex() *Index {
	return New([]guides.Guide{
		{
			ID:           "buoi-1",
			Title:        "Buổi 1",
			DisplayTitle: "Buổi 1 – Làm quen Scratch",
			Chunks: []string{
				"when green flag clicked the sprite moves ten steps",
				"variables store numbers and words for later use",
			},
		},
		{
			ID:     "buoi-2",
			Title:  "Buổi 2",
			Chunks: []string{"broadcast messages let sprites talk to each other"},
		},
	})
}

func TestBuild_FlattensChunksInOrder(t *testing.T) {
	ix := testIndex()
	if len(ix.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ix.Entries))
	}
	if ix.Entries[0].ID != "buoi-1-0" || ix.Entries[1].ID != "buoi-1-1" {
		t.Fatalf("chunk order not preserved: %+v", ix.Entries)
	}
	if ix.Entries[2].DisplayTitle != "Buổi 2" {
		t.Fatalf("display title should fall back to title, got %q", ix.Entries[2].DisplayTitle)
	}
}

func TestQuery_RanksMostSimilarFirst(t *testing.T) {
	ix := testIndex()
	got := ix.Query("when green flag clicked the sprite moves ten steps", 3)
	if len(got) == 0 {
		t.Fatal("expected at least one match")
	}
	if got[0].ID != "buoi-1-0" {
		t.Fatalf("expected exact chunk first, got %q", got[0].ID)
	}
	if got[0].Rating <= 0.9 {
		t.Fatalf("expected near-perfect rating, got %f", got[0].Rating)
	}
}

func TestQuery_NeverReturnsBelowFloor(t *testing.T) {
	ix := testIndex()
	for _, q := range []string{"zzzz", "flag", "broadcast messages", "xq"} {
		for _, m := range ix.Query(q, 10) {
			if m.Rating <= ix.Floor {
				t.Fatalf("query %q surfaced rating %f at or below floor %f", q, m.Rating, ix.Floor)
			}
		}
	}
}

func TestQuery_EmptyInputs(t *testing.T) {
	ix := testIndex()
	if got := ix.Query("", 3); got != nil {
		t.Fatalf("empty query should match nothing, got %v", got)
	}
	if got := ix.Query("   ", 3); got != nil {
		t.Fatalf("blank query should match nothing, got %v", got)
	}
	empty := &Index{Floor: DefaultFloor}
	if got := empty.Query("anything", 3); got != nil {
		t.Fatalf("empty index should match nothing, got %v", got)
	}
}

func TestQuery_RespectsLimit(t *testing.T) {
	ix := testIndex()
	ix.Floor = -1 // force everything through
	got := ix.Query("sprites and variables and broadcast", 2)
	if len(got) > 2 {
		t.Fatalf("limit not applied, got %d matches", len(got))
	}
}

func TestQuery_PreviewTruncated(t *testing.T) {
	long := make([]rune, 0, 400)
	for i := 0; i < 400; i++ {
		long = append(long, 'a')
	}
	ix := &Index{
		Entries: []Entry{{ID: "x", Text: "aaaa " + string(long)}},
		Floor:   DefaultFloor,
	}
	got := ix.Query("aaaa aaaa", 1)
	if len(got) != 1 {
		t.Fatalf("expected a match, got %d", len(got))
	}
	if len([]rune(got[0].Preview)) != 200 {
		t.Fatalf("expected 200-rune preview, got %d", len([]rune(got[0].Preview)))
	}
}
