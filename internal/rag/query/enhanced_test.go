package query

import (
	"context"
	"testing"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
)

type stubRetriever struct {
	responses map[string][]retrieve.RetrievedItem
}

func (s stubRetriever) Retrieve(_ context.Context, q string, _ retrieve.RetrieveOptions) (retrieve.RetrieveResponse, error) {
	return retrieve.RetrieveResponse{Query: q, Items: s.responses[q]}, nil
}

func TestEnhancedRetriever_DeduplicatesAcrossPasses(t *testing.T) {
	item := retrieve.RetrievedItem{ID: "chunk:doc:1:0", DocID: "doc:1", Score: 1.0, Text: "government position on mining"}
	base := stubRetriever{responses: map[string][]retrieve.RetrievedItem{
		"mining stance": {item},
		"stance":        {item},
	}}
	er := NewEnhancedRetriever(base)
	items, _, err := er.Search(context.Background(), "mining stance", retrieve.RetrieveOptions{K: 5})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected deduplication to a single item, got %d", len(items))
	}
}

func TestSelectDiverseChunks_CapsPerDocumentAndSpeaker(t *testing.T) {
	items := []retrieve.RetrievedItem{
		{ID: "1", DocID: "d1", Score: 3, Doc: retrieve.DocumentMeta{Speaker: "A"}},
		{ID: "2", DocID: "d1", Score: 2.9, Doc: retrieve.DocumentMeta{Speaker: "A"}},
		{ID: "3", DocID: "d1", Score: 2.8, Doc: retrieve.DocumentMeta{Speaker: "A"}},
		{ID: "4", DocID: "d2", Score: 2.7, Doc: retrieve.DocumentMeta{Speaker: "B"}},
	}
	out := selectDiverseChunks(items, 3)
	docCount := map[string]int{}
	for _, it := range out {
		docCount[it.DocID]++
	}
	if docCount["d1"] > 2 {
		t.Fatalf("expected at most 2 chunks from d1, got %d", docCount["d1"])
	}
}

func TestIntelligentRerank_PenalizesShortChunks(t *testing.T) {
	analysis := Analyze("general query")
	items := []retrieve.RetrievedItem{
		{ID: "short", Score: 1.0, Text: "tiny"},
		{ID: "long", Score: 1.0, Text: func() string {
			s := ""
			for i := 0; i < 50; i++ {
				s += "word "
			}
			return s
		}()},
	}
	out := intelligentRerank(items, analysis)
	if out[0].ID != "long" {
		t.Fatalf("expected long chunk to rank first after penalty, got %s", out[0].ID)
	}
}
