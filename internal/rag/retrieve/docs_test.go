package retrieve

import (
	"context"
	"testing"

	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
)

func TestAttachDocMetadata_LoadsFromDocRow(t *testing.T) {
	ctx := context.Background()
	search := databases.NewMemorySearch()
	// Index a document with title and url metadata
	_ = search.Index(ctx, "doc:test:1", "doc body", map[string]string{"title": "T1", "url": "https://ex"})
	// Index a chunk without title/url
	_ = search.Index(ctx, "chunk:doc:test:1:0", "chunk body", map[string]string{"type": "chunk", "doc_id": "doc:test:1"})

	items := []RetrievedItem{{ID: "chunk:doc:test:1:0", Metadata: map[string]string{"doc_id": "doc:test:1"}}}
	out := AttachDocMetadata(ctx, search, items)
	if out[0].DocID != "doc:test:1" {
		t.Fatalf("expected DocID derived as doc:test:1, got %s", out[0].DocID)
	}
	if out[0].Doc.Title != "T1" || out[0].Doc.URL != "https://ex" {
		t.Fatalf("expected title/url from doc row, got %+v", out[0].Doc)
	}
}

func TestFilterByDateRange_ExcludesOutsideBoundsKeepsUndated(t *testing.T) {
	items := []RetrievedItem{
		{ID: "a", Doc: DocumentMeta{Date: "2024-01-01"}},
		{ID: "b", Doc: DocumentMeta{Date: "2024-06-15"}},
		{ID: "c", Doc: DocumentMeta{Date: "2025-01-01"}},
		{ID: "d", Doc: DocumentMeta{}},
	}
	out := FilterByDateRange(items, "2024-01-01", "2024-12-31")
	if len(out) != 3 {
		t.Fatalf("expected 3 items (a, b, undated d), got %d: %+v", len(out), out)
	}
	ids := map[string]bool{}
	for _, it := range out {
		ids[it.ID] = true
	}
	if !ids["a"] || !ids["b"] || !ids["d"] || ids["c"] {
		t.Fatalf("unexpected filtered set: %+v", out)
	}
}

func TestFilterByDateRange_UnboundedWhenBothEmpty(t *testing.T) {
	items := []RetrievedItem{{ID: "a", Doc: DocumentMeta{Date: "2024-01-01"}}}
	out := FilterByDateRange(items, "", "")
	if len(out) != 1 {
		t.Fatalf("expected no filtering with empty bounds, got %+v", out)
	}
}
