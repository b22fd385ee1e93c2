package databases

import (
	"context"
)

// SearchResult represents a single hit from the full-text search backend.
// Hansard-specific fields (doc_id, speaker, date, country, chamber, url) ride
// along in Metadata; the retrieve package promotes them onto RetrievedItem.
type SearchResult struct {
	ID       string
	Score    float64
	Snippet  string
	Text     string
	Metadata map[string]string
}

// FullTextSearch defines the minimum interface for a pluggable lexical search
// backend. Implementations that can additionally filter and score at chunk
// granularity also provide SearchChunks (the retrieve package's chunkSearcher
// interface); callers fall back to Search when a backend does not.
type FullTextSearch interface {
	Index(ctx context.Context, id string, text string, metadata map[string]string) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	GetByID(ctx context.Context, id string) (SearchResult, bool, error)
}

// VectorResult represents a single nearest neighbor lookup result.
type VectorResult struct {
	ID       string
	Score    float64 // Higher is closer by default
	Metadata map[string]string
}

// VectorStore defines the minimum interface for a pluggable vector store.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error)
}

// DocumentChunks is an optional capability: backends that can enumerate the
// chunks belonging to a document implement it so /document/{doc_id} can
// report chunk_count and total_length without a full index scan.
type DocumentChunks interface {
	ChunksByDocID(ctx context.Context, docID string) ([]SearchResult, error)
}

// IndexStats is an optional capability for reporting aggregate index
// counts used by /stats.
type IndexStats interface {
	Stats(ctx context.Context) (totalDocuments int, countries map[string]int, err error)
}

// Manager holds concrete database backends resolved from configuration.
type Manager struct {
	Search FullTextSearch
	Vector VectorStore
}

// Close attempts to close any underlying pools. It's a no-op for memory backends.
func (m Manager) Close() {
	if c, ok := any(m.Search).(interface{ Close() }); ok {
		c.Close()
	}
	if c, ok := any(m.Vector).(interface{ Close() }); ok {
		c.Close()
	}
}
