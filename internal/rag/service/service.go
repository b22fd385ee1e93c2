package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/cache"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/chunker"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/embedder"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/generate"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/ingest"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/prompt"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/query"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
)

// Service provides high-level RAG operations backed by Search and Vector.
type Service struct {
	search databases.FullTextSearch
	vector databases.VectorStore

	log     Logger
	metrics Metrics
	clock   Clock
	emb     embedder.Embedder
	rerank  retrieve.Reranker
	gen     generate.Client
	enh     *query.EnhancedRetriever
	answers *cache.AnswerCache
}

// New constructs a Service from a databases.Manager and optional observability.
func New(mgr databases.Manager, opts ...Option) *Service {
	s := &Service{
		search:  mgr.Search,
		vector:  mgr.Vector,
		log:     defaultLogger{},
		metrics: NoopMetrics{},
		clock:   SystemClock{},
		emb:     embedder.NewDeterministic(64, true, 0),
		rerank:  retrieve.NoopReranker{},
	}
	for _, o := range opts {
		o(s)
	}
	s.enh = query.NewEnhancedRetriever(s)
	return s
}

// Option configures the Service during construction.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l Logger) Option { return func(s *Service) { s.log = l } }

// WithMetrics sets a custom metrics collector.
func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock sets a custom clock implementation.
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// WithEmbedder sets a custom embedder implementation used during ingestion.
func WithEmbedder(e embedder.Embedder) Option { return func(s *Service) { s.emb = e } }

// WithReranker sets a reranker implementation used during retrieval.
func WithReranker(r retrieve.Reranker) Option { return func(s *Service) { s.rerank = r } }

// WithGenerator sets the answer-generation backend used by Ask.
func WithGenerator(g generate.Client) Option { return func(s *Service) { s.gen = g } }

// WithAnswerCache sets a Redis-backed cache consulted and populated by Ask.
// A nil cache (the default) disables caching without requiring callers to
// branch on whether caching is configured.
func WithAnswerCache(c *cache.AnswerCache) Option { return func(s *Service) { s.answers = c } }

// Ingest performs chunk-centric ingestion.
func (s *Service) Ingest(ctx context.Context, in ingest.IngestRequest) (ingest.IngestResponse, error) {
	start := s.clock.Now()
	// Metrics: count documents
	s.metrics.IncCounter("ingestion_docs_total", map[string]string{"tenant": in.Tenant})
	// Step 1: preprocess (normalize, language, hash)
	t0 := s.clock.Now()
	pre, err := ingest.Preprocess(ctx, ingest.DefaultLanguageDetector{}, in)
	if err != nil {
		return ingest.IngestResponse{}, err
	}
	s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(s.clock.Now().Sub(t0))), map[string]string{"stage": "preprocess", "tenant": in.Tenant})
	// Step 2: idempotency resolution (using Search as lookup proxy when possible)
	// We adapt the FullTextSearch interface to our DocumentLookup if it provides GetByID on doc hash key.
	// For now, rely on a nil lookup path which returns create if unknown.
	t0 = s.clock.Now()
	decision, err := ingest.ResolveIdempotency(ctx, nil, in.Tenant, in, pre)
	if err != nil {
		return ingest.IngestResponse{}, err
	}
	s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(s.clock.Now().Sub(t0))), map[string]string{"stage": "idempotency", "tenant": in.Tenant})
	if decision.Action == "skip" {
		return ingest.IngestResponse{
			DocID:    decision.DocID,
			Version:  decision.Version,
			ChunkIDs: nil,
			Stats: ingest.IngestStats{
				NumChunks:     0,
				TotalTokens:   0,
				VectorUpserts: 0,
				Duration:      s.clock.Now().Sub(start),
			},
		}, nil
	}

	// Step 3: chunking
	ch := chunker.SimpleChunker{}
	t0 = s.clock.Now()
	chunks, err := ch.Chunk(pre.Text, in.Options.Chunking)
	if err != nil {
		return ingest.IngestResponse{}, err
	}
	s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(s.clock.Now().Sub(t0))), map[string]string{"stage": "chunk", "tenant": in.Tenant})
	// Metrics: count chunks
	for i := 0; i < len(chunks); i++ {
		s.metrics.IncCounter("ingestion_chunks_total", map[string]string{"tenant": in.Tenant})
	}

	// Step 4: index into Search (documents and chunks) with fallback path
	t0 = s.clock.Now()
	if err := ingest.UpsertDocumentToSearch(ctx, s.search, in.ID, in, pre, decision.Version); err != nil {
		return ingest.IngestResponse{}, err
	}
	s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(s.clock.Now().Sub(t0))), map[string]string{"stage": "search_document", "tenant": in.Tenant})
	// adapt chunker.Chunk to ingest.ChunkRecord
	crecs := make([]ingest.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		crecs = append(crecs, ingest.ChunkRecord{Index: c.Index, Text: c.Text, Speaker: c.Speaker})
	}
	t0 = s.clock.Now()
	chunkIDs, err := ingest.UpsertChunksToSearch(ctx, s.search, in.ID, pre.Language, crecs, in, decision.Version)
	if err != nil {
		return ingest.IngestResponse{}, err
	}
	s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(s.clock.Now().Sub(t0))), map[string]string{"stage": "search_chunks", "tenant": in.Tenant})

	// Step 5: embeddings (optional)
	vecUpserts := 0
	if in.Options.Embedding.Enabled && s.vector != nil {
		t0 = s.clock.Now()
		n, err := ingest.UpsertChunkEmbeddings(ctx, s.vector, s.emb, in.ID, pre.Language, crecs, in, decision.Version)
		if err != nil {
			return ingest.IngestResponse{}, err
		}
		vecUpserts = n
		s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(s.clock.Now().Sub(t0))), map[string]string{"stage": "embedding", "tenant": in.Tenant})
	}

	dur := s.clock.Now().Sub(start)
	s.metrics.ObserveHistogram("ingestion_stage_ms", float64(ms(dur)), map[string]string{"stage": "total", "tenant": in.Tenant})
	return ingest.IngestResponse{
		DocID:    in.ID,
		Version:  decision.Version,
		ChunkIDs: chunkIDs,
		Stats: ingest.IngestStats{
			NumChunks:     len(chunks),
			TotalTokens:   approxTokens(pre.Text),
			VectorUpserts: vecUpserts,
			Duration:      dur,
		},
		Warnings: nil,
	}, nil
}

// Retrieve executes a hybrid retrieval query.
func (s *Service) Retrieve(ctx context.Context, q string, opt retrieve.RetrieveOptions) (retrieve.RetrieveResponse, error) {
	rStart := s.clock.Now()
	// Plan query
	plan := retrieve.BuildQueryPlan(ctx, q, opt)
	// For now, we reuse deterministic embedder to get a query vector when vector store is present.
	var qvec []float32
	if s.vector != nil && s.emb != nil && plan.VecK > 0 {
		// Apply retrieval-time instruction to the query if provided.
		embedText := plan.Query
		if opt.Instruction != "" {
			embedText = "Instruct: " + opt.Instruction + "\n" + "Query: " + plan.Query
		}
		emb, err := s.emb.EmbedBatch(ctx, []string{embedText})
		if err != nil {
			return retrieve.RetrieveResponse{}, err
		}
		if len(emb) > 0 {
			qvec = emb[0]
		}
	}

	// Run parallel candidates
	ftRes, vecRes, diag, err := retrieve.ParallelCandidates(ctx, s.search, s.vector, plan, qvec)
	if err != nil {
		return retrieve.RetrieveResponse{}, err
	}
	// Metrics: candidate timings and counts
	s.metrics.ObserveHistogram("retrieval_stage_ms", float64(ms(diag.FtLatency)), map[string]string{"stage": "fts", "tenant": plan.Tenant})
	s.metrics.ObserveHistogram("retrieval_stage_ms", float64(ms(diag.VecLatency)), map[string]string{"stage": "vec", "tenant": plan.Tenant})
	for i := 0; i < diag.FtCount; i++ {
		s.metrics.IncCounter("retrieval_candidates", map[string]string{"type": "fts", "tenant": plan.Tenant})
	}
	for i := 0; i < diag.VecCount; i++ {
		s.metrics.IncCounter("retrieval_candidates", map[string]string{"type": "vec", "tenant": plan.Tenant})
	}

	// Fusion: use RRF (with optional diversification) when requested, else simple concat.
	var items []retrieve.RetrievedItem
	var fusionMS int64
	if opt.UseRRF {
		t0 := s.clock.Now()
		items = retrieve.FuseAndDiversify(ftRes, vecRes, plan, opt)
		fusionMS = ms(s.clock.Now().Sub(t0))
		s.metrics.ObserveHistogram("retrieval_stage_ms", float64(fusionMS), map[string]string{"stage": "fusion", "tenant": plan.Tenant})
	} else {
		items = make([]retrieve.RetrievedItem, 0, len(ftRes)+len(vecRes))
		for _, r := range ftRes {
			items = append(items, retrieve.RetrievedItem{ID: r.ID, Score: r.Score, Snippet: r.Snippet, Text: r.Text, Metadata: r.Metadata})
		}
		for _, r := range vecRes {
			items = append(items, retrieve.RetrievedItem{ID: r.ID, Score: r.Score, Metadata: r.Metadata})
		}
		// Cap to K
		k := opt.K
		if k <= 0 {
			k = 10
		}
		if len(items) > k {
			items = items[:k]
		}
	}
	// Optional rerank + final prune
	items, addDbg, err := retrieve.AssembleResults(ctx, s.rerank, plan, opt, items)
	if err != nil {
		return retrieve.RetrieveResponse{}, err
	}
	if rv, ok := addDbg["rerank_ms"].(int64); ok {
		s.metrics.ObserveHistogram("retrieval_stage_ms", float64(rv), map[string]string{"stage": "rerank", "tenant": plan.Tenant})
	}

	// Package results: snippets, optional full text, doc metadata, and explanations
	pkgStart := s.clock.Now()
	if opt.IncludeSnippet {
		items = retrieve.GenerateSnippets(ctx, s.search, items, retrieve.SnippetOptions{Lang: plan.Lang, Query: plan.Query})
	}
	if opt.IncludeText && s.search != nil {
		// ensure Text present for items lacking it
		for i := range items {
			if items[i].Text != "" {
				continue
			}
			if doc, ok, _ := s.search.GetByID(ctx, items[i].ID); ok {
				items[i].Text = doc.Text
			}
		}
	}
	// Attach doc metadata (title, url)
	items = retrieve.AttachDocMetadata(ctx, s.search, items)
	items = retrieve.FilterByDateRange(items, opt.DateFrom, opt.DateTo)

	// Add basic per-item explanations when available from fusion diagnostics in metadata
	for i := range items {
		if items[i].Explanation == nil {
			items[i].Explanation = map[string]any{}
		}
		// Carry doc_id for transparency
		if items[i].DocID == "" {
			items[i].DocID = retrieve.DeriveDocIDPublic(items[i].ID, items[i].Metadata)
		}
	}

	pkgMS := ms(s.clock.Now().Sub(pkgStart))
	s.metrics.ObserveHistogram("retrieval_stage_ms", float64(pkgMS), map[string]string{"stage": "package", "tenant": plan.Tenant})
	// Results counter
	for i := 0; i < len(items); i++ {
		s.metrics.IncCounter("retrieval_results_total", map[string]string{"tenant": plan.Tenant})
	}
	totalMS := ms(s.clock.Now().Sub(rStart))
	s.metrics.ObserveHistogram("retrieval_stage_ms", float64(totalMS), map[string]string{"stage": "total", "tenant": plan.Tenant})
	debug := map[string]any{
		"plan":        map[string]any{"lang": plan.Lang, "ftK": plan.FtK, "vecK": plan.VecK},
		"diagnostics": map[string]any{"ft_ms": ms(diag.FtLatency), "vec_ms": ms(diag.VecLatency), "ft_n": diag.FtCount, "vec_n": diag.VecCount, "package_ms": pkgMS, "fusion_ms": fusionMS, "total_ms": totalMS},
	}
	// Integrate addDbg stage timings into diagnostics when available
	if dm, ok := debug["diagnostics"].(map[string]any); ok {
		if rv, ok := addDbg["rerank_ms"]; ok {
			dm["rerank_ms"] = rv
		}
	}
	for k, v := range addDbg {
		debug[k] = v
	}
	return retrieve.RetrieveResponse{Query: plan.Query, Items: items, Debug: debug}, nil
}

// noRelevantInformation is the canonical answer returned when retrieval
// comes back empty or the generator cannot be reached; the UI renders it
// like any other answer, with no sources to cite.
const noRelevantInformation = "I could not find any relevant information in the Hansard records to answer this question."

// SourceCitation is one chunk backing an answer, carrying both a short
// preview and its full text so the UI can show provenance inline and on
// demand without a second round trip.
type SourceCitation struct {
	ChunkID     string
	DocID       string
	ChunkIndex  int
	Speaker     string
	Date        string
	Country     string
	URL         string
	TextPreview string
	FullText    string
}

const sourcePreviewChars = 150

func buildSourceCitation(idx int, it retrieve.RetrievedItem) SourceCitation {
	text := it.Text
	preview := text
	if len(preview) > sourcePreviewChars {
		preview = strings.TrimSpace(preview[:sourcePreviewChars]) + "..."
	}
	return SourceCitation{
		ChunkID:     it.ID,
		DocID:       it.DocID,
		ChunkIndex:  idx,
		Speaker:     it.Doc.Speaker,
		Date:        it.Doc.Date,
		Country:     it.Doc.Country,
		URL:         it.Doc.URL,
		TextPreview: preview,
		FullText:    text,
	}
}

// AskResponse is the answer to a natural-language question, grounded in the
// parliamentary chunks the multi-pass retriever selected for it.
type AskResponse struct {
	Answer         string
	ModelUsed      string
	GenerationTime time.Duration
	Sources        []SourceCitation
	ContextChunks  int
	Analysis       query.Analysis
}

// contextChunkLimit is the maximum number of retrieved chunks handed to the
// generator as context, regardless of how many the caller's k requested.
const contextChunkLimit = 5

// sourceCitationLimit is the number of selected chunks surfaced as sources,
// unconditionally, so the UI can show provenance even when the model's
// answer cites fewer (or none) of them.
const sourceCitationLimit = 3

// Ask runs the full question-answering pipeline: multi-pass retrieval with
// intent-aware expansion, context selection, structured prompt construction,
// and answer generation. Retrieval failure and generator failure both
// degrade to a canonical answer rather than propagating as errors; Ask
// returns an error only when it cannot be attempted at all (no generator
// configured).
func (s *Service) Ask(ctx context.Context, question string, opt retrieve.RetrieveOptions) (AskResponse, error) {
	if s.gen == nil {
		return AskResponse{}, ErrNoGenerator
	}
	start := s.clock.Now()
	items, analysis, err := s.enh.Search(ctx, question, opt)
	if err != nil || len(items) == 0 {
		return AskResponse{Answer: noRelevantInformation, Analysis: analysis}, nil
	}

	if n := contextChunkLimit; len(items) > n {
		items = items[:n]
	}
	sources := make([]SourceCitation, 0, sourceCitationLimit)
	for i, it := range items {
		if i >= sourceCitationLimit {
			break
		}
		sources = append(sources, buildSourceCitation(i, it))
	}

	cacheKey := cache.Key(question, opt.Filter)
	if cached, ok := s.answers.Get(ctx, cacheKey); ok {
		s.metrics.IncCounter("ask_cache_hits_total", map[string]string{"tenant": opt.Tenant})
		return AskResponse{Answer: cached.Answer, ModelUsed: cached.ModelUsed, Sources: sources, ContextChunks: len(items), Analysis: analysis}, nil
	}

	chunks := prompt.FromRetrievedItems(items)
	built := prompt.BuildPrompt(question, chunks)

	result, err := s.gen.Generate(ctx, built)
	if err != nil {
		s.log.Error("ask_generate_failed", map[string]any{"error": err.Error()})
		return AskResponse{Answer: noRelevantInformation, Sources: sources, ContextChunks: len(items), Analysis: analysis}, nil
	}
	chunkIDs := make([]string, len(items))
	for i, it := range items {
		chunkIDs[i] = it.ID
	}
	_ = s.answers.Set(ctx, cacheKey, cache.Entry{Answer: result.Answer, ModelUsed: result.ModelUsed, ChunkIDs: chunkIDs, Filters: opt.Filter})

	s.metrics.ObserveHistogram("ask_total_ms", float64(ms(s.clock.Now().Sub(start))), map[string]string{"tenant": opt.Tenant})
	return AskResponse{
		Answer:         result.Answer,
		ModelUsed:      result.ModelUsed,
		GenerationTime: result.GenerationTime,
		Sources:        sources,
		ContextChunks:  len(items),
		Analysis:       analysis,
	}, nil
}

// DocumentView assembles a stored document and its chunk records for the
// /document/{doc_id} endpoint.
type DocumentView struct {
	DocID           string
	Content         string
	FormattedContent string
	Metadata        map[string]string
	ChunkCount      int
	TotalLength     int
}

// ErrDocumentNotFound is returned by GetDocument when no document with the
// given ID is indexed.
var ErrDocumentNotFound = errors.New("rag service: document not found")

// GetDocument fetches a document's stored text, metadata, and chunk
// statistics. Backends that support chunk enumeration (databases.DocumentChunks)
// populate ChunkCount/TotalLength from the chunk table; others report them
// as zero.
func (s *Service) GetDocument(ctx context.Context, docID string) (DocumentView, error) {
	if s.search == nil {
		return DocumentView{}, ErrDocumentNotFound
	}
	doc, ok, err := s.search.GetByID(ctx, docID)
	if err != nil {
		return DocumentView{}, err
	}
	if !ok {
		return DocumentView{}, ErrDocumentNotFound
	}
	view := DocumentView{
		DocID:            docID,
		Content:          doc.Text,
		FormattedContent: formatDocument(doc.Text),
		Metadata:         doc.Metadata,
		TotalLength:      len(doc.Text),
	}
	if dc, ok := s.search.(databases.DocumentChunks); ok {
		chunks, err := dc.ChunksByDocID(ctx, docID)
		if err == nil {
			view.ChunkCount = len(chunks)
			total := 0
			for _, c := range chunks {
				total += len(c.Text)
			}
			if total > 0 {
				view.TotalLength = total
			}
		}
	}
	return view, nil
}

// formatDocument renders a lightly structured view of a transcript for
// display, collapsing excess blank lines the way the ingestion pipeline's
// own text normalization does.
func formatDocument(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// IndexStats summarizes the lexical index for the /stats endpoint.
type IndexStats struct {
	TotalDocuments int
	Countries      map[string]int
	IndexStatus    string
}

// Stats reports aggregate index counts. Backends that implement
// databases.IndexStats contribute TotalDocuments/Countries; others report an
// empty breakdown with IndexStatus left as "unavailable".
func (s *Service) Stats(ctx context.Context) (IndexStats, error) {
	if is, ok := s.search.(databases.IndexStats); ok {
		total, countries, err := is.Stats(ctx)
		if err != nil {
			return IndexStats{IndexStatus: "error"}, err
		}
		return IndexStats{TotalDocuments: total, Countries: countries, IndexStatus: "ready"}, nil
	}
	return IndexStats{Countries: map[string]int{}, IndexStatus: "unavailable"}, nil
}

// defaultLogger is a minimal internal logger that drops logs.
type defaultLogger struct{}

func (defaultLogger) Info(string, map[string]any)  {}
func (defaultLogger) Error(string, map[string]any) {}
func (defaultLogger) Debug(string, map[string]any) {}

// approxTokens uses a rough 4 char/token heuristic for metrics only.
func approxTokens(s string) int { return (len(s) + 3) / 4 }

func ms(d time.Duration) int64 { return int64(d / time.Millisecond) }
