package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/service"
)

// SearchFilters narrows retrieval to a subset of the Hansard corpus.
type SearchFilters struct {
	Country  string `json:"country,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Chamber  string `json:"chamber,omitempty"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query   string        `json:"query"`
	Filters SearchFilters `json:"filters"`
	TopK    int           `json:"top_k"`
}

// SearchResult is a single hybrid-retrieval hit, as returned to API callers.
type SearchResult struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
	Speaker string  `json:"speaker,omitempty"`
	Date    string  `json:"date,omitempty"`
	Country string  `json:"country,omitempty"`
	Chamber string  `json:"chamber,omitempty"`
	Title   string  `json:"title,omitempty"`
}

// SearchResponse is the shared GET/POST /search success payload.
type SearchResponse struct {
	Query          string         `json:"query"`
	Results        []SearchResult `json:"results"`
	TotalFound     int            `json:"total_found"`
	ResponseTimeMS int64          `json:"response_time_ms"`
	SearchType     string         `json:"search_type"`
}

// AskRequest is the POST /ask body.
type AskRequest struct {
	Question    string        `json:"question"`
	Filters     SearchFilters `json:"filters"`
	TopK        int           `json:"top_k"`
	Temperature float64       `json:"temperature"`
}

// SourceCitation is one retrieved chunk backing an /ask answer.
type SourceCitation struct {
	ChunkID     string `json:"chunk_id"`
	DocID       string `json:"doc_id"`
	ChunkIndex  int    `json:"chunk_index"`
	Speaker     string `json:"speaker,omitempty"`
	Date        string `json:"date,omitempty"`
	Country     string `json:"country,omitempty"`
	URL         string `json:"url,omitempty"`
	TextPreview string `json:"text_preview"`
	FullText    string `json:"full_text"`
}

// AskResponse is the POST /ask success payload.
type AskResponse struct {
	Question       string           `json:"question"`
	Answer         string           `json:"answer"`
	Sources        []SourceCitation `json:"sources"`
	ResponseTimeMS int64            `json:"response_time_ms"`
	ModelUsed      string           `json:"model_used"`
	ChunksUsed     int              `json:"chunks_used"`
}

const (
	defaultTopK = 12
	maxTopK     = 50
)

var errUnauthorized = errors.New("missing or invalid bearer token")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	services := map[string]string{"index": "ok", "generator": "ok", "api": "ok"}
	if s.service == nil {
		services["index"] = "down"
		status = "degraded"
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status":   status,
		"services": services,
		"version":  s.version,
	})
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	topK := defaultTopK
	if raw := q.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, errors.New("top_k must be an integer"))
			return
		}
		topK = n
	}
	filters := SearchFilters{
		Country:  q.Get("country"),
		Speaker:  q.Get("speaker"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Chamber:  q.Get("chamber"),
	}
	s.runSearch(w, r, query, filters, topK)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	s.runSearch(w, r, req.Query, req.Filters, req.TopK)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q string, filters SearchFilters, topK int) {
	topK = clampTopK(topK)
	start := time.Now()
	resp, err := s.service.Retrieve(r.Context(), q, retrieve.RetrieveOptions{
		K:              topK,
		FtK:            topK * 3,
		VecK:           topK * 3,
		UseRRF:         true,
		IncludeSnippet: true,
		Filter:         filtersToMap(filters),
		DateFrom:       filters.DateFrom,
		DateTo:         filters.DateTo,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	results := make([]SearchResult, len(resp.Items))
	for i, it := range resp.Items {
		results[i] = SearchResult{
			ChunkID: it.ID,
			DocID:   it.DocID,
			Score:   it.Score,
			Snippet: firstNonEmpty(it.Snippet, it.Text),
			Speaker: it.Doc.Speaker,
			Date:    it.Doc.Date,
			Country: it.Doc.Country,
			Chamber: it.Doc.Chamber,
			Title:   it.Doc.Title,
		}
	}
	respondJSON(w, http.StatusOK, SearchResponse{
		Query:          q,
		Results:        results,
		TotalFound:     len(results),
		ResponseTimeMS: time.Since(start).Milliseconds(),
		SearchType:     "hybrid",
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}
	topK := clampTopK(req.TopK)
	start := time.Now()
	res, err := s.service.Ask(r.Context(), req.Question, retrieve.RetrieveOptions{
		K:              topK,
		FtK:            topK * 3,
		VecK:           topK * 3,
		UseRRF:         true,
		IncludeSnippet: true,
		Filter:         filtersToMap(req.Filters),
		DateFrom:       req.Filters.DateFrom,
		DateTo:         req.Filters.DateTo,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	sources := make([]SourceCitation, len(res.Sources))
	for i, src := range res.Sources {
		sources[i] = SourceCitation{
			ChunkID:     src.ChunkID,
			DocID:       src.DocID,
			ChunkIndex:  src.ChunkIndex,
			Speaker:     src.Speaker,
			Date:        src.Date,
			Country:     src.Country,
			URL:         src.URL,
			TextPreview: src.TextPreview,
			FullText:    src.FullText,
		}
	}
	respondJSON(w, http.StatusOK, AskResponse{
		Question:       req.Question,
		Answer:         res.Answer,
		Sources:        sources,
		ResponseTimeMS: time.Since(start).Milliseconds(),
		ModelUsed:      res.ModelUsed,
		ChunksUsed:     res.ContextChunks,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	doc, err := s.service.GetDocument(r.Context(), docID)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"doc_id":            doc.DocID,
		"content":           doc.Content,
		"formatted_content": doc.FormattedContent,
		"metadata":          doc.Metadata,
		"chunk_count":       doc.ChunkCount,
		"total_length":      doc.TotalLength,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_documents": stats.TotalDocuments,
		"countries":       stats.Countries,
		"index_status":    stats.IndexStatus,
	})
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func filtersToMap(f SearchFilters) map[string]string {
	m := map[string]string{}
	if f.Country != "" {
		m["country"] = f.Country
	}
	if f.Speaker != "" {
		m["speaker"] = f.Speaker
	}
	if f.Chamber != "" {
		m["chamber"] = f.Chamber
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
