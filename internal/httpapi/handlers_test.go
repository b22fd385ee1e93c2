package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/generate"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/service"
)

type stubGenerator struct{ answer string }

func (g stubGenerator) Generate(context.Context, string) (generate.Result, error) {
	return generate.Result{Answer: g.answer, ModelUsed: "stub-model"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := databases.Manager{Search: databases.NewMemorySearch(), Vector: databases.NewMemoryVector()}
	ctx := context.Background()
	require.NoError(t, mgr.Search.Index(ctx, "doc:1", "full transcript text about seabed mining regulation", map[string]string{"country": "Cook Islands"}))
	require.NoError(t, mgr.Search.Index(ctx, "chunk:doc:1:0", "the minister discussed seabed mining regulation", map[string]string{
		"type": "chunk", "doc_id": "doc:1", "country": "Cook Islands", "speaker": "HON. JANE DOE", "date": "2024-03-01",
	}))
	svc := service.New(mgr, service.WithGenerator(stubGenerator{answer: "The minister confirmed the policy [#0]."}))
	return NewServer(svc, "test")
}

func TestHandleHealth_ReportsOK(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestHandleSearchGet_RequiresQuery(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchGet_ReturnsHybridResults(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/search?q=seabed+mining&top_k=5", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hybrid", resp.SearchType)
	require.NotEmpty(t, resp.Results)
}

func TestHandleSearchGet_DateRangeExcludesOutOfWindowResults(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/search?q=seabed+mining&date_from=2025-01-01&date_to=2025-12-31", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Results, "the only indexed chunk is dated 2024-03-01, outside the requested range")
}

func TestHandleAsk_DateRangeAppliesToRetrievalNotJustSearch(t *testing.T) {
	srv := newTestServer(t)
	body, err := json.Marshal(AskRequest{
		Question: "What is the government's position on seabed mining?",
		Filters:  SearchFilters{DateFrom: "2025-01-01", DateTo: "2025-12-31"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Sources, "the only indexed chunk is dated 2024-03-01, outside the requested range")
}

func TestHandleAsk_ReturnsAnswerAndSources(t *testing.T) {
	srv := newTestServer(t)
	body, err := json.Marshal(AskRequest{Question: "What is the government's position on seabed mining?", TopK: 5})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Answer, "[#0]")
	require.Equal(t, "stub-model", resp.ModelUsed)
}

func TestHandleAsk_RejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(AskRequest{Question: ""})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetDocument_ReturnsContentAndChunkStats(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/document/doc:1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, float64(1), body["chunk_count"])
}

func TestHandleGetDocument_404WhenMissing(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/document/doc:missing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats_ReportsCountryBreakdown(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	countries, ok := body["countries"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), countries["Cook Islands"])
}
