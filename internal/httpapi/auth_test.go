package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOIDCAuth_RejectsMissingBearerToken(t *testing.T) {
	a := &OIDCAuth{}
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}

func TestOIDCAuth_ExemptsHealthEndpoint(t *testing.T) {
	a := &OIDCAuth{}
	called := false
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected /health to bypass auth, got code=%d called=%v", rec.Code, called)
	}
}

func TestBearerToken_ParsesAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := bearerToken(req); got != "abc.def.ghi" {
		t.Fatalf("expected parsed token, got %q", got)
	}
	req2 := httptest.NewRequest(http.MethodGet, "/ask", nil)
	if got := bearerToken(req2); got != "" {
		t.Fatalf("expected empty token when header missing, got %q", got)
	}
}
