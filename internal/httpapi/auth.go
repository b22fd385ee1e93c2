package httpapi

import (
	"context"
	"net/http"
	"strings"

	oidc "github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuth verifies bearer access tokens against an OIDC provider's JWKS.
// Unlike a browser login flow, the gateway never issues its own session:
// callers (agents, internal services) present a token they already hold.
type OIDCAuth struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuth discovers the issuer's provider metadata and builds a
// token verifier scoped to clientID's audience.
func NewOIDCAuth(ctx context.Context, issuer, clientID string) (*OIDCAuth, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return &OIDCAuth{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Middleware rejects requests without a valid bearer token. /health is
// always exempt so load balancers can probe the gateway unauthenticated.
func (a *OIDCAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a == nil || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		raw := bearerToken(r)
		if raw == "" {
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		if _, err := a.verifier.Verify(r.Context(), raw); err != nil {
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}
