package config

import "time"

// Config aggregates all runtime configuration for the Hansard RAG gateway.
type Config struct {
	HTTP      HTTPConfig
	DB        DBConfig
	Embedding EmbeddingConfig
	Generator GeneratorConfig
	Cache     CacheConfig
	Obs       ObsConfig
	Auth      AuthConfig
	LogPath   string
	LogLevel  string
}

// AuthConfig enables bearer-token verification against an OIDC provider.
// When Issuer is empty, the gateway serves unauthenticated (suitable for
// deployments behind their own gateway-level auth).
type AuthConfig struct {
	Issuer   string
	ClientID string
}

// HTTPConfig controls the gateway's listen address and timeouts.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DBConfig selects and configures the lexical and vector storage backends.
type DBConfig struct {
	DefaultDSN string
	Search     SearchBackendConfig
	Vector     VectorBackendConfig
}

// SearchBackendConfig configures the full-text search backend.
// Backend is one of: memory, auto, postgres, none.
type SearchBackendConfig struct {
	Backend string
	DSN     string
}

// VectorBackendConfig configures the vector store backend.
// Backend is one of: memory, auto, postgres, qdrant, none.
type VectorBackendConfig struct {
	Backend    string
	DSN        string
	Collection string
	Dimensions int
	Metric     string
}

// EmbeddingConfig points at an OpenAI-compatible /embeddings endpoint.
type EmbeddingConfig struct {
	BaseURL string
	Path    string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// GeneratorConfig selects and configures the answer-generation backend.
// Provider is one of: openai, anthropic, google.
type GeneratorConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	// MaxConcurrency bounds in-flight Generate calls across all requests;
	// excess callers wait until a slot frees or their request context is done.
	MaxConcurrency int
}

// CacheConfig configures the optional Redis-backed answer cache.
type CacheConfig struct {
	Enabled bool
	Addr    string
	Prefix  string
	TTL     time.Duration
}

// ObsConfig controls OpenTelemetry tracing and metrics export.
type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}
