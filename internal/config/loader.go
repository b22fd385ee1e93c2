package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads configuration from the process environment, optionally
// overlaying a .env file in the working directory. Missing values fall back
// to in-memory/disabled defaults so the gateway can run standalone for tests
// and local development.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:         firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080"),
			ReadTimeout:  durationFromEnv("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
			WriteTimeout: durationFromEnv("HTTP_WRITE_TIMEOUT_SECONDS", 60*time.Second),
		},
		DB: DBConfig{
			DefaultDSN: strings.TrimSpace(os.Getenv("DB_DSN")),
			Search: SearchBackendConfig{
				Backend: firstNonEmpty(os.Getenv("SEARCH_BACKEND"), "memory"),
				DSN:     strings.TrimSpace(os.Getenv("SEARCH_DSN")),
			},
			Vector: VectorBackendConfig{
				Backend:    firstNonEmpty(os.Getenv("VECTOR_BACKEND"), "memory"),
				DSN:        strings.TrimSpace(os.Getenv("VECTOR_DSN")),
				Collection: firstNonEmpty(os.Getenv("VECTOR_COLLECTION"), "hansard_chunks"),
				Dimensions: intFromEnv("VECTOR_DIMENSIONS", 384),
				Metric:     firstNonEmpty(os.Getenv("VECTOR_METRIC"), "cosine"),
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL: firstNonEmpty(os.Getenv("EMBEDDING_BASE_URL"), "http://localhost:8081"),
			Path:    firstNonEmpty(os.Getenv("EMBEDDING_PATH"), "/v1/embeddings"),
			Model:   firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "all-MiniLM-L6-v2"),
			APIKey:  strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")),
			Timeout: durationFromEnv("EMBEDDING_TIMEOUT_SECONDS", 30*time.Second),
		},
		Generator: GeneratorConfig{
			Provider:       firstNonEmpty(os.Getenv("GENERATOR_PROVIDER"), "openai"),
			Model:          firstNonEmpty(os.Getenv("GENERATOR_MODEL"), "gpt-4o-mini"),
			BaseURL:        strings.TrimSpace(os.Getenv("GENERATOR_BASE_URL")),
			APIKey:         strings.TrimSpace(os.Getenv("GENERATOR_API_KEY")),
			Temperature:    floatFromEnv("GENERATOR_TEMPERATURE", 0.1),
			Timeout:        durationFromEnv("GENERATOR_TIMEOUT_SECONDS", 60*time.Second),
			MaxConcurrency: intFromEnv("GENERATOR_MAX_CONCURRENCY", 8),
		},
		Cache: CacheConfig{
			Enabled: boolFromEnv("CACHE_ENABLED", false),
			Addr:    firstNonEmpty(os.Getenv("CACHE_ADDR"), "localhost:6379"),
			Prefix:  firstNonEmpty(os.Getenv("CACHE_PREFIX"), "hansard:answer:"),
			TTL:     durationFromEnv("CACHE_TTL_SECONDS", 15*60*time.Second),
		},
		Auth: AuthConfig{
			Issuer:   strings.TrimSpace(os.Getenv("AUTH_OIDC_ISSUER")),
			ClientID: strings.TrimSpace(os.Getenv("AUTH_OIDC_CLIENT_ID")),
		},
		Obs: ObsConfig{
			OTLP:           strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
			ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "pacific-hansard-rag"),
			ServiceVersion: firstNonEmpty(os.Getenv("SERVICE_VERSION"), "dev"),
			Environment:    firstNonEmpty(os.Getenv("ENVIRONMENT"), "development"),
		},
		LogPath:  strings.TrimSpace(os.Getenv("LOG_PATH")),
		LogLevel: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}
