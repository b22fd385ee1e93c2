package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "SEARCH_BACKEND", "VECTOR_BACKEND", "GENERATOR_PROVIDER", "CACHE_ENABLED"} {
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "memory", cfg.DB.Search.Backend)
	require.Equal(t, "memory", cfg.DB.Vector.Backend)
	require.Equal(t, "openai", cfg.Generator.Provider)
	require.False(t, cfg.Cache.Enabled)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("VECTOR_DIMENSIONS", "768")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_TTL_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "qdrant", cfg.DB.Vector.Backend)
	require.Equal(t, 768, cfg.DB.Vector.Dimensions)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 30*time.Second, cfg.Cache.TTL)
}
