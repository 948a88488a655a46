package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iron-dillo/cybersandbox/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"type": "memory"},
		"embedding": {"provider": "openai", "model": "nomic-embed-text"}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "idcsa_docs", cfg.Database.Collection)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, 0.7, cfg.Retrieval.SemanticWeight)
	require.Equal(t, 0.2, cfg.Retrieval.KeywordWeight)
	require.Equal(t, 0.1, cfg.Retrieval.ThreatWeight)
	require.Equal(t, 1000, cfg.Chunking.Size)
	require.Equal(t, 150, cfg.Chunking.Overlap)
	require.Equal(t, "fixed", cfg.Chunking.Mode)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"type": "postgres", "dsn": "postgres://localhost/idcsa", "collection": "intel"},
		"embedding": {"provider": "gemini", "model": "text-embedding-004"},
		"retrieval": {"top_k": 10, "semantic_weight": 0.5, "keyword_weight": 0.3, "threat_weight": 0.2},
		"chunking": {"size": 800, "overlap": 100, "mode": "paragraph"}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "intel", cfg.Database.Collection)
	require.Equal(t, 10, cfg.Retrieval.TopK)
	require.Equal(t, 0.5, cfg.Retrieval.SemanticWeight)
	require.Equal(t, "paragraph", cfg.Chunking.Mode)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	for name, content := range map[string]string{
		"missing provider":  `{"database": {"type": "memory"}, "embedding": {"model": "m"}}`,
		"missing model":     `{"database": {"type": "memory"}, "embedding": {"provider": "openai"}}`,
		"bad database type": `{"database": {"type": "sqlite"}, "embedding": {"provider": "openai", "model": "m"}}`,
		"postgres no dsn":   `{"database": {"type": "postgres"}, "embedding": {"provider": "openai", "model": "m"}}`,
	} {
		_, err := config.Load(writeConfig(t, content))
		require.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
