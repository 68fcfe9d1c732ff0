package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./index_cache", cfg.IndexCacheDir)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.SimilarityTopK)
	assert.Equal(t, domain.ResponseCompact, cfg.ResponseMode)
	assert.True(t, cfg.LazyLoad)
	assert.True(t, cfg.BackgroundPreload)
	assert.Equal(t, 10, cfg.MaxHistory)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "gemini", cfg.Provider.Type)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Provider.APIKeyEnv)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/corpus
chunk_size: 256
chunk_overlap: 32
similarity_top_k: 8
response_mode: refine
max_history: 6
provider:
  type: openai
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/corpus", cfg.DataDir)
	assert.Equal(t, 256, cfg.ChunkSize)
	assert.Equal(t, 32, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.SimilarityTopK)
	assert.Equal(t, domain.ResponseRefine, cfg.ResponseMode)
	assert.Equal(t, 6, cfg.MaxHistory)
	assert.Equal(t, "openai", cfg.Provider.Type)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Provider.APIKeyEnv)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Provider.BaseURL)
	// Untouched fields keep their defaults.
	assert.Equal(t, "./index_cache", cfg.IndexCacheDir)
	assert.Equal(t, DefaultChatTemplate, cfg.ChatTemplate)
}

func TestLoadEnvOverridesWin(t *testing.T) {
	path := writeConfig(t, "data_dir: /from/file\nbackground_preload: true\n")
	t.Setenv("RAGCHAT_DATA_DIR", "/from/env")
	t.Setenv("RAGCHAT_LOG_LEVEL", "debug")
	t.Setenv("RAGCHAT_BACKGROUND_PRELOAD", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.BackgroundPreload)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "data_dir: [unbalanced\n")
	_, err := Load(path)
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "file", cerr.Field)
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{"overlap equals chunk size", "chunk_size: 100\nchunk_overlap: 100\n", "chunk_overlap"},
		{"overlap exceeds chunk size", "chunk_size: 100\nchunk_overlap: 150\n", "chunk_overlap"},
		{"negative chunk size", "chunk_size: -1\n", "chunk_size"},
		{"unknown response mode", "response_mode: tree_summarize\n", "response_mode"},
		{"negative top k", "similarity_top_k: -2\n", "similarity_top_k"},
		{"negative max history", "max_history: -1\n", "max_history"},
		{"unknown provider", "provider:\n  type: anthropic\n", "provider.type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestEmptyResponseModeDefaultsToCompact(t *testing.T) {
	cfg, err := Load(writeConfig(t, "response_mode: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseCompact, cfg.ResponseMode)
}

func TestAPIKeyReadsConfiguredVariable(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "sk-test")
	cfg, err := Load(writeConfig(t, "provider:\n  api_key_env: CUSTOM_KEY\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey())
}
