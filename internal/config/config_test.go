package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"docqa/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-flash-latest", cfg.GenerationModel)
	assert.Equal(t, "gemini-embedding-001", cfg.EmbeddingModel)
	assert.Equal(t, 5, cfg.RetrievalTopK)
	assert.Equal(t, "http", cfg.WeaviateScheme)
	assert.Equal(t, "pipeline.audit", cfg.AuditTopic)
	assert.Equal(t, 8081, cfg.ServerPort)
	assert.EqualValues(t, 50, cfg.MaxUploadSizeMB)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("RETRIEVAL_TOP_K", "3")
	t.Setenv("WEAVIATE_HOST", "weaviate:8080")
	t.Setenv("NSQD_HOST", "nsqd:4150")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, 3, cfg.RetrievalTopK)
	assert.Equal(t, "weaviate:8080", cfg.WeaviateHost)
	assert.Equal(t, "nsqd:4150", cfg.NSQDHost)
	assert.Equal(t, 9000, cfg.ServerPort)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"ZeroTopK", "RETRIEVAL_TOP_K", "0"},
		{"NegativeTopK", "RETRIEVAL_TOP_K", "-1"},
		{"ZeroPort", "SERVER_PORT", "0"},
		{"ZeroUploadSize", "MAX_UPLOAD_SIZE_MB", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{RetrievalTopK: 5, ServerPort: 8081, MaxUploadSizeMB: 50}
	assert.NoError(t, cfg.Validate())

	cfg.RetrievalTopK = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
}
