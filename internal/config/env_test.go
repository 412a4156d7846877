package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "", cfg.DBURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, "openai", cfg.EmbeddingBackend)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.OverlapSentences)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 8000, cfg.ContextBudget)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	// This test verifies that struct tag defaults in env.go match the constants in config.go.
	// Go's struct tag defaults must be literals, so this test ensures they stay in sync.
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host, "Host struct tag default should match DefaultHost")
	assert.Equal(t, DefaultPort, cfg.Port, "Port struct tag default should match DefaultPort")
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel, "LogLevel struct tag default should match DefaultLogLevel")
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize, "ChunkSize struct tag default should match DefaultChunkSize")
	assert.Equal(t, DefaultOverlapSentences, cfg.OverlapSentences, "OverlapSentences struct tag default should match DefaultOverlapSentences")
	assert.Equal(t, DefaultTopK, cfg.TopK, "TopK struct tag default should match DefaultTopK")
	assert.Equal(t, DefaultContextBudget, cfg.ContextBudget, "ContextBudget struct tag default should match DefaultContextBudget")

	// Endpoint defaults
	assert.Equal(t, DefaultEndpointTimeout.Seconds(), cfg.ChatEndpoint.Timeout, "Timeout struct tag default should match DefaultEndpointTimeout")
	assert.Equal(t, DefaultEndpointMaxRetries, cfg.ChatEndpoint.MaxRetries, "MaxRetries struct tag default should match DefaultEndpointMaxRetries")
	assert.Equal(t, DefaultEndpointDelay.Seconds(), cfg.ChatEndpoint.InitialDelay, "InitialDelay struct tag default should match DefaultEndpointDelay")
	assert.Equal(t, DefaultEndpointBackoff, cfg.ChatEndpoint.BackoffFactor, "BackoffFactor struct tag default should match DefaultEndpointBackoff")
	assert.Equal(t, DefaultEndpointMaxTokens, cfg.ChatEndpoint.MaxTokens, "MaxTokens struct tag default should match DefaultEndpointMaxTokens")
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/custom/data")
	t.Setenv("DB_URL", "postgres://localhost/murmur")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EMBEDDING_BACKEND", "local")
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("TOP_K", "8")
	t.Setenv("CONTEXT_BUDGET", "4000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, "postgres://localhost/murmur", cfg.DBURL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "local", cfg.EmbeddingBackend)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, 4000, cfg.ContextBudget)
}

func TestLoadFromEnv_EmbeddingEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_API_KEY", "sk-test-key")
	t.Setenv("EMBEDDING_ENDPOINT_TIMEOUT", "120")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_RETRIES", "3")
	t.Setenv("EMBEDDING_ENDPOINT_INITIAL_DELAY", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_BACKOFF_FACTOR", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_TOKENS", "8000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.EmbeddingEndpoint.IsConfigured())
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingEndpoint.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint.Model)
	assert.Equal(t, "sk-test-key", cfg.EmbeddingEndpoint.APIKey)
	assert.Equal(t, 120.0, cfg.EmbeddingEndpoint.Timeout)
	assert.Equal(t, 3, cfg.EmbeddingEndpoint.MaxRetries)
	assert.Equal(t, 1.5, cfg.EmbeddingEndpoint.InitialDelay)
	assert.Equal(t, 1.5, cfg.EmbeddingEndpoint.BackoffFactor)
	assert.Equal(t, 8000, cfg.EmbeddingEndpoint.MaxTokens)
}

func TestLoadFromEnv_ChatEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("CHAT_ENDPOINT_BASE_URL", "https://llm.internal.example.com/v1")
	t.Setenv("CHAT_ENDPOINT_MODEL", "gpt-4o-mini")
	t.Setenv("CHAT_ENDPOINT_API_KEY", "sk-chat-key")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.ChatEndpoint.IsConfigured())
	assert.Equal(t, "https://llm.internal.example.com/v1", cfg.ChatEndpoint.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatEndpoint.Model)
	assert.Equal(t, "sk-chat-key", cfg.ChatEndpoint.APIKey)
}

func TestLoadFromEnvWithPrefix(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("MURMUR_HOST", "10.0.0.1")
	t.Setenv("MURMUR_PORT", "9999")

	cfg, err := LoadFromEnvWithPrefix("MURMUR")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
}

func TestNormalize_FillsDefaultModels(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg = cfg.Normalize()

	assert.Equal(t, DefaultChatModel, cfg.ChatEndpoint.Model)
	assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingEndpoint.Model)
	assert.Equal(t, DefaultTranscriptionModel, cfg.TranscriptionEndpoint.Model)
}

func TestNormalize_SharedAPIKey(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("OPENAI_API_KEY", "sk-shared")
	t.Setenv("CHAT_ENDPOINT_API_KEY", "sk-chat-only")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg = cfg.Normalize()

	// An explicit endpoint key wins over the shared key.
	assert.Equal(t, "sk-chat-only", cfg.ChatEndpoint.APIKey)
	assert.Equal(t, "sk-shared", cfg.EmbeddingEndpoint.APIKey)
	assert.Equal(t, "sk-shared", cfg.TranscriptionEndpoint.APIKey)
}

func TestEnvConfig_ToAppConfig(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOST", "192.168.1.1")
	t.Setenv("PORT", "3000")
	t.Setenv("DATA_DIR", "/data/murmur")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EMBEDDING_BACKEND", "local")
	t.Setenv("MODEL_CACHE_DIR", "/models")
	t.Setenv("CHAT_ENDPOINT_MODEL", "gpt-4o")
	t.Setenv("CHAT_ENDPOINT_API_KEY", "sk-key")
	t.Setenv("CHAT_ENDPOINT_TIMEOUT", "90")
	t.Setenv("HTTP_CACHE_DIR", "/cache/http")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg := envCfg.ToAppConfig()

	assert.Equal(t, "192.168.1.1", cfg.Host())
	assert.Equal(t, 3000, cfg.Port())
	assert.Equal(t, "192.168.1.1:3000", cfg.Addr())
	assert.Equal(t, "/data/murmur", cfg.DataDir())
	assert.Equal(t, "sqlite:///"+filepath.Join("/data/murmur", "murmur.db"), cfg.DBURL())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.Equal(t, EmbeddingBackendLocal, cfg.EmbeddingBackend())
	assert.Equal(t, "/models", cfg.ModelCacheDir())
	assert.Equal(t, "/cache/http", cfg.HTTPCacheDir())

	require.NotNil(t, cfg.ChatEndpoint())
	assert.Equal(t, "gpt-4o", cfg.ChatEndpoint().Model())
	assert.Equal(t, "sk-key", cfg.ChatEndpoint().APIKey())
	assert.Equal(t, 90*time.Second, cfg.ChatEndpoint().Timeout())

	// Endpoints without a model stay unconfigured
	assert.Nil(t, cfg.EmbeddingEndpoint())
	assert.Nil(t, cfg.TranscriptionEndpoint())
}

func TestEnvConfig_ToAppConfig_ModelCacheDirDefault(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("DATA_DIR", "/data/murmur")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg := envCfg.ToAppConfig()
	assert.Equal(t, filepath.Join("/data/murmur", "models"), cfg.ModelCacheDir())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	err := os.WriteFile(envFile, []byte("HOST=10.1.2.3\nTOP_K=7\n"), 0o600)
	require.NoError(t, err)

	err = LoadDotEnv(envFile)
	require.NoError(t, err)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", cfg.Host)
	assert.Equal(t, 7, cfg.TopK)
}

func TestLoadDotEnv_NonExistent(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestMustLoadDotEnv_NonExistent(t *testing.T) {
	err := MustLoadDotEnv("/nonexistent/.env")
	assert.Error(t, err)
}

func TestLoadConfig_AppliesNormalize(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("OPENAI_API_KEY", "sk-shared")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.NotNil(t, cfg.ChatEndpoint())
	assert.Equal(t, DefaultChatModel, cfg.ChatEndpoint().Model())
	assert.Equal(t, "sk-shared", cfg.ChatEndpoint().APIKey())
	require.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingEndpoint().Model())
	require.NotNil(t, cfg.TranscriptionEndpoint())
	assert.Equal(t, DefaultTranscriptionModel, cfg.TranscriptionEndpoint().Model())
}

func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST",
		"PORT",
		"DATA_DIR",
		"DB_URL",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"OPENAI_API_KEY",
		"EMBEDDING_BACKEND",
		"MODEL_CACHE_DIR",
		"CHUNK_SIZE",
		"OVERLAP_SENTENCES",
		"TOP_K",
		"CONTEXT_BUDGET",
		"HTTP_CACHE_DIR",
		"CHAT_ENDPOINT_BASE_URL",
		"CHAT_ENDPOINT_MODEL",
		"CHAT_ENDPOINT_API_KEY",
		"CHAT_ENDPOINT_TIMEOUT",
		"CHAT_ENDPOINT_MAX_RETRIES",
		"CHAT_ENDPOINT_INITIAL_DELAY",
		"CHAT_ENDPOINT_BACKOFF_FACTOR",
		"CHAT_ENDPOINT_MAX_TOKENS",
		"EMBEDDING_ENDPOINT_BASE_URL",
		"EMBEDDING_ENDPOINT_MODEL",
		"EMBEDDING_ENDPOINT_API_KEY",
		"EMBEDDING_ENDPOINT_TIMEOUT",
		"EMBEDDING_ENDPOINT_MAX_RETRIES",
		"EMBEDDING_ENDPOINT_INITIAL_DELAY",
		"EMBEDDING_ENDPOINT_BACKOFF_FACTOR",
		"EMBEDDING_ENDPOINT_MAX_TOKENS",
		"TRANSCRIPTION_ENDPOINT_BASE_URL",
		"TRANSCRIPTION_ENDPOINT_MODEL",
		"TRANSCRIPTION_ENDPOINT_API_KEY",
		"TRANSCRIPTION_ENDPOINT_TIMEOUT",
		"TRANSCRIPTION_ENDPOINT_MAX_RETRIES",
		"TRANSCRIPTION_ENDPOINT_INITIAL_DELAY",
		"TRANSCRIPTION_ENDPOINT_BACKOFF_FACTOR",
		"TRANSCRIPTION_ENDPOINT_MAX_TOKENS",
	}

	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}
