package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voicecoach-gateway/internal/common/errors"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROVIDER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
provider:
  api_key: test-key
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Provider.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Provider.Model)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout())
	assert.Equal(t, 1, cfg.Provider.MaxRetries)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ":8000", cfg.Server.Addr())
	assert.Equal(t, DefaultAllowedOrigins, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3600, cfg.CORS.MaxAge)
	assert.Equal(t, int64(20<<20), cfg.Audio.MaxUploadBytes)
	assert.Contains(t, cfg.Audio.AllowedMimeTypes, "audio/webm")
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "voicecoach-gateway", cfg.Observability.ServiceName)
}

func TestLoadFromFile_MissingAPIKeyIsConfigurationError(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
server:
  port: 9000
`)

	cfg, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, apperrors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "provider.api_key")
}

func TestLoadFromFile_PlaceholderKeyRejected(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
provider:
  api_key: YOUR_GEMINI_API_KEY
`)

	_, err := LoadFromFile(path)
	assert.True(t, apperrors.IsConfigurationError(err))
}

func TestLoadFromFile_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		expect string
	}{
		{
			name:   "provider key from prefixed env",
			env:    map[string]string{"PROVIDER_API_KEY": "from-provider-env"},
			expect: "from-provider-env",
		},
		{
			name:   "gemini fallback",
			env:    map[string]string{"GEMINI_API_KEY": "from-gemini-env"},
			expect: "from-gemini-env",
		},
		{
			name:   "google fallback",
			env:    map[string]string{"GOOGLE_API_KEY": "from-google-env"},
			expect: "from-google-env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, "app:\n  name: coach\n")

			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, cfg.Provider.APIKey)
		})
	}
}

func TestLoadFromFile_CacheEnvironment(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_REDIS_ADDRESS", "redis.internal:6379")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	path := writeConfig(t, "cache:\n  enabled: false\n  redis:\n    address: localhost:6379\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Address)
	assert.Equal(t, "s3cret", cfg.Cache.Redis.Password)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("COACH_TEST_SECRET", "expanded-secret")
	path := writeConfig(t, `
provider:
  api_key: ${COACH_TEST_SECRET}
  timeout: 1500
cors:
  allowed_origins:
    - https://example.com/
    - http://localhost:5173
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.Provider.APIKey)
	assert.Equal(t, 1500*time.Millisecond, cfg.ProviderTimeout())
	assert.Equal(t, []string{"https://example.com", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFromFile_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "wildcard origin",
			body:    "provider:\n  api_key: k\ncors:\n  allowed_origins: [\"*\"]\n",
			message: "explicit origins",
		},
		{
			name:    "origin without scheme",
			body:    "provider:\n  api_key: k\ncors:\n  allowed_origins: [\"example.com\"]\n",
			message: "must include a scheme",
		},
		{
			name:    "cache without redis",
			body:    "provider:\n  api_key: k\ncache:\n  enabled: true\n",
			message: "cache.redis.address",
		},
		{
			name:    "negative retries",
			body:    "provider:\n  api_key: k\n  max_retries: -1\n",
			message: "max_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, apperrors.IsConfigurationError(err))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, GetDuration(250))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
