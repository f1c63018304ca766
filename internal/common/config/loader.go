// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "voicecoach-gateway/internal/common/errors"
)

// DefaultAllowedOrigins are the deployed frontend origins.
var DefaultAllowedOrigins = []string{
	"https://frontend-53528.web.app",
	"https://frontend-53528.firebaseapp.com",
}

// DefaultAllowedMimeTypes are the audio encodings the provider accepts inline.
var DefaultAllowedMimeTypes = []string{
	"audio/wav",
	"audio/x-wav",
	"audio/wave",
	"audio/mpeg",
	"audio/mp3",
	"audio/webm",
	"audio/ogg",
	"audio/flac",
	"audio/aac",
	"audio/mp4",
	"audio/x-m4a",
	"audio/aiff",
}

// Load reads configs/config.yaml, the environment overlay and the process
// environment. A missing provider key is a configuration error.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("error reading base config: %v", err))
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	return build(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to read config file %s: %v", path, err))
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to unmarshal config: %v", err))
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it even when no
// config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "voicecoach-gateway")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 60000)
	v.SetDefault("server.shutdown_timeout", 30000)

	v.SetDefault("cors.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("cors.max_age", 3600)

	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", "gemini-2.5-flash")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.timeout", 60000)
	v.SetDefault("provider.max_retries", 1)

	v.SetDefault("audio.max_upload_bytes", 20<<20)
	v.SetDefault("audio.allowed_mime_types", DefaultAllowedMimeTypes)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 3600000)
	v.SetDefault("cache.redis.address", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("observability.service_name", "voicecoach-gateway")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.jaeger_endpoint", "")

	v.SetDefault("registry.path", "")
}

// loadEnvFile loads the first .env found from the working directory upward.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig falls back to the conventional provider key variables.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Provider.APIKey == "" {
		for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if val := os.Getenv(name); val != "" {
				cfg.Provider.APIKey = val
				break
			}
		}
	}
	if cfg.Cache.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Cache.Redis.Password = val
		}
	}
}

// applyDefaults fills values that may have been zeroed by an explicit empty
// entry in a config file.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	for i, origin := range cfg.CORS.AllowedOrigins {
		cfg.CORS.AllowedOrigins[i] = strings.TrimRight(strings.TrimSpace(origin), "/")
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = 3600
	}

	cfg.Provider.APIKey = strings.TrimSpace(cfg.Provider.APIKey)
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gemini-2.5-flash"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 60000
	}

	if cfg.Audio.MaxUploadBytes == 0 {
		cfg.Audio.MaxUploadBytes = 20 << 20
	}
	if len(cfg.Audio.AllowedMimeTypes) == 0 {
		cfg.Audio.AllowedMimeTypes = append([]string(nil), DefaultAllowedMimeTypes...)
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 3600000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.File.MaxSizeMB == 0 {
		cfg.Logging.File.MaxSizeMB = 100
	}
	if cfg.Logging.File.MaxBackups == 0 {
		cfg.Logging.File.MaxBackups = 5
	}
	if cfg.Logging.File.MaxAgeDays == 0 {
		cfg.Logging.File.MaxAgeDays = 28
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Provider.APIKey == "" || cfg.Provider.APIKey == "YOUR_GEMINI_API_KEY" {
		return apperrors.NewConfigurationError("provider.api_key is required (set PROVIDER_API_KEY or GEMINI_API_KEY)")
	}
	if cfg.Provider.Timeout < 0 {
		return apperrors.NewConfigurationError("provider.timeout must not be negative")
	}
	if cfg.Provider.MaxRetries < 0 {
		return apperrors.NewConfigurationError("provider.max_retries must not be negative")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("server.port %d is out of range", cfg.Server.Port))
	}
	if cfg.Audio.MaxUploadBytes < 0 {
		return apperrors.NewConfigurationError("audio.max_upload_bytes must not be negative")
	}
	for _, origin := range cfg.CORS.AllowedOrigins {
		if origin == "*" {
			return apperrors.NewConfigurationError("cors.allowed_origins must list explicit origins")
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return apperrors.NewConfigurationError(fmt.Sprintf("cors origin %q must include a scheme", origin))
		}
	}
	if cfg.Cache.Enabled && cfg.Cache.Redis.Address == "" {
		return apperrors.NewConfigurationError("cache.redis.address is required when cache.enabled is true")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
