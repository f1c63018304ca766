// internal/common/config/config.go
package config

import (
	"strconv"
	"time"
)

// Config is the main application configuration struct. It is built once at
// process start and handed to every component that needs it.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Provider      ProviderConfig      `mapstructure:"provider"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Registry      RegistryConfig      `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// CORSConfig holds the browser origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"` // seconds
}

// ProviderConfig holds settings for the generative-AI provider.
type ProviderConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"` // empty means the public Gemini endpoint
	Timeout    int    `mapstructure:"timeout"`  // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// AudioConfig bounds what /analyze accepts.
type AudioConfig struct {
	MaxUploadBytes   int64    `mapstructure:"max_upload_bytes"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	TTL     int         `mapstructure:"ttl"` // milliseconds
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string            `mapstructure:"level"`
	Format string            `mapstructure:"format"`
	Output string            `mapstructure:"output"`
	File   LogRotationConfig `mapstructure:"file"`
}

// LogRotationConfig applies when Output is a file path.
type LogRotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// RegistryConfig points at an optional operation registry override file.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// ProviderTimeout returns the per-call provider deadline.
func (c *Config) ProviderTimeout() time.Duration {
	return GetDuration(c.Provider.Timeout)
}

// CacheTTL returns how long generated scripts stay cached.
func (c *Config) CacheTTL() time.Duration {
	return GetDuration(c.Cache.TTL)
}
