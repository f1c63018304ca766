// internal/coaching/generate-script/config.go
package generatescript

import (
	"time"

	"voicecoach-gateway/internal/common/config"
)

type Config struct {
	CacheTTL time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		CacheTTL: cfg.CacheTTL(),
	}
}
