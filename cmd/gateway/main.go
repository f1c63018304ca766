// cmd/gateway/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	generatescript "voicecoach-gateway/internal/coaching/generate-script"
	speechfeedback "voicecoach-gateway/internal/coaching/speech-feedback"
	transcribeaudio "voicecoach-gateway/internal/coaching/transcribe-audio"
	"voicecoach-gateway/internal/common/cache"
	"voicecoach-gateway/internal/common/config"
	"voicecoach-gateway/internal/common/httpclient"
	"voicecoach-gateway/internal/common/logger"
	"voicecoach-gateway/internal/common/observability"
	"voicecoach-gateway/internal/gateway"
	"voicecoach-gateway/internal/provider"
	"voicecoach-gateway/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "json")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.NewFromConfig(cfg.Logging)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting voice coach gateway...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("model", cfg.Provider.Model),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Operation registry ---
	reg := registry.Default()
	if cfg.Registry.Path != "" {
		reg, err = registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
		}
	}

	// --- Optional script cache ---
	var scripts cache.Cache
	if cfg.Cache.Enabled {
		rc := cache.NewRedis(cfg.Cache.Redis)
		err = retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return rc.Ping(pingCtx)
		}, 3, time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("script cache disabled", zap.Error(err))
			_ = rc.Close()
		} else {
			defer rc.Close()
			scripts = rc
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Provider ---
	hc := httpclient.NewClient(cfg.ProviderTimeout() + 5*time.Second)
	gemini, err := provider.NewGemini(ctx, provider.ConfigFrom(cfg), hc.HTTPClient(), log, obs)
	if err != nil {
		zapLog.Fatal("provider init failed", zap.Error(err))
	}

	server := gateway.NewServer(gateway.Deps{
		Config:      cfg,
		Logger:      log,
		Registry:    reg,
		Scripts:     generatescript.NewHandler(generatescript.LoadConfig(cfg), gemini, scripts, log, obs),
		Transcriber: transcribeaudio.NewHandler(transcribeaudio.LoadConfig(), gemini, log, obs),
		Feedback:    speechfeedback.NewHandler(speechfeedback.LoadConfig(), gemini, log, obs),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, draining requests...")
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during shutdown", zap.Error(err))
	}

	zapLog.Info("Gateway stopped gracefully")
}
