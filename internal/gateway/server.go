// Package gateway is the HTTP surface of the voice coach: routing, CORS,
// request validation and error mapping in front of the coaching operations.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	generatescript "voicecoach-gateway/internal/coaching/generate-script"
	speechfeedback "voicecoach-gateway/internal/coaching/speech-feedback"
	transcribeaudio "voicecoach-gateway/internal/coaching/transcribe-audio"
	"voicecoach-gateway/internal/common/config"
	"voicecoach-gateway/internal/common/logger"
	"voicecoach-gateway/pkg/registry"
)

// Deps are the collaborators the gateway serves requests with. Registry
// defaults to registry.Default() when nil.
type Deps struct {
	Config      *config.Config
	Logger      logger.Logger
	Registry    *registry.OperationRegistry
	Scripts     *generatescript.Handler
	Transcriber *transcribeaudio.Handler
	Feedback    *speechfeedback.Handler
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

func NewServer(deps Deps) *Server {
	engine := NewRouter(deps)
	cfg := deps.Config

	return &Server{
		config: cfg,
		logger: deps.Logger,
		engine: engine,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
			// /analyze makes two sequential provider calls.
			WriteTimeout: 2*cfg.ProviderTimeout() + 10*time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", map[string]interface{}{
		"addr":        s.httpServer.Addr,
		"environment": s.config.App.Environment,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
