package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/logger"
)

// server runs the HTTP listener and ties its lifetime to process signals.
type server struct {
	httpServer *httpServer
	logger     *logger.Logger
}

func NewServer(router *chi.Mux, cfg config.Server, logger *logger.Logger) (Server, error) {
	if cfg.HTTPAddress == "" {
		return nil, errNoListenAddress
	}

	return &server{
		httpServer: newHTTPServer(router, cfg, logger),
		logger:     logger,
	}, nil
}

// RunServer serves until SIGTERM, SIGINT or SIGQUIT, then drains in-flight
// requests before returning.
func (s *server) RunServer() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	drained := make(chan struct{})
	go func() {
		<-ctx.Done()
		s.Shutdown()
		close(drained)
	}()

	s.logger.Info().Str("address", s.httpServer.server.Addr).Msg("serving HTTP")
	go s.httpServer.RunServer()

	<-drained
	s.logger.Info().Msg("server stopped")
}

func (s *server) Shutdown() {
	if s.httpServer != nil {
		s.httpServer.Shutdown()
	}
}
