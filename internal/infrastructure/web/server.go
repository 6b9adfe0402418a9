package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Server is the HTTP surface of the tracker
type Server struct {
	server *http.Server
	logger *logger.Logger
}

// NewServer creates the HTTP server around handler
func NewServer(cfg *config.Config, handler *Handler, logger *logger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
			Handler:           handler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.WithComponent("http-server"),
	}
}

// Start binds the port and serves in the background. Bind errors are
// returned so startup fails fast.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")
	return s.server.Shutdown(ctx)
}
