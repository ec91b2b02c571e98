package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avoronov/authkeeper-server/internal/model"
)

// Server wraps an http.Server with address and lifecycle methods.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates a Server serving handler on addr.
func NewServer(handler http.Handler, addr string) *Server {
	return &Server{
		server: &http.Server{Handler: handler},
		addr:   addr,
	}
}

// Start starts serving on the configured address using the provided security
// layer. It blocks until the server stops; a graceful shutdown is not an
// error.
func (s *Server) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.addr
}
