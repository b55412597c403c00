package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server serves the search page and the ads API.
type Server struct {
	srv *http.Server
}

// New creates a server listening on port. Requests inherit baseCtx, so
// cancelling it aborts in-flight Adzuna and geocoding calls. The write
// timeout covers one upstream search plus one geocode lookup.
func New(baseCtx context.Context, port string, deps Deps) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: newMux(deps),
			BaseContext: func(_ net.Listener) context.Context {
				return baseCtx
			},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start blocks until the server stops. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	slog.Info("serving job search", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	return s.srv.Shutdown(ctx)
}
