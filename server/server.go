package server

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/auth"
	"chat-relay/relay"
	"chat-relay/repositories"
)

const shutdownGrace = 5 * time.Second

// Server is the HTTP front of the relay. It implements contract.Worker
// so the supervisor owns its lifecycle.
type Server struct {
	log  *slog.Logger
	http *http.Server
}

func New(log *slog.Logger, addr string, validator *auth.TokenValidator,
	router *relay.Router, users repositories.IUserRepository, sendBuffer int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSHandler(log, validator, router, sendBuffer))
	mux.Handle("/users", auth.Middleware(validator, NewUsersHandler(log, users)))

	return &Server{
		log: log,
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until the context is canceled, then shuts down gracefully.
// Open WebSocket sessions are hijacked connections and end with their
// transport, not with the listener.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.http.Addr)
		errChan <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil && !goerrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
