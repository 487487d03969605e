package core

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/pool"
)

// Server is the generic accept loop. Accepted connections are handed to a
// fixed-size worker pool; it depends only on ConnectionHandler.
type Server struct {
	Listener          net.Listener
	ConnectionHandler ConnectionHandler
	Workers           *pool.Pool
	Log               *slog.Logger // nil uses the default logger
}

// Serve accepts connections until ctx is cancelled or the listening socket
// becomes unusable. A failed Accept on a healthy socket is logged and the
// loop continues.
func (s *Server) Serve(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = logger.With()
	}

	stop := context.AfterFunc(ctx, func() {
		s.Listener.Close()
	})
	defer stop()

	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("Failed to accept connection", "addr", s.Listener.Addr(), "error", err)
			continue
		}

		log.Debug("Accepted connection", "remote_addr", conn.RemoteAddr())
		if err := s.Workers.Submit(ctx, func() { s.handleConnection(conn) }); err != nil {
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Failed to dispatch connection", "remote_addr", conn.RemoteAddr(), "error", err)
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	// Delegate the entire lifecycle to the handler
	s.ConnectionHandler.HandleConnection(conn)
}
