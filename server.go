package main

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrServerClosed = errors.New("server closed")
)

// Server is a line-oriented TCP command server. Every accepted connection is
// served by its own goroutine and tracked in a registry, so a shutdown can
// stop each handler and release the listening socket exactly once.
type Server struct {
	addr     string
	maxConns int
	log      zerolog.Logger

	listener net.Listener
	conns    map[*conn]struct{}

	// mu serializes all access to conns and to the listener reference.
	// Per-connection state is owned by the connection's own goroutine
	// and needs no locking.
	mu         sync.Mutex
	inShutdown atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithMaxConns caps the number of simultaneously served connections. While
// at the cap, newly accepted connections are closed immediately. Zero means
// no cap.
func WithMaxConns(n int) Option {
	return func(s *Server) { s.maxConns = n }
}

// WithLogger sets the sink for all server events. The default discards them.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		addr:  addr,
		log:   zerolog.Nop(),
		conns: make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds the listening socket and runs the accept loop until
// the socket is closed. It returns ErrServerClosed after a clean shutdown
// and the underlying error for anything else.
func (s *Server) ListenAndServe() error {
	if s.shuttingDown() {
		return ErrServerClosed
	}
	if s.maxConns < 0 {
		return fmt.Errorf("invalid connection limit %d", s.maxConns)
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.shuttingDown() {
		// Shutdown ran before the listener was published and could not
		// close it for us.
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")

	return s.run()
}

// run accepts incoming connections and starts a new goroutine to handle
// each one. An accept failure ends the loop: cleanly when the listener was
// closed by Shutdown, fatally otherwise. There is no retry; a listener that
// failed underneath a live server stops accepting while existing handlers
// run on.
func (s *Server) run() error {
	for {
		rwc, err := s.listener.Accept()
		if err != nil {
			if s.shuttingDown() {
				s.log.Info().Msg("server stopped")
				return ErrServerClosed
			}
			s.log.Error().Err(err).Msg("accept failed")
			return err
		}
		c, ok := s.registerConn(rwc)
		if !ok {
			if !s.shuttingDown() {
				s.log.Warn().
					Str("remote_addr", rwc.RemoteAddr().String()).
					Int("limit", s.maxConns).
					Msg("connection refused: at capacity")
			}
			rwc.Close()
			continue
		}
		go c.serve()
	}
}

// Shutdown stops the server: every registered handler's stream is closed,
// then the listening socket, which unblocks the accept loop. The first
// caller wins; any later call, from any goroutine, is a no-op. Errors from
// closing an already-closed socket are swallowed.
func (s *Server) Shutdown() {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return
	}
	s.log.Info().Msg("shutting down")
	s.closeConns()
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
}

// closeConns force-closes every tracked connection and clears the registry.
// Handlers unblock from their reads with net.ErrClosed and run their normal
// teardown; their own unregister is then a no-op delete.
func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.rwc.Close()
		delete(s.conns, c)
	}
}

func (s *Server) shuttingDown() bool {
	return s.inShutdown.Load()
}

// newConn creates a new conn instance associated with the server.
func (s *Server) newConn(rwc net.Conn) *conn {
	c := &conn{
		server:     s,
		rwc:        rwc,
		id:         uuid.New(),
		remoteAddr: rwc.RemoteAddr().String(),
	}
	c.log = s.log.With().
		Str("conn_id", c.id.String()).
		Str("remote_addr", c.remoteAddr).
		Logger()
	return c
}

// registerConn wraps an accepted stream in a handler and reserves its
// registry slot. The capacity check and the insert share one critical
// section, so a burst of accepts cannot overshoot the cap before any
// handler goroutine has had a chance to run. Refused streams, whether at
// capacity or with a shutdown in progress, are never registered; the
// caller closes them. A stream registered here is either present in the
// shutdown snapshot or was refused, never neither.
func (s *Server) registerConn(rwc net.Conn) (*conn, bool) {
	c := s.newConn(rwc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown() {
		return nil, false
	}
	if s.maxConns > 0 && len(s.conns) >= s.maxConns {
		return nil, false
	}
	s.conns[c] = struct{}{}
	return c, true
}

// unregisterConn removes a connection from the registry. Removing one that
// is already gone is a no-op, so a handler's own exit and the shutdown
// path never conflict.
func (s *Server) unregisterConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) activeConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) listenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
