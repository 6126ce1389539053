package directoryserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/micropay-go/internal/core/domain"
	"github.com/yndnr/micropay-go/internal/protocol/wire"
)

// Config holds the directory server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// RateLimit is the maximum number of request lines per second per IP.
	// Set to 0 to disable rate limiting.
	RateLimit int
	// IdleTimeout closes connections that send nothing for this long.
	// Zero keeps idle connections open indefinitely.
	IdleTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address: "0.0.0.0:8888",
	}
}

// Server accepts client connections and runs one handler goroutine per
// connection.
type Server struct {
	cfg     *Config
	handler *Handler
	logger  *slog.Logger
	metrics Metrics
	limiter *ipLimiters

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	connMu  sync.Mutex
	conns   map[*Conn]struct{}
	perHost map[string]int
}

// ConnState holds the session binding of a client connection.
type ConnState struct {
	// SessionID identifies the connection to the registry.
	SessionID string
	// Username is the logged-in user; empty means unbound.
	Username string
}

// Bound reports whether a user is logged in on the connection.
func (s ConnState) Bound() bool {
	return s.Username != ""
}

// Conn represents a single client connection.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	host    string

	stateMu sync.RWMutex
	state   ConnState

	closed atomic.Bool
}

func newConn(c net.Conn, sessionID string) *Conn {
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		host = c.RemoteAddr().String()
	}
	return &Conn{
		netConn: c,
		br:      bufio.NewReaderSize(c, wire.MaxLineLen),
		bw:      bufio.NewWriter(c),
		host:    host,
		state:   ConnState{SessionID: sessionID},
	}
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Host returns the peer IP as advertised in directory entries.
func (c *Conn) Host() string {
	return c.host
}

// GetState returns a copy of the connection state.
func (c *Conn) GetState() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// SetState replaces the connection state.
func (c *Conn) SetState(st ConnState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = st
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithMetrics records connection and request metrics in m.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a directory server backed by registry.
func New(cfg *Config, registry AccountRegistry, logger *slog.Logger, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: nopMetrics{},
		conns:   make(map[*Conn]struct{}),
		perHost: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiters(cfg.RateLimit)
	}
	s.handler = NewHandler(registry, s.metrics, logger)
	return s
}

// Start binds the listen address and starts accepting in the background.
// The listener is bound before Start returns, so Addr is valid afterwards.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve starts accepting on ln in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("directory server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("directory server accept error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes every live connection and waits for
// all handler goroutines to finish. Bound users are marked offline by
// their handlers on the way out.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.connMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("directory server stopped")
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		sessionID, err := domain.GenerateSessionID()
		if err != nil {
			s.logger.Error("session id generation failed", "error", err)
			_ = c.Close()
			continue
		}
		conn := newConn(c, sessionID)
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}
}

// track registers a live connection; it refuses once shutdown began.
func (s *Server) track(c *Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.perHost[c.host]++
	return true
}

func (s *Server) untrack(c *Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, c)
	s.perHost[c.host]--
	if s.perHost[c.host] <= 0 {
		delete(s.perHost, c.host)
		s.limiter.forget(c.host)
	}
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	s.metrics.IncConnections()
	defer s.metrics.DecConnections()
	defer c.Close()
	defer s.handler.Teardown(ctx, c)

	s.logger.Debug("connection accepted",
		"remote", c.RemoteAddr(),
		"session_id", c.GetState().SessionID)

	for {
		if s.cfg.IdleTimeout > 0 {
			if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				return
			}
		}

		line, err := wire.ReadLine(c.br)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case wire.IsProtocolError(err):
				s.logger.Warn("protocol violation", "remote", c.RemoteAddr(), "error", err)
			default:
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					s.logger.Debug("connection timed out", "remote", c.RemoteAddr())
				} else {
					s.logger.Debug("connection read error", "remote", c.RemoteAddr(), "error", err)
				}
			}
			return
		}

		if !s.limiter.allow(c.host) {
			s.metrics.IncRateLimited()
			_ = wire.WriteLine(c.bw, wire.ReplyRateLimited)
			if err := c.bw.Flush(); err != nil {
				return
			}
			continue
		}

		closeConn := s.handler.Handle(ctx, c, line)

		if err := c.bw.Flush(); err != nil {
			return
		}
		if closeConn {
			return
		}
	}
}
