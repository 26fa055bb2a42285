package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/corehttp/corehttp/internal/adapter/metrics"
	"github.com/corehttp/corehttp/internal/config"
	"github.com/corehttp/corehttp/internal/domain/httpparse"
	"github.com/corehttp/corehttp/internal/domain/middleware"
	"github.com/corehttp/corehttp/internal/domain/router"
)

const defaultServerName = "corehttpd"

// Server owns the listener(s), the acceptor goroutines, the idle-timeout
// sweeper, and the session registry, following the donor's
// NewHTTPTransport/Start/shutdown functional-options shape (§4.9),
// generalized from "one net/http.Server" to "N acceptor goroutines over a
// raw net.Listener".
type Server struct {
	router   *router.Router
	pipeline *middleware.Pipeline
	cfg      config.ServerConfig

	logger     *slog.Logger
	serverName string
	tlsConfig  *tls.Config
	metrics    *metrics.Metrics

	registry *sessionRegistry

	listeners []net.Listener
	wg        sync.WaitGroup

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	sweepOnce sync.Once
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger sets the logger used for connection-lifecycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithServerName overrides the default Server response header value.
func WithServerName(name string) Option {
	return func(s *Server) { s.serverName = name }
}

// WithTLSConfig supplies a pre-built TLS configuration; the core never
// constructs certificates itself (SPEC_FULL's "Config-driven TLS" addition).
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithMetrics wires a Prometheus metrics set; omit to run without
// instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer constructs a Server around an already-built Router and
// middleware Pipeline, mirroring NewHTTPTransport(proxyService, opts...):
// the core collaborators are positional, everything else is an Option.
func NewServer(rt *router.Router, pipeline *middleware.Pipeline, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		router:     rt,
		pipeline:   pipeline,
		cfg:        cfg,
		logger:     slog.Default(),
		serverName: defaultServerName,
		registry:   newSessionRegistry(),
		sweepStop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins accepting connections and blocks until ctx is cancelled or
// a fatal listener error occurs, at which point it shuts down gracefully
// and returns (§4.9: "Run blocks for the server's lifetime").
func (s *Server) Start(ctx context.Context) error {
	bufCeiling := s.cfg.MaxRequestHeaderSize + int(s.cfg.MaxRequestBodySize)
	limits := httpparse.Limits{MaxHeaderBytes: s.cfg.MaxRequestHeaderSize, MaxBodyBytes: s.cfg.MaxRequestBodySize}
	parser := httpparse.New(limits)

	listeners, err := s.openListeners(ctx)
	if err != nil {
		return err
	}
	s.listeners = listeners

	if idle, err := s.cfg.SessionTimeoutDuration(); err != nil {
		return err
	} else if idle > 0 {
		s.startSweeper(idle)
	}

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		s.wg.Add(1)
		go s.acceptLoop(ctx, l, parser, bufCeiling, errCh)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down server")
		return s.shutdown()
	case err := <-errCh:
		_ = s.shutdown()
		return err
	}
}

// openListeners builds the acceptor listener set per §4.9's AcceptPerCore:
// one listener per logical CPU sharing the port via SO_REUSEPORT on
// Linux, a single listener everywhere else (with a logged warning if the
// caller asked for AcceptPerCore on a platform that can't honor it).
func (s *Server) openListeners(ctx context.Context) ([]net.Listener, error) {
	if !s.cfg.AcceptPerCore {
		l, err := s.listen(ctx)
		if err != nil {
			return nil, err
		}
		return []net.Listener{l}, nil
	}

	if runtime.GOOS != "linux" {
		s.logger.Warn("accept_per_core requires SO_REUSEPORT, unsupported on this platform; falling back to a single acceptor", "goos", runtime.GOOS)
		l, err := s.listen(ctx)
		if err != nil {
			return nil, err
		}
		return []net.Listener{l}, nil
	}

	n := runtime.NumCPU()
	listeners := make([]net.Listener, 0, n)
	for i := 0; i < n; i++ {
		l, err := listenReusePort(ctx, s.cfg.Addr, s.cfg.ReuseAddress)
		if err != nil {
			for _, opened := range listeners {
				opened.Close()
			}
			return nil, err
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	return listenSingle(ctx, s.cfg.Addr, s.cfg.ReuseAddress)
}

func (s *Server) acceptLoop(ctx context.Context, l net.Listener, parser *httpparse.Parser, bufCeiling int, errCh chan<- error) {
	defer s.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			select {
			case errCh <- err:
			default:
			}
			return
		}

		configureTCP(conn, s.cfg)
		if s.tlsConfig != nil {
			conn = tls.Server(conn, s.tlsConfig)
		}

		sess := newSession(conn, s.router, s.pipeline, parser, s.logger, s.serverName, s.cfg.ReceiveBufferSize, bufCeiling)
		s.registry.register(sess)
		if s.metrics != nil {
			s.metrics.ActiveSessions.Inc()
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.registry.unregister(sess)
				if s.metrics != nil {
					s.metrics.ActiveSessions.Dec()
				}
			}()
			sess.Run(ctx)
		}()
	}
}

// configureTCP applies the configured Nagle/keep-alive knobs to an
// accepted connection when it is a *net.TCPConn (not true for the
// tls.Conn wrapper, which is configured before wrapping by the caller
// instead — see acceptLoop's ordering).
func configureTCP(conn net.Conn, cfg config.ServerConfig) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if cfg.TCPNoDelay {
		_ = tcp.SetNoDelay(true)
	}
	if cfg.TCPKeepAlive {
		// Unset or unparsable durations and a zero count keep the OS defaults.
		ka := net.KeepAliveConfig{Enable: true, Count: cfg.TCPKeepAliveRetryCount}
		if d, err := time.ParseDuration(cfg.TCPKeepAliveTime); err == nil {
			ka.Idle = d
		}
		if d, err := time.ParseDuration(cfg.TCPKeepAliveInterval); err == nil {
			ka.Interval = d
		}
		_ = tcp.SetKeepAliveConfig(ka)
	}
}

// startSweeper spawns the idle-connection sweeper goroutine, matching the
// donor's MemorySessionStore.StartCleanup shape exactly: ticker + stop
// channel + sync.Once + sync.WaitGroup, generalized from "expire sessions"
// to "close idle connections" (§5).
func (s *Server) startSweeper(idle time.Duration) {
	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()
		ticker := time.NewTicker(idle / 2)
		defer ticker.Stop()
		for {
			select {
			case <-s.sweepStop:
				return
			case <-ticker.C:
				closed := s.registry.sweepIdle(func(sess *Session) bool {
					return sess.IdleSince() >= idle
				})
				if closed > 0 {
					s.logger.Debug("swept idle connections", "count", closed)
				}
			}
		}
	}()
}

func (s *Server) stopSweeper() {
	s.sweepOnce.Do(func() {
		close(s.sweepStop)
	})
	s.sweepWG.Wait()
}

// shutdown closes the listeners, closes every active session, stops the
// sweeper, and waits for all goroutines to exit, mirroring
// HTTPTransport.shutdown's "close sessions, then stop the server, then
// wait" sequence.
func (s *Server) shutdown() error {
	for _, l := range s.listeners {
		_ = l.Close()
	}
	s.registry.closeAll()
	s.stopSweeper()
	s.wg.Wait()
	s.logger.Info("server shutdown complete")
	return nil
}

// Stop cancels the server's context-derived lifetime by closing the
// listeners and all sessions directly; callers that manage their own
// cancellation context typically never need to call this, but it is
// provided for embedding scenarios that don't plumb a context into Start.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the first listener's bound address, useful for tests that
// start a Server on ":0" and need the ephemeral port it was assigned.
func (s *Server) Addr() net.Addr {
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}
