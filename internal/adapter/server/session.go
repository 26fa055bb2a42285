// Package server implements the connection lifecycle: the per-connection
// Session loop (§4.6, §4.7) and the listener/acceptor-fan-out/idle-sweep
// Server built around it (§4.9, §5), generalized from the donor's
// HTTPTransport.Start/shutdown and MemorySessionStore.StartCleanup shapes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/corehttp/corehttp/internal/ctxkey"
	"github.com/corehttp/corehttp/internal/domain/executor"
	"github.com/corehttp/corehttp/internal/domain/httpmsg"
	"github.com/corehttp/corehttp/internal/domain/httpparse"
	"github.com/corehttp/corehttp/internal/domain/middleware"
	"github.com/corehttp/corehttp/internal/domain/router"
)

// Session is the per-connection cooperative read/parse/dispatch/respond
// loop described in §4.6. One Session owns one net.Conn for its lifetime;
// no state here is touched by any other goroutine except through the
// atomics explicitly called out below.
type Session struct {
	id         string
	ctx        context.Context
	conn       net.Conn
	router     *router.Router
	pipeline   *middleware.Pipeline
	parser     *httpparse.Parser
	logger     *slog.Logger
	serverName string

	receiveBufferSize int
	bufCeiling        int

	buf []byte

	request  httpmsg.Request
	response httpmsg.Response

	// sendGate is the CAS flag guarding SendAsync: a second concurrent
	// writer is a programming error, not a race to paper over (§4.6).
	sendGate int32

	// ownershipTaken marks a successful WebSocket (or other) transport
	// handoff; once set the loop exits without touching the conn again.
	ownershipTaken int32

	lastActivity atomic.Int64
}

func newSession(conn net.Conn, rt *router.Router, pipeline *middleware.Pipeline, parser *httpparse.Parser, logger *slog.Logger, serverName string, receiveBufferSize, bufCeiling int) *Session {
	s := &Session{
		id:                uuid.New().String(),
		ctx:               context.Background(),
		conn:              conn,
		router:            rt,
		pipeline:          pipeline,
		parser:            parser,
		logger:            logger,
		serverName:        serverName,
		receiveBufferSize: receiveBufferSize,
		bufCeiling:        bufCeiling,
		buf:               make([]byte, 0, receiveBufferSize),
	}
	s.touch()
	return s
}

// ID returns the session's identifier, stable for its lifetime (§3).
func (s *Session) ID() string { return s.id }

// touch records the current time as the session's last-activity tick for
// the idle-timeout sweeper (§5).
func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleSince reports how long it has been since the session last made
// progress on a read.
func (s *Session) IdleSince() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// Close closes the underlying connection. Safe to call from the sweeper
// or from Server shutdown while the session's own goroutine is blocked in
// a read; the read then fails and the loop exits cleanly (§4.6, §5).
func (s *Session) Close() error {
	return s.conn.Close()
}

// tryTakeTransportOwnership implements TryTakeTransportOwnership from
// §4.12: the first caller wins the CAS and receives the raw conn; every
// subsequent call (re-entrancy) fails.
func (s *Session) tryTakeTransportOwnership() (net.Conn, bool) {
	if atomic.CompareAndSwapInt32(&s.ownershipTaken, 0, 1) {
		return s.conn, true
	}
	return nil, false
}

// Run executes the cooperative loop until the connection closes, a
// protocol error forces termination, keep-alive says not to continue, or
// transport ownership is handed off. ctx cancellation is observed by
// closing the conn out-of-band, which unblocks the in-progress Read.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	watchStop := make(chan struct{})
	defer close(watchStop)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-watchStop:
		}
	}()

	s.loop()
}

func (s *Session) loop() {
	for {
		if err := s.ensureCapacity(); err != nil {
			s.writeStatusAndClose(413, "request exceeds configured limits")
			return
		}

		n, err := s.conn.Read(s.buf[len(s.buf):cap(s.buf)])
		if n > 0 {
			s.buf = s.buf[:len(s.buf)+n]
			s.touch()
		}
		if err != nil {
			// Remote reset/abort or a Close() triggered by cancellation or
			// the idle sweeper: return cleanly, no response attempted.
			return
		}

		for {
			consumed, result := s.parser.TryReadHTTPRequest(s.buf, &s.request)
			switch result {
			case httpparse.ParseIncomplete:
				goto readMore

			case httpparse.ParseOK:
				keepAlive, upgraded := s.dispatch()
				s.compact(consumed)
				if upgraded {
					return
				}
				if !keepAlive {
					s.conn.Close()
					return
				}
				continue

			case httpparse.ParseBadRequest:
				s.writeStatusAndClose(400, "malformed request")
				return

			case httpparse.ParseTooLarge:
				s.writeStatusAndClose(413, "request exceeds configured limits")
				return
			}
		}
	readMore:
	}
}

// ensureCapacity doubles the parse buffer's capacity (up to bufCeiling)
// when it has no room left for another read, per §5's "enlarge (doubling)
// within configured ceiling".
func (s *Session) ensureCapacity() error {
	if len(s.buf) < cap(s.buf) {
		return nil
	}
	if cap(s.buf) >= s.bufCeiling {
		return fmt.Errorf("server: parse buffer at ceiling (%d bytes)", s.bufCeiling)
	}
	newCap := cap(s.buf) * 2
	if newCap == 0 {
		newCap = s.receiveBufferSize
	}
	if newCap > s.bufCeiling {
		newCap = s.bufCeiling
	}
	grown := make([]byte, len(s.buf), newCap)
	copy(grown, s.buf)
	s.buf = grown
	return nil
}

// compact drops the consumed prefix so pipelined requests already sitting
// in the buffer are parsed without another read.
func (s *Session) compact(consumed int) {
	remaining := len(s.buf) - consumed
	copy(s.buf[:remaining], s.buf[consumed:])
	s.buf = s.buf[:remaining]
}

// dispatch runs one fully-parsed request through the middleware pipeline
// and executor, writes the response, and reports whether the connection
// should stay open (keepAlive) and whether transport ownership was handed
// off (upgraded, in which case keepAlive is meaningless: the loop exits).
func (s *Session) dispatch() (keepAlive bool, upgraded bool) {
	s.response.Reset()

	handler, routeVals, ok := s.router.Dispatch(s.request.Method, s.request.Path)
	if ok && routeVals != nil {
		for k, v := range routeVals {
			s.request.RouteValues()[k] = v
		}
	}

	reqCtx := context.WithValue(s.ctx, ctxkey.SessionIDKey{}, s.id)
	ctx := &executor.Context{
		Ctx:      reqCtx,
		Request:  &s.request,
		Response: &s.response,
		Upgrade:  &executor.UpgradeHandle{TakeOwnership: s.tryTakeTransportOwnership},
	}

	terminal := func(c *executor.Context) error {
		if !ok {
			if err := c.Response.Status(404); err != nil {
				return err
			}
			return c.Response.Text("not found")
		}
		exec, isExec := handler.(*executor.Executor)
		if !isExec {
			return fmt.Errorf("server: router handler is not an *executor.Executor")
		}
		return exec.Invoke(c)
	}

	if err := s.runPipeline(ctx, terminal); err != nil {
		s.logger.Error("request handling failed", "method", s.request.Method, "path", s.request.Path, "error", err)
		if !s.response.Sent() {
			_ = s.response.Status(500)
			_ = s.response.Text("internal server error")
		}
		s.writeResponse()
		return false, false
	}

	if atomic.LoadInt32(&s.ownershipTaken) == 1 {
		return false, true
	}

	keepAlive = s.keepAliveDecision()
	if !s.response.Sent() {
		s.writeResponse()
	}
	return keepAlive, false
}

// runPipeline invokes the middleware pipeline with a panic recovered at the
// session boundary and mapped to an error, matching §4.6/§7: "any other
// exception during parse/dispatch -> 500 + close" without crashing the
// acceptor goroutine for every other connection in flight.
func (s *Session) runPipeline(ctx *executor.Context, terminal middleware.Next) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("server: handler panicked: %v", rec)
		}
	}()
	return s.pipeline.Dispatch(ctx, terminal)
}

// keepAliveDecision implements §4.7: HTTP/1.1 stays open unless the
// request or the handler's response says Connection: close; HTTP/1.0
// closes unless the request says Connection: keep-alive.
func (s *Session) keepAliveDecision() bool {
	requestConn, _ := s.request.Headers.TryGet("Connection")
	var open bool
	if strings.HasPrefix(s.request.Protocol, "HTTP/1.0") {
		open = containsToken(requestConn, "keep-alive")
	} else {
		open = !containsToken(requestConn, "close")
	}
	if responseConn, ok := responseHeader(&s.response, "Connection"); ok && containsToken(responseConn, "close") {
		open = false
	}
	return open
}

// writeResponse sends s.response over the conn, guarded by the CAS send
// gate (§4.6): a second concurrent attempt is a programming error, logged
// rather than allowed to interleave with the first.
func (s *Session) writeResponse() {
	if !atomic.CompareAndSwapInt32(&s.sendGate, 0, 1) {
		s.logger.Error("concurrent SendAsync attempt on session", "path", s.request.Path)
		return
	}
	defer atomic.StoreInt32(&s.sendGate, 0)

	headOnly := s.request.Method == "HEAD"
	if _, err := s.response.SendAsync(s.conn, s.serverName, headOnly); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}

// writeStatusAndClose sends a minimal response (status code plus message as
// a text body) for parser-level failures (400/413) where no route was ever
// dispatched, then closes.
func (s *Session) writeStatusAndClose(code int, message string) {
	var resp httpmsg.Response
	_ = resp.Status(code)
	_ = resp.Text(message)
	if !atomic.CompareAndSwapInt32(&s.sendGate, 0, 1) {
		s.conn.Close()
		return
	}
	_, _ = resp.SendAsync(s.conn, s.serverName, false)
	atomic.StoreInt32(&s.sendGate, 0)
	s.conn.Close()
}

// containsToken reports whether a comma-separated header value contains
// token, compared case-insensitively (used for the Connection header).
func containsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// responseHeader performs a case-insensitive lookup over a Response's
// ordered header list; Response itself has no such accessor since
// duplicates (Set-Cookie, Vary) are intentionally order-preserving.
func responseHeader(r *httpmsg.Response, name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
