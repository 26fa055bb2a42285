package server

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/corehttp/corehttp/internal/domain/httpparse"
	"github.com/corehttp/corehttp/internal/domain/middleware"
	"github.com/corehttp/corehttp/internal/domain/router"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { _ = clientConn.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := httpparse.New(httpparse.Limits{MaxHeaderBytes: 16384, MaxBodyBytes: 4 << 20})
	sess := newSession(serverConn, router.New(), middleware.New(), parser, logger, "test", 4096, 16384+4<<20)
	return sess
}

func TestSessionRegistry_RegisterUnregisterSize(t *testing.T) {
	t.Parallel()

	reg := newSessionRegistry()
	if reg.size() != 0 {
		t.Fatalf("size() = %d, want 0", reg.size())
	}

	sess := newTestSession(t)
	reg.register(sess)
	if reg.size() != 1 {
		t.Fatalf("size() = %d, want 1", reg.size())
	}

	reg.unregister(sess)
	if reg.size() != 0 {
		t.Fatalf("size() = %d, want 0 after unregister", reg.size())
	}
}

func TestSessionRegistry_CloseAll(t *testing.T) {
	t.Parallel()

	reg := newSessionRegistry()
	sess := newTestSession(t)
	reg.register(sess)

	reg.closeAll()

	// The session's connection should now be closed; a subsequent Close
	// must not panic or hang (net.Pipe's Close returns nil when repeated).
	_ = sess.Close()
}

func TestSessionRegistry_SweepIdle(t *testing.T) {
	t.Parallel()

	reg := newSessionRegistry()
	idleSess := newTestSession(t)
	freshSess := newTestSession(t)
	reg.register(idleSess)
	reg.register(freshSess)

	// Force idleSess to look idle without sleeping a full timeout window.
	idleSess.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())

	closed := reg.sweepIdle(func(s *Session) bool {
		return s.IdleSince() >= time.Minute
	})
	if closed != 1 {
		t.Fatalf("sweepIdle() closed = %d, want 1", closed)
	}
	if reg.size() != 2 {
		t.Fatalf("sweepIdle() must not unregister, size() = %d, want 2", reg.size())
	}
}
