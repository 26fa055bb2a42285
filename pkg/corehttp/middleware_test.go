package corehttp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corehttp/corehttp/internal/adapter/metrics"
	"github.com/corehttp/corehttp/internal/domain/executor"
	"github.com/corehttp/corehttp/internal/domain/httpmsg"
	"github.com/corehttp/corehttp/internal/domain/jwtauth"
)

func newTestContext(method, path string) *executor.Context {
	req := &httpmsg.Request{Method: method, Path: path}
	resp := &httpmsg.Response{}
	return &executor.Context{Ctx: context.Background(), Request: req, Response: resp}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func firstHeader(resp *httpmsg.Response, name string) string {
	for _, h := range resp.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func TestRequestIDMiddleware_GeneratesIDWhenAbsent(t *testing.T) {
	t.Parallel()

	c := newTestContext("GET", "/x")
	mw := RequestIDMiddleware(discardLogger())
	if err := mw(c, func(c *executor.Context) error { return nil }); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if firstHeader(c.Response, "X-Request-Id") == "" {
		t.Error("X-Request-Id header not set when absent from request")
	}
}

func TestRequestIDMiddleware_PreservesIncomingID(t *testing.T) {
	t.Parallel()

	c := newTestContext("GET", "/x")
	c.Request.Headers.Add("X-Request-Id", "req-123")

	mw := RequestIDMiddleware(discardLogger())
	if err := mw(c, func(c *executor.Context) error { return nil }); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if got := firstHeader(c.Response, "X-Request-Id"); got != "req-123" {
		t.Errorf("X-Request-Id header = %q, want req-123", got)
	}
}

func TestRequestIDMiddleware_EnrichesContextLogger(t *testing.T) {
	t.Parallel()

	c := newTestContext("GET", "/x")
	var sawLogger bool
	next := func(c *executor.Context) error {
		sawLogger = LoggerFromContext(c.Ctx) != nil
		return nil
	}

	mw := RequestIDMiddleware(discardLogger())
	if err := mw(c, next); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if !sawLogger {
		t.Error("next handler did not observe an enriched logger on ctx")
	}
}

func TestLoggerFromContext_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	if LoggerFromContext(context.Background()) == nil {
		t.Error("LoggerFromContext() returned nil without a fallback")
	}
}

type fixtureErr struct{ msg string }

func (e fixtureErr) Error() string { return e.msg }

func TestMetricsMiddleware_RecordsSuccess(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	c := newTestContext("GET", "/ok")

	mw := MetricsMiddleware(m)
	err := mw(c, func(c *executor.Context) error {
		return c.Response.Status(200)
	})
	if err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
}

func TestMetricsMiddleware_PropagatesHandlerError(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	c := newTestContext("POST", "/fail")
	want := fixtureErr{"boom"}

	mw := MetricsMiddleware(m)
	if err := mw(c, func(c *executor.Context) error { return want }); err != want {
		t.Fatalf("middleware error = %v, want %v", err, want)
	}
}

func TestJWTMiddleware_NoTokenPassesThrough(t *testing.T) {
	t.Parallel()

	c := newTestContext("GET", "/x")
	called := false
	mw := JWTMiddleware([]byte("secret"), jwtauth.Options{})
	if err := mw(c, func(c *executor.Context) error { called = true; return nil }); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if !called {
		t.Error("next handler was not invoked")
	}
	if c.Request.JWTToken != nil {
		t.Error("JWTToken should remain nil when no token is present")
	}
}

func TestJWTMiddleware_ValidTokenPopulatesUser(t *testing.T) {
	t.Parallel()

	secret := []byte("s3cr3t")
	token, err := jwtauth.Encode(secret, jwtauth.Claims{Sub: "u1"}, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	c := newTestContext("GET", "/x")
	c.Request.Headers.Add("Authorization", "Bearer "+token)

	mw := JWTMiddleware(secret, jwtauth.Options{})
	if err := mw(c, func(c *executor.Context) error { return nil }); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if c.Request.JWTError != jwtauth.None {
		t.Fatalf("JWTError = %v, want None", c.Request.JWTError)
	}
	if c.Request.User == nil || c.Request.User.ID != "u1" {
		t.Errorf("User = %+v, want ID=u1", c.Request.User)
	}
}

func TestJWTMiddleware_InvalidTokenSurfacesError(t *testing.T) {
	t.Parallel()

	token, err := jwtauth.Encode([]byte("right"), jwtauth.Claims{Sub: "u1"}, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	c := newTestContext("GET", "/x")
	c.Request.Headers.Add("Authorization", "Bearer "+token)

	mw := JWTMiddleware([]byte("wrong"), jwtauth.Options{})
	called := false
	if err := mw(c, func(c *executor.Context) error { called = true; return nil }); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if !called {
		t.Error("middleware must not short-circuit on an invalid token")
	}
	if c.Request.JWTError == jwtauth.None {
		t.Error("JWTError should report the signature failure")
	}
	if c.Request.User != nil {
		t.Error("User should remain nil when validation fails")
	}
}
