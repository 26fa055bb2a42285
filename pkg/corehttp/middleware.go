package corehttp

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/corehttp/corehttp/internal/adapter/metrics"
	"github.com/corehttp/corehttp/internal/ctxkey"
	"github.com/corehttp/corehttp/internal/domain/executor"
	"github.com/corehttp/corehttp/internal/domain/jwtauth"
	"github.com/corehttp/corehttp/internal/domain/middleware"
	"github.com/corehttp/corehttp/internal/domain/wsupgrade"
)

// RequestIDMiddleware extracts or generates a request id and enriches the
// logger carried on ctx.Ctx, mirroring the donor's RequestIDMiddleware /
// LoggerFromContext pair: a shared ctxkey type avoids an import cycle
// between this package and internal/adapter/server.
func RequestIDMiddleware(logger *slog.Logger) middleware.Middleware {
	return func(c *executor.Context, next middleware.Next) error {
		requestID, _ := c.Request.Headers.TryGet("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		enriched := logger.With("request_id", requestID)
		ctx := context.WithValue(c.Ctx, ctxkey.RequestIDKey{}, requestID)
		ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, enriched)
		c.Ctx = ctx

		if err := c.Response.AddHeader("X-Request-Id", requestID); err != nil {
			return err
		}
		return next(c)
	}
}

// LoggerFromContext retrieves the request-enriched logger stashed by
// RequestIDMiddleware, falling back to slog.Default() when none is present
// (e.g. a handler invoked outside the normal pipeline, such as a test).
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// MetricsMiddleware records requests_total and request_duration_seconds
// around the rest of the pipeline, bucketed by method and status class
// (internal/adapter/metrics.StatusClass), matching the donor's "one
// promauto metric per concern, recorded at the transport boundary" shape.
func MetricsMiddleware(m *metrics.Metrics) middleware.Middleware {
	return func(c *executor.Context, next middleware.Next) error {
		start := time.Now()
		err := next(c)
		m.RequestDuration.WithLabelValues(c.Request.Method).Observe(time.Since(start).Seconds())

		code := c.Response.StatusCode
		if code == 0 {
			if err != nil {
				code = 500
			} else {
				code = 200
			}
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, metrics.StatusClass(code)).Inc()
		return err
	}
}

// JWTMiddleware resolves the per-request JWT following §4.10's precedence
// (query > Authorization header > Sec-WebSocket-Protocol on upgrades),
// decodes and validates it against secret/opts, and records the outcome on
// ctx.Request via SetJWTResult. Per §7, this middleware never rejects a
// request on its own: absence of a token or a validation failure is
// surfaced through Request.JWTError/JWTToken for a handler or a later
// middleware to act on.
func JWTMiddleware(secret []byte, opts jwtauth.Options) middleware.Middleware {
	return func(c *executor.Context, next middleware.Next) error {
		req := c.Request
		queryJWT, hasQueryJWT := req.QueryParam("jwt")
		authorization, _ := req.Headers.TryGet("Authorization")
		secProto, _ := req.Headers.TryGet("Sec-WebSocket-Protocol")

		upgrade, _ := req.Headers.TryGet("Upgrade")
		connection, _ := req.Headers.TryGet("Connection")
		secKey, _ := req.Headers.TryGet("Sec-WebSocket-Key")
		secVersion, _ := req.Headers.TryGet("Sec-WebSocket-Version")
		isUpgrade := wsupgrade.IsUpgradeRequest(upgrade, connection, secKey, secVersion)

		raw, found := jwtauth.Resolve(queryJWT, hasQueryJWT, authorization, secProto, isUpgrade)
		if !found {
			return next(c)
		}
		req.SetRawJWT(raw)

		token, jwtErr := jwtauth.Decode(raw, secret, opts)
		req.SetJWTResult(token, jwtErr)
		return next(c)
	}
}
