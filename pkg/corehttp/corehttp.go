// Package corehttp is the public embeddable surface of the HTTP/1.1 server
// core: it wires the Router, the middleware Pipeline, and the connection-
// lifecycle Server around a Config, the way the donor's NewHTTPTransport
// composes a proxy service from its collaborators.
//
// Everything under internal/ stays an implementation detail; embedders
// only ever import this package.
package corehttp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corehttp/corehttp/internal/adapter/metrics"
	"github.com/corehttp/corehttp/internal/adapter/server"
	"github.com/corehttp/corehttp/internal/config"
	"github.com/corehttp/corehttp/internal/domain/executor"
	"github.com/corehttp/corehttp/internal/domain/jwtauth"
	"github.com/corehttp/corehttp/internal/domain/middleware"
	"github.com/corehttp/corehttp/internal/domain/router"
	"github.com/corehttp/corehttp/internal/domain/staticfiles"
)

// App is the embeddable server: a Router and Pipeline the caller populates
// via Map*/Use before calling Start, plus the optional static-file and
// JWT subsystems wired in through MountStatic/UseJWT.
type App struct {
	cfg      config.Config
	router   *router.Router
	pipeline *middleware.Pipeline
	srv      *server.Server

	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	static   *staticfiles.Module
}

// Option configures an App at construction time.
type Option func(*App)

// WithLogger sets the logger used for connection-lifecycle diagnostics and
// as the default for RequestIDMiddleware's enrichment.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithRegistry supplies a pre-built Prometheus registry instead of letting
// New create one; useful for embedding into a process that already has a
// shared registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// New constructs an App from cfg. Call the Map*/Use/Mount* methods to
// finish wiring routes, middleware, and optional subsystems, then Start.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{
		cfg:      cfg,
		router:   router.New(),
		pipeline: middleware.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	a.metrics = metrics.New(a.registry)
	return a
}

// Router exposes the underlying Router for advanced registration needs
// (e.g. a caller composing its own Controller expansion).
func (a *App) Router() *router.Router { return a.router }

// Metrics returns the Prometheus metric set backing this App.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Registry returns the Prometheus registerer backing this App's metrics,
// for mounting additional application-specific collectors.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Use appends a middleware to the dispatch pipeline; registration order is
// wrapping order (§4.5): the first Use call is the outermost wrapper.
func (a *App) Use(mw middleware.Middleware) { a.pipeline.Use(mw) }

// Map registers a route for method+path with the default (JSON) result
// handler.
func (a *App) Map(method, path string, fn executor.Delegate) {
	a.router.Map(method, path, executor.New(fn, nil))
}

// MapWithResultHandler registers a route using a non-default result
// handler for non-Response return values.
func (a *App) MapWithResultHandler(method, path string, fn executor.Delegate, rh executor.ResultHandler) {
	a.router.Map(method, path, executor.New(fn, rh))
}

func (a *App) MapGet(path string, fn executor.Delegate)    { a.Map("GET", path, fn) }
func (a *App) MapPost(path string, fn executor.Delegate)   { a.Map("POST", path, fn) }
func (a *App) MapPut(path string, fn executor.Delegate)    { a.Map("PUT", path, fn) }
func (a *App) MapDelete(path string, fn executor.Delegate) { a.Map("DELETE", path, fn) }
func (a *App) MapPatch(path string, fn executor.Delegate)  { a.Map("PATCH", path, fn) }
func (a *App) MapHead(path string, fn executor.Delegate)   { a.Map("HEAD", path, fn) }

// MapFallback registers the last-resort terminal handler (§4.3). Calling
// it more than once overwrites the previous fallback, same as Map on a
// duplicate (method, path) — MountStatic relies on this to install itself
// as the fallback when mounted after any caller-supplied one.
func (a *App) MapFallback(fn executor.Delegate) {
	a.router.MapFallback(executor.New(fn, nil))
}

// MapController expands a Controller into concrete registrations (§4.4),
// applying its class-level prefix (if any) and honoring per-method
// Absolute overrides.
func (a *App) MapController(c executor.Controller) {
	for _, b := range executor.ResolveControllerRoutes(c) {
		a.router.Map(b.Method, b.Path, executor.New(b.Handler, nil))
	}
}

// UseRequestID installs the request-id/logger-enrichment middleware.
func (a *App) UseRequestID() { a.Use(RequestIDMiddleware(a.logger)) }

// UseMetrics installs the requests_total/request_duration_seconds
// instrumentation middleware.
func (a *App) UseMetrics() { a.Use(MetricsMiddleware(a.metrics)) }

// UseJWT installs the JWT resolution/validation middleware driven by
// cfg.JWT (§4.10). The core never auto-rejects a request on JWT state;
// wire a handler or a later middleware that inspects
// ctx.Request.JWTError/JWTToken/User to enforce policy.
func (a *App) UseJWT() error {
	skew, err := a.cfg.JWT.SkewDuration()
	if err != nil {
		return fmt.Errorf("corehttp: invalid jwt skew: %w", err)
	}
	opts := jwtauth.Options{
		Skew:           skew,
		Issuer:         a.cfg.JWT.Issuer,
		ValidateExp:    a.cfg.JWT.ValidateExp,
		ValidateNbf:    a.cfg.JWT.ValidateNbf,
		ValidateIssuer: a.cfg.JWT.ValidateIssuer,
	}
	a.Use(JWTMiddleware([]byte(a.cfg.JWT.Secret), opts))
	return nil
}

// MountStatic wires the static-file module configured in cfg.Static as the
// router's fallback route (§4.11). It is a no-op if cfg.Static.Root is
// empty. Call it after any caller-supplied MapFallback, since the static
// module installs itself as the new fallback.
func (a *App) MountStatic() error {
	if a.cfg.Static.Root == "" {
		return nil
	}
	ttl, err := parseDurationOrZero(a.cfg.Static.CacheTTL)
	if err != nil {
		return fmt.Errorf("corehttp: invalid static cache_ttl: %w", err)
	}
	mod, err := staticfiles.NewModule(staticfiles.Options{
		Root:      a.cfg.Static.Root,
		URLPrefix: a.cfg.Static.URLPrefix,
		CacheTTL:  ttl,
		Limits: staticfiles.Limits{
			MaxCachedFileBytes: a.cfg.Static.MaxCachedFileBytes,
			MaxTotalCacheBytes: a.cfg.Static.MaxTotalCacheBytes,
			MaxCacheEntries:    a.cfg.Static.MaxCacheEntries,
		},
		AutoIndex:       a.cfg.Static.AutoIndex,
		DefaultDocument: a.cfg.Static.DefaultDocument,
		Logger:          a.logger,
	})
	if err != nil {
		return err
	}
	a.static = mod
	a.router.MapFallback(executor.New(StaticHandler(mod, a.metrics), nil))
	return nil
}

// MountHealth registers a GET route at path reporting the named checks plus
// the goroutine count. No active-session count is reported: the handler is
// built without the server's session registry.
func (a *App) MountHealth(path string, checks map[string]server.HealthCheckerFunc) {
	a.MapGet(path, server.HealthHandler(checks, nil))
}

// MountMetrics registers a GET /metrics route that text-encodes the App's
// Prometheus registry, mirroring promhttp.Handler without depending on
// net/http.
func (a *App) MountMetrics(path string) {
	a.MapGet(path, server.MetricsHandler(a.registry))
}

// Start builds the connection-lifecycle Server from the App's router,
// pipeline, and config, and blocks until ctx is cancelled (§4.9: "Run
// blocks for the server's lifetime").
func (a *App) Start(ctx context.Context, opts ...server.Option) error {
	allOpts := append([]server.Option{
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics),
	}, opts...)
	a.srv = server.NewServer(a.router, a.pipeline, a.cfg.Server, allOpts...)
	return a.srv.Start(ctx)
}

// Stop shuts the running Server down; it also closes the static-file
// module's filesystem watcher, if one was mounted.
func (a *App) Stop(ctx context.Context) error {
	var err error
	if a.srv != nil {
		err = a.srv.Stop(ctx)
	}
	if a.static != nil {
		_ = a.static.Close()
	}
	return err
}

// Addr returns the running Server's bound address (useful for tests that
// start on ":0"). Only valid after Start has begun listening.
func (a *App) Addr() net.Addr {
	if a.srv == nil {
		return nil
	}
	return a.srv.Addr()
}

// WithTLSConfig is a convenience re-export of server.WithTLSConfig for
// callers that don't want to import internal/adapter/server directly.
func WithTLSConfig(cfg *tls.Config) server.Option {
	return server.WithTLSConfig(cfg)
}

// parseDurationOrZero parses s, treating an empty string as "disabled"
// (zero duration) rather than an error — used for the optional
// cache_ttl knob, same convention as ServerConfig.SessionTimeoutDuration.
func parseDurationOrZero(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
