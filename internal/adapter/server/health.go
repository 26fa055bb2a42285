package server

import (
	"bytes"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/corehttp/corehttp/internal/domain/executor"
)

// HealthResponse is the JSON body served at /healthz, mirroring the
// donor's HealthChecker.Check() shape (status + named component checks).
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheckerFunc lets the embedder report an individual component's
// health; returning a non-nil error marks the component (and therefore
// the whole response) unhealthy.
type HealthCheckerFunc func() error

// HealthHandler builds the /healthz Delegate. checks is a name->probe map,
// evaluated on every request; an empty map still reports "healthy" with
// only the goroutine count, same as the donor's HealthChecker with no
// optional components configured.
func HealthHandler(checks map[string]HealthCheckerFunc, registry *sessionRegistry) executor.Delegate {
	return func(ctx *executor.Context) (interface{}, error) {
		results := make(map[string]string, len(checks)+2)
		healthy := true
		for name, probe := range checks {
			if err := probe(); err != nil {
				results[name] = "degraded: " + err.Error()
				healthy = false
			} else {
				results[name] = "ok"
			}
		}
		results["goroutines"] = strconv.Itoa(runtime.NumGoroutine())
		if registry != nil {
			results["active_sessions"] = strconv.Itoa(registry.size())
		}

		status := "healthy"
		code := 200
		if !healthy {
			status = "unhealthy"
			code = 503
		}
		// Set the status explicitly and JSON-encode here, rather than
		// returning the body for DefaultResultHandler: that handler always
		// forces 200 on a non-nil result, which would stomp the 503 above.
		if err := ctx.Response.Status(code); err != nil {
			return nil, err
		}
		if err := ctx.Response.JSON(HealthResponse{Status: status, Checks: results}); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// MetricsHandler builds the /metrics Delegate, gathering and text-encoding
// the registry's collectors the same way promhttp.Handler does, built
// directly on the Response model instead of net/http.ResponseWriter.
func MetricsHandler(gatherer prometheus.Gatherer) executor.Delegate {
	return func(ctx *executor.Context) (interface{}, error) {
		families, err := gatherer.Gather()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range families {
			if encErr := enc.Encode(mf); encErr != nil {
				return nil, encErr
			}
		}
		if err := ctx.Response.Status(200); err != nil {
			return nil, err
		}
		if err := ctx.Response.Body(buf.Bytes(), string(expfmt.FmtText)); err != nil {
			return nil, err
		}
		return ctx.Response, nil
	}
}
