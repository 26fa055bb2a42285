// Package middleware implements the ordered pre/post wrapping pipeline
// around a terminal executor (§4.5).
package middleware

import "github.com/corehttp/corehttp/internal/domain/executor"

// Next invokes the remainder of the pipeline (the next middleware, or the
// terminal executor once all middlewares have run).
type Next func(ctx *executor.Context) error

// Middleware wraps Next; it may run logic before and/or after calling next,
// or short-circuit by not calling it at all.
type Middleware func(ctx *executor.Context, next Next) error

// Pipeline holds middlewares in registration order.
type Pipeline struct {
	middlewares []Middleware
}

// New constructs an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Use appends a middleware to the pipeline. Registration order is wrapping
// order: for middlewares M1, M2 the effective call order is
// M1 -> M2 -> terminal.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
}

// Compose builds a single Next closure around terminal, composed once per
// request. When no middleware is registered, terminal is returned directly
// without allocating a wrapper chain.
func (p *Pipeline) Compose(terminal Next) Next {
	if len(p.middlewares) == 0 {
		return terminal
	}
	chain := terminal
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw := p.middlewares[i]
		next := chain
		chain = func(ctx *executor.Context) error {
			return mw(ctx, next)
		}
	}
	return chain
}

// Dispatch composes the pipeline around terminal and invokes it once
// against ctx, matching §4.5's "composes the pipeline once per request"
// contract.
func (p *Pipeline) Dispatch(ctx *executor.Context, terminal Next) error {
	return p.Compose(terminal)(ctx)
}
