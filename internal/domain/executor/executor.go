// Package executor converts user-supplied delegates and controller route
// bindings into a uniform invocation shape (§4.4), binding parameters from
// route values and query parameters without per-request reflective
// discovery: the set of bindable struct fields for a given parameter
// struct type is computed once and cached (Design Note §9).
package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corehttp/corehttp/internal/domain/httpmsg"
)

// Context is the uniform invocation context passed to every delegate and
// controller action, regardless of how the route was registered.
type Context struct {
	// Ctx carries request-scoped values (request id, enriched logger,
	// owning session id) and observes server shutdown; middlewares may
	// replace it with a derived context.WithValue, never with an
	// unrelated one (Design Note §9's context discipline).
	Ctx      context.Context
	Request  *httpmsg.Request
	Response *httpmsg.Response

	// Upgrade is non-nil only when the active Session exposes transport
	// ownership transfer (§4.12). A handler that wants to hand the
	// connection to a non-HTTP protocol calls Upgrade.TakeOwnership after
	// writing its 101 response.
	Upgrade *UpgradeHandle
}

// UpgradeHandle lets a handler take ownership of the underlying connection
// for protocols that escape the request/response model entirely, such as
// WebSocket (§4.12). TakeOwnership returns ok=false on re-entrant calls or
// once the Session has already given up the connection.
type UpgradeHandle struct {
	TakeOwnership func() (net.Conn, bool)
}

// Delegate is a user-supplied handler. It may return (nil, nil) having
// already written ctx.Response itself, ctx.Response to mark completion
// explicitly, a non-Response value to hand to the configured ResultHandler,
// or an error to be mapped to a 500 by the caller.
type Delegate func(ctx *Context) (interface{}, error)

// ResultHandler converts a non-Response return value into a sent response.
type ResultHandler func(resp *httpmsg.Response, result interface{}) error

// DefaultResultHandler JSON-serializes result with a 200 OK, or sends 204
// No Content for a nil result. It is a no-op if the handler already sent
// the response itself.
func DefaultResultHandler(resp *httpmsg.Response, result interface{}) error {
	if resp.Sent() {
		return nil
	}
	if result == nil {
		return resp.Status(204)
	}
	if err := resp.Status(200); err != nil {
		return err
	}
	return resp.JSON(result)
}

// Executor is the uniform shape the router's matched handler resolves to.
type Executor struct {
	fn            Delegate
	resultHandler ResultHandler
}

// New wraps a delegate into the uniform Executor shape. A nil resultHandler
// defaults to DefaultResultHandler.
func New(fn Delegate, resultHandler ResultHandler) *Executor {
	if resultHandler == nil {
		resultHandler = DefaultResultHandler
	}
	return &Executor{fn: fn, resultHandler: resultHandler}
}

// Invoke runs the handler and applies the result handler to non-Response
// results. Per Design Note §9, a Response-typed result must be the same
// instance as ctx.Response (object identity); anything else is rejected
// rather than silently double-sending.
func (e *Executor) Invoke(ctx *Context) error {
	result, err := e.fn(ctx)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if resp, ok := result.(*httpmsg.Response); ok {
		if resp != ctx.Response {
			return fmt.Errorf("executor: handler returned a Response that is not ctx.Response")
		}
		return nil
	}
	return e.resultHandler(ctx.Response, result)
}

// RouteBinding describes one route exposed by a Controller method.
// Absolute bypasses the controller's own class-level prefix, so Path is
// registered as written. MapController adds no prefix of its own.
type RouteBinding struct {
	Method   string
	Path     string
	Absolute bool
	Handler  Delegate
}

// Controller is implemented by user types exposing a fixed set of route
// bindings. Routes() is called once at registration time; the returned
// Handlers must be stateless and safe for concurrent reuse, since a
// controller carries no per-request state of its own (§4.4).
type Controller interface {
	Routes() []RouteBinding
}

// PrefixedController is an optional extension a Controller may implement to
// contribute a class-level path prefix, concatenated with each non-absolute
// RouteBinding.Path.
type PrefixedController interface {
	Controller
	Prefix() string
}

var (
	// ErrParamMissing signals a required (non-pointer) bound field had no
	// corresponding route value or query parameter. No caller translates it
	// into a non-matching route: a Delegate that returns it gets the
	// session's 500 response, like any other handler error.
	ErrParamMissing = errors.New("executor: required parameter missing")
	// ErrParamInvalid signals a present value could not be coerced to the
	// bound field's type; the caller maps this to a 500 (§4.4: coercion
	// failure on an otherwise-matched parameter).
	ErrParamInvalid = errors.New("executor: parameter coercion failed")
)

// fieldSpec is the compiled binding for one struct field tagged `param:"name"`.
type fieldSpec struct {
	index      int
	name       string
	kind       reflect.Kind
	isPointer  bool
	isDuration bool
	isTime     bool
	isUUID     bool
}

var binderCache sync.Map // map[reflect.Type][]fieldSpec

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
	uuidType     = reflect.TypeOf(uuid.UUID{})
)

func fieldSpecsFor(t reflect.Type) []fieldSpec {
	if cached, ok := binderCache.Load(t); ok {
		return cached.([]fieldSpec)
	}
	specs := make([]fieldSpec, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("param")
		if tag == "" || tag == "-" {
			continue
		}
		ft := f.Type
		isPtr := ft.Kind() == reflect.Ptr
		if isPtr {
			ft = ft.Elem()
		}
		specs = append(specs, fieldSpec{
			index:      i,
			name:       tag,
			kind:       ft.Kind(),
			isPointer:  isPtr,
			isDuration: ft == durationType,
			isTime:     ft == timeType,
			isUUID:     ft == uuidType,
		})
	}
	actual, _ := binderCache.LoadOrStore(t, specs)
	return actual.([]fieldSpec)
}

// Bind populates target (a pointer to struct) from the request's route
// values and query parameters, route values taking precedence on a name
// collision (§4.4, §8). Field specs are computed once per struct type and
// cached; only value coercion runs per request.
func Bind(req *httpmsg.Request, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("executor: Bind target must be a pointer to struct")
	}
	elem := v.Elem()
	for _, spec := range fieldSpecsFor(elem.Type()) {
		raw, ok := req.RouteValue(spec.name)
		if !ok {
			raw, ok = req.QueryParam(spec.name)
		}
		field := elem.Field(spec.index)
		if !ok {
			if spec.isPointer {
				continue
			}
			return fmt.Errorf("%w: %s", ErrParamMissing, spec.name)
		}
		if err := setField(field, spec, raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrParamInvalid, spec.name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, spec fieldSpec, raw string) error {
	if spec.isPointer {
		newVal := reflect.New(field.Type().Elem())
		if err := setScalar(newVal.Elem(), spec, raw); err != nil {
			return err
		}
		field.Set(newVal)
		return nil
	}
	return setScalar(field, spec, raw)
}

func setScalar(field reflect.Value, spec fieldSpec, raw string) error {
	switch {
	case spec.isDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	case spec.isTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	case spec.isUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(id))
		return nil
	}

	switch spec.kind {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported parameter kind %s", spec.kind)
	}
	return nil
}

// ResolveControllerRoutes expands a Controller into concrete
// (method, path, handler) registrations, concatenating the class-level
// prefix (if any) with each non-absolute binding's path.
func ResolveControllerRoutes(c Controller) []RouteBinding {
	prefix := ""
	if pc, ok := c.(PrefixedController); ok {
		prefix = pc.Prefix()
	}
	bindings := c.Routes()
	out := make([]RouteBinding, 0, len(bindings))
	for _, b := range bindings {
		path := b.Path
		if !b.Absolute && prefix != "" {
			path = joinPrefix(prefix, b.Path)
		}
		out = append(out, RouteBinding{Method: b.Method, Path: path, Absolute: b.Absolute, Handler: b.Handler})
	}
	return out
}

func joinPrefix(prefix, path string) string {
	p := trimSlashes(prefix)
	s := trimSlashes(path)
	if p == "" {
		return "/" + s
	}
	if s == "" {
		return "/" + p
	}
	return "/" + p + "/" + s
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
