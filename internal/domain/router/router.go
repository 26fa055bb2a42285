// Package router implements exact and pattern route tables with
// specificity-scored dispatch (§4.3).
package router

import "strings"

// Handler is whatever the executor factory produces for a matched route;
// the router is deliberately ignorant of its internals.
type Handler interface{}

// segmentKind distinguishes the four segment forms a pattern template can
// use (§3: literal, single capture, catch-all capture, wildcard literal).
type segmentKind int

const (
	segLiteral segmentKind = iota
	segCapture
	segCatchAll
	segWildcard
)

type segment struct {
	kind    segmentKind
	literal string // for segLiteral and segWildcard ("*")
	name    string // for segCapture and segCatchAll
}

// route is a single registered pattern route, pre-compiled into segments at
// registration time so dispatch never re-parses the template.
type route struct {
	segments    []segment
	specificity int
	order       int // registration order, for tie-breaking
	handler     Handler
}

// Router holds the per-method exact and pattern tables plus the fallback
// terminal. The tables are not frozen when the server starts: Map and
// MapFallback remain callable, and Router has no locking of its own.
type Router struct {
	exact    map[string]map[string]Handler // method -> path -> handler
	patterns map[string][]*route           // method -> pattern list
	fallback Handler
	order    int
}

// New constructs an empty Router.
func New() *Router {
	return &Router{
		exact:    make(map[string]map[string]Handler),
		patterns: make(map[string][]*route),
	}
}

// Map registers a route for method+path. Duplicates on the same
// (method, path) overwrite the previous handler. A template compiling to
// any non-literal segment (`:name`, `:name*`, or `*`) is a pattern route;
// otherwise it is stored in the exact table.
func (rt *Router) Map(method, path string, handler Handler) {
	method = strings.ToUpper(method)
	segs := compileSegments(path)
	if !hasPatternSegment(segs) {
		norm := normalizePath(path)
		byMethod, ok := rt.exact[method]
		if !ok {
			byMethod = make(map[string]Handler)
			rt.exact[method] = byMethod
		}
		byMethod[norm] = handler
		return
	}

	for _, existing := range rt.patterns[method] {
		if len(existing.segments) != len(segs) {
			continue
		}
		same := true
		for i := range segs {
			if existing.segments[i] != segs[i] {
				same = false
				break
			}
		}
		if same {
			existing.handler = handler
			return
		}
	}

	rt.order++
	rt.patterns[method] = append(rt.patterns[method], &route{
		segments:    segs,
		specificity: specificityOf(segs),
		order:       rt.order,
		handler:     handler,
	})
}

// hasPatternSegment reports whether any compiled segment is a capture,
// catch-all, or wildcard — i.e. the template needs pattern matching rather
// than an exact-path lookup.
func hasPatternSegment(segs []segment) bool {
	for _, s := range segs {
		if s.kind != segLiteral {
			return true
		}
	}
	return false
}

// MapFallback registers the last-resort terminal handler, invoked when no
// exact or pattern route matches.
func (rt *Router) MapFallback(handler Handler) {
	rt.fallback = handler
}

// Dispatch selects a handler for method+path following §4.3's precedence:
// exact match, then best-specificity pattern match, then fallback. routeVals
// is populated with any captured segment values when a pattern route wins.
// ok is false only when no route matches and no fallback is registered.
func (rt *Router) Dispatch(method, path string) (handler Handler, routeVals map[string]string, ok bool) {
	method = strings.ToUpper(method)
	norm := normalizePath(path)

	if byMethod, exists := rt.exact[method]; exists {
		if h, found := byMethod[norm]; found {
			return h, nil, true
		}
	}

	if candidates, exists := rt.patterns[method]; exists {
		requestSegs := splitPath(norm)
		var best *route
		var bestVals map[string]string
		for _, cand := range candidates {
			if vals, matched := matchSegments(cand.segments, requestSegs); matched {
				if best == nil ||
					cand.specificity > best.specificity ||
					(cand.specificity == best.specificity && cand.order < best.order) {
					best = cand
					bestVals = vals
				}
			}
		}
		if best != nil {
			return best.handler, bestVals, true
		}
	}

	if rt.fallback != nil {
		return rt.fallback, nil, true
	}
	return nil, nil, false
}

func normalizePath(path string) string {
	return "/" + strings.Trim(path, "/")
}

func splitPath(norm string) []string {
	trimmed := strings.Trim(norm, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func compileSegments(template string) []segment {
	parts := splitPath(normalizePath(template))
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		switch {
		case part == "*":
			segs = append(segs, segment{kind: segWildcard, literal: "*"})
		case strings.HasPrefix(part, ":") && strings.HasSuffix(part, "*"):
			segs = append(segs, segment{kind: segCatchAll, name: strings.TrimSuffix(strings.TrimPrefix(part, ":"), "*")})
		case strings.HasPrefix(part, ":"):
			segs = append(segs, segment{kind: segCapture, name: strings.TrimPrefix(part, ":")})
		default:
			segs = append(segs, segment{kind: segLiteral, literal: part})
		}
	}
	return segs
}

func specificityOf(segs []segment) int {
	total := 0
	for _, s := range segs {
		if s.kind == segLiteral {
			total += len(s.literal)
		}
	}
	return total
}

// matchSegments attempts to match compiled pattern segments against the
// request's path segments, returning captured route values on success.
func matchSegments(pattern []segment, request []string) (map[string]string, bool) {
	vals := make(map[string]string)
	ri := 0
	for _, seg := range pattern {
		switch seg.kind {
		case segCatchAll:
			remainder := strings.Join(request[ri:], "/")
			remainder = strings.TrimRight(remainder, "/")
			vals[seg.name] = remainder
			return vals, true
		case segCapture, segLiteral, segWildcard:
			if ri >= len(request) {
				return nil, false
			}
			switch seg.kind {
			case segLiteral:
				if request[ri] != seg.literal {
					return nil, false
				}
			case segCapture:
				vals[seg.name] = request[ri]
			case segWildcard:
				// matches any single literal segment, no capture
			}
			ri++
		}
	}
	if ri != len(request) {
		return nil, false
	}
	return vals, true
}
