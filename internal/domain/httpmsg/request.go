package httpmsg

import (
	"net/url"
	"strings"

	"github.com/corehttp/corehttp/internal/domain/jwtauth"
)

// Request is the per-request input record, owned by a Session and reset
// between pipelined requests (§3). Method/Path/Headers become immutable
// once parsing completes; mutation methods below are intended for use by
// the parser (internal/domain/httpparse) only.
type Request struct {
	Method      string
	Path        string
	RawTarget   string
	Protocol    string
	RawQuery    string
	Headers     HeaderStore
	Body        []byte

	queryParams map[string]string
	routeValues map[string]string

	// JWT resolution state, populated lazily by callers of the jwtauth
	// subsystem; the core never auto-populates these (§7).
	rawJWT      string
	rawJWTKnown bool

	// JWTToken and JWTError surface the outcome of JWT resolution exactly
	// as §7 describes: "the core does not auto-reject; it surfaces state
	// via Request.JwtError and Request.JwtToken == nil". Middlewares or
	// handlers decide policy from these.
	JWTToken *jwtauth.Token
	JWTError jwtauth.Error

	// User is the resolved principal (§3's WebUser), lazily derived from
	// JWTToken unless a middleware explicitly overrides it.
	User *jwtauth.WebUser
}

// Reset clears the Request for reuse with a new pipelined request.
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.RawTarget = ""
	r.Protocol = ""
	r.RawQuery = ""
	r.Headers.Reset()
	r.Body = r.Body[:0]
	r.queryParams = nil
	r.routeValues = nil
	r.rawJWT = ""
	r.rawJWTKnown = false
	r.JWTToken = nil
	r.JWTError = jwtauth.None
	r.User = nil
}

// QueryParams lazily decodes RawQuery into a case-insensitive map. Keys are
// normalized to lower-case for lookup; QueryParam performs the fold.
func (r *Request) QueryParams() map[string]string {
	if r.queryParams != nil {
		return r.queryParams
	}
	r.queryParams = make(map[string]string)
	if r.RawQuery == "" {
		return r.queryParams
	}
	values, err := url.ParseQuery(r.RawQuery)
	if err != nil {
		return r.queryParams
	}
	for k, v := range values {
		if len(v) == 0 {
			continue
		}
		r.queryParams[strings.ToLower(k)] = v[0]
	}
	return r.queryParams
}

// QueryParam looks up a single query parameter case-insensitively.
func (r *Request) QueryParam(name string) (string, bool) {
	v, ok := r.QueryParams()[strings.ToLower(name)]
	return v, ok
}

// RouteValues returns the mutable map of path-pattern captures. Created
// lazily; the router populates it once a pattern route matches.
func (r *Request) RouteValues() map[string]string {
	if r.routeValues == nil {
		r.routeValues = make(map[string]string)
	}
	return r.routeValues
}

// RouteValue looks up a single route value by ordinal (case-sensitive) name.
func (r *Request) RouteValue(name string) (string, bool) {
	if r.routeValues == nil {
		return "", false
	}
	v, ok := r.routeValues[name]
	return v, ok
}

// SetRawJWT records the token string resolved by the JWT subsystem's
// resolution order (§4.10). Idempotent per request.
func (r *Request) SetRawJWT(token string) {
	r.rawJWT = token
	r.rawJWTKnown = true
}

// RawJWT returns the token string previously resolved, if any.
func (r *Request) RawJWT() (string, bool) {
	return r.rawJWT, r.rawJWTKnown
}

// SetJWTResult records the outcome of decoding/validating the resolved raw
// JWT (§4.10, §7). On a None error it also derives the default WebUser from
// the token, unless SetUser has already been called for this request.
func (r *Request) SetJWTResult(token *jwtauth.Token, jwtErr jwtauth.Error) {
	r.JWTToken = token
	r.JWTError = jwtErr
	if jwtErr == jwtauth.None && r.User == nil {
		r.User = jwtauth.UserFromToken(token)
	}
}

// SetUser explicitly overrides the resolved principal, as permitted by §3:
// "Resolved lazily from JWT unless explicitly overridden by a middleware."
func (r *Request) SetUser(user *jwtauth.WebUser) {
	r.User = user
}
