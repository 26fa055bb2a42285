// Package httpmsg holds the HTTP request/response data model: the
// HeaderStore hybrid field/list structure, the per-request Request record,
// and the builder-style Response (§3, §4.2, §4.8 of the design).
package httpmsg

import "strings"

// Header is a single enumerated header: name as transmitted, value as received.
type Header struct {
	Name  string
	Value string
}

// HeaderStore holds the common headers named in §3 in fixed-shape fields for
// O(1) hot-path access, and everything else in an append-only fallback list
// with case-insensitive lookup. Enumeration order is: set fast fields (in a
// fixed declaration order), then fallback entries in insertion order.
type HeaderStore struct {
	host                  string
	hostSet               bool
	contentType           string
	contentTypeSet        bool
	contentLength         string
	contentLengthSet      bool
	userAgent             string
	userAgentSet          bool
	accept                string
	acceptSet             bool
	acceptEncoding        string
	acceptEncodingSet     bool
	acceptLanguage        string
	acceptLanguageSet     bool
	connection            string
	connectionSet         bool
	transferEncoding      string
	transferEncodingSet   bool
	cookie                string
	cookieSet             bool
	upgrade               string
	upgradeSet            bool
	authorization         string
	authorizationSet      bool
	secWebSocketKey       string
	secWebSocketKeySet    bool
	secWebSocketVersion   string
	secWebSocketVerSet    bool
	secWebSocketProtocol  string
	secWebSocketProtoSet  bool

	fallback []Header
}

// fastField describes one of the fixed-shape common headers for table-driven
// Add/TryGet/EnumerateAll dispatch.
type fastField struct {
	canonical string
	get       func(*HeaderStore) (string, bool)
	set       func(*HeaderStore, string)
}

func fastFields() []fastField {
	return []fastField{
		{"Host", func(h *HeaderStore) (string, bool) { return h.host, h.hostSet }, func(h *HeaderStore, v string) { h.host, h.hostSet = v, true }},
		{"Content-Type", func(h *HeaderStore) (string, bool) { return h.contentType, h.contentTypeSet }, func(h *HeaderStore, v string) { h.contentType, h.contentTypeSet = v, true }},
		{"Content-Length", func(h *HeaderStore) (string, bool) { return h.contentLength, h.contentLengthSet }, func(h *HeaderStore, v string) { h.contentLength, h.contentLengthSet = v, true }},
		{"User-Agent", func(h *HeaderStore) (string, bool) { return h.userAgent, h.userAgentSet }, func(h *HeaderStore, v string) { h.userAgent, h.userAgentSet = v, true }},
		{"Accept", func(h *HeaderStore) (string, bool) { return h.accept, h.acceptSet }, func(h *HeaderStore, v string) { h.accept, h.acceptSet = v, true }},
		{"Accept-Encoding", func(h *HeaderStore) (string, bool) { return h.acceptEncoding, h.acceptEncodingSet }, func(h *HeaderStore, v string) { h.acceptEncoding, h.acceptEncodingSet = v, true }},
		{"Accept-Language", func(h *HeaderStore) (string, bool) { return h.acceptLanguage, h.acceptLanguageSet }, func(h *HeaderStore, v string) { h.acceptLanguage, h.acceptLanguageSet = v, true }},
		{"Connection", func(h *HeaderStore) (string, bool) { return h.connection, h.connectionSet }, func(h *HeaderStore, v string) { h.connection, h.connectionSet = v, true }},
		{"Transfer-Encoding", func(h *HeaderStore) (string, bool) { return h.transferEncoding, h.transferEncodingSet }, func(h *HeaderStore, v string) { h.transferEncoding, h.transferEncodingSet = v, true }},
		{"Cookie", func(h *HeaderStore) (string, bool) { return h.cookie, h.cookieSet }, func(h *HeaderStore, v string) { h.cookie, h.cookieSet = v, true }},
		{"Upgrade", func(h *HeaderStore) (string, bool) { return h.upgrade, h.upgradeSet }, func(h *HeaderStore, v string) { h.upgrade, h.upgradeSet = v, true }},
		{"Authorization", func(h *HeaderStore) (string, bool) { return h.authorization, h.authorizationSet }, func(h *HeaderStore, v string) { h.authorization, h.authorizationSet = v, true }},
		{"Sec-WebSocket-Key", func(h *HeaderStore) (string, bool) { return h.secWebSocketKey, h.secWebSocketKeySet }, func(h *HeaderStore, v string) { h.secWebSocketKey, h.secWebSocketKeySet = v, true }},
		{"Sec-WebSocket-Version", func(h *HeaderStore) (string, bool) { return h.secWebSocketVersion, h.secWebSocketVerSet }, func(h *HeaderStore, v string) { h.secWebSocketVersion, h.secWebSocketVerSet = v, true }},
		{"Sec-WebSocket-Protocol", func(h *HeaderStore) (string, bool) { return h.secWebSocketProtocol, h.secWebSocketProtoSet }, func(h *HeaderStore, v string) { h.secWebSocketProtocol, h.secWebSocketProtoSet = v, true }},
	}
}

func findFastField(name string) *fastField {
	for _, f := range fastFields() {
		if strings.EqualFold(f.canonical, name) {
			field := f
			return &field
		}
	}
	return nil
}

// Add assigns to the matching fast field if name matches one of the common
// headers (case-insensitive); otherwise appends to the fallback list.
func (h *HeaderStore) Add(name, value string) {
	if f := findFastField(name); f != nil {
		f.set(h, value)
		return
	}
	h.fallback = append(h.fallback, Header{Name: name, Value: value})
}

// TryGet performs a fast field lookup first, then a linear search of the
// fallback list (case-insensitive).
func (h *HeaderStore) TryGet(name string) (string, bool) {
	if f := findFastField(name); f != nil {
		return f.get(h)
	}
	for _, hdr := range h.fallback {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Reset clears all fields and the fallback list for reuse across pipelined
// requests/responses within a Session.
func (h *HeaderStore) Reset() {
	*h = HeaderStore{fallback: h.fallback[:0]}
}

// EnumerateAll yields fast fields (in declaration order, only those set)
// followed by fallback entries in insertion order.
func (h *HeaderStore) EnumerateAll() []Header {
	out := make([]Header, 0, len(h.fallback)+4)
	for _, f := range fastFields() {
		if v, ok := f.get(h); ok {
			out = append(out, Header{Name: f.canonical, Value: v})
		}
	}
	out = append(out, h.fallback...)
	return out
}

// Cookie is a decoded name/value pair from the Cookie header.
type Cookie struct {
	Name  string
	Value string
}

// Cookies parses the Cookie header on demand. Cookie names are compared
// case-sensitively; values are trimmed per RFC 6265.
func (h *HeaderStore) Cookies() []Cookie {
	raw, ok := h.TryGet("Cookie")
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	cookies := make([]Cookie, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		value = strings.Trim(value, `"`)
		if name == "" {
			continue
		}
		cookies = append(cookies, Cookie{Name: name, Value: value})
	}
	return cookies
}

// Cookie looks up a single cookie by case-sensitive name.
func (h *HeaderStore) Cookie(name string) (string, bool) {
	for _, c := range h.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}
