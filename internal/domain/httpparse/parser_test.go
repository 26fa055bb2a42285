package httpparse

import (
	"strings"
	"testing"

	"github.com/corehttp/corehttp/internal/domain/httpmsg"
)

func newParser() *Parser {
	return New(Limits{MaxHeaderBytes: 16384, MaxBodyBytes: 4 << 20})
}

func TestTryReadHTTPRequest_SimpleNoBody(t *testing.T) {
	t.Parallel()

	raw := "GET /api/echo HTTP/1.1\r\nHost: x\r\n\r\n"
	var req httpmsg.Request
	consumed, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseOK {
		t.Fatalf("result = %v, want ParseOK", result)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if req.Method != "GET" || req.Path != "/api/echo" {
		t.Errorf("Method/Path = %q/%q, want GET//api/echo", req.Method, req.Path)
	}
	if v, ok := req.Headers.TryGet("Host"); !ok || v != "x" {
		t.Errorf("Host header = %q, %v; want x, true", v, ok)
	}
}

func TestTryReadHTTPRequest_QuerySplit(t *testing.T) {
	t.Parallel()

	raw := "GET /files/a?name=b&x=1 HTTP/1.1\r\nHost: x\r\n\r\n"
	var req httpmsg.Request
	_, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseOK {
		t.Fatalf("result = %v, want ParseOK", result)
	}
	if req.Path != "/files/a" || req.RawQuery != "name=b&x=1" {
		t.Errorf("Path/RawQuery = %q/%q, want /files/a / name=b&x=1", req.Path, req.RawQuery)
	}
}

func TestTryReadHTTPRequest_Incomplete(t *testing.T) {
	t.Parallel()

	raw := "GET /api/echo HTTP/1.1\r\nHost: x\r\n"
	var req httpmsg.Request
	consumed, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseIncomplete {
		t.Fatalf("result = %v, want ParseIncomplete", result)
	}
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0", consumed)
	}
}

func TestTryReadHTTPRequest_ContentLengthBody(t *testing.T) {
	t.Parallel()

	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"
	var req httpmsg.Request
	consumed, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseOK {
		t.Fatalf("result = %v, want ParseOK", result)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if string(req.Body) != "hello" {
		t.Errorf("Body = %q, want hello", req.Body)
	}
}

func TestTryReadHTTPRequest_ContentLengthIncompleteBody(t *testing.T) {
	t.Parallel()

	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 10\r\n\r\nhello"
	var req httpmsg.Request
	consumed, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseIncomplete {
		t.Fatalf("result = %v, want ParseIncomplete", result)
	}
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0", consumed)
	}
}

func TestTryReadHTTPRequest_BodyTooLarge(t *testing.T) {
	t.Parallel()

	p := New(Limits{MaxHeaderBytes: 16384, MaxBodyBytes: 4})
	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 2048\r\n\r\n" + strings.Repeat("x", 2048)
	var req httpmsg.Request
	_, result := p.TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseTooLarge {
		t.Fatalf("result = %v, want ParseTooLarge", result)
	}
}

func TestTryReadHTTPRequest_ConflictingContentLengthAndChunked(t *testing.T) {
	t.Parallel()

	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"
	var req httpmsg.Request
	_, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseBadRequest {
		t.Fatalf("result = %v, want ParseBadRequest", result)
	}
}

func TestTryReadHTTPRequest_ChunkedBody(t *testing.T) {
	t.Parallel()

	raw := "POST /submit HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	var req httpmsg.Request
	consumed, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseOK {
		t.Fatalf("result = %v, want ParseOK", result)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if string(req.Body) != "hello world" {
		t.Errorf("Body = %q, want %q", req.Body, "hello world")
	}
}

func TestTryReadHTTPRequest_MalformedStartLine(t *testing.T) {
	t.Parallel()

	raw := "NOTVALIDREQUESTLINE\r\nHost: x\r\n\r\n"
	var req httpmsg.Request
	_, result := newParser().TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseBadRequest {
		t.Fatalf("result = %v, want ParseBadRequest", result)
	}
}

func TestTryReadHTTPRequest_Pipelining(t *testing.T) {
	t.Parallel()

	one := "GET /a HTTP/1.1\r\nHost: x\r\n\r\n"
	two := "GET /b HTTP/1.1\r\nHost: x\r\n\r\n"
	buf := []byte(one + two)

	p := newParser()
	var req httpmsg.Request

	consumed1, result1 := p.TryReadHTTPRequest(buf, &req)
	if result1 != ParseOK || consumed1 != len(one) {
		t.Fatalf("first parse = %d, %v; want %d, ParseOK", consumed1, result1, len(one))
	}
	if req.Path != "/a" {
		t.Errorf("first Path = %q, want /a", req.Path)
	}

	consumed2, result2 := p.TryReadHTTPRequest(buf[consumed1:], &req)
	if result2 != ParseOK || consumed2 != len(two) {
		t.Fatalf("second parse = %d, %v; want %d, ParseOK", consumed2, result2, len(two))
	}
	if req.Path != "/b" {
		t.Errorf("second Path = %q, want /b", req.Path)
	}
}

func TestTryReadHTTPRequest_HeaderTooLarge(t *testing.T) {
	t.Parallel()

	p := New(Limits{MaxHeaderBytes: 32, MaxBodyBytes: 1024})
	raw := "GET /a HTTP/1.1\r\nHost: " + strings.Repeat("x", 200) + "\r\n\r\n"
	var req httpmsg.Request
	_, result := p.TryReadHTTPRequest([]byte(raw), &req)

	if result != ParseTooLarge {
		t.Fatalf("result = %v, want ParseTooLarge", result)
	}
}
