package httpmsg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// ErrAlreadySent is returned by Send/SendAsync when the response has
// already been sent once. Per the Open Question recorded in DESIGN.md, the
// pipeline does not auto-short-circuit on a second Send; callers (or a
// wrapping middleware) decide what to do with the error.
var ErrAlreadySent = errors.New("httpmsg: response already sent")

// FileBody describes a file to stream as the response body without loading
// it into memory (§4.8).
type FileBody struct {
	Path        string
	Size        int64
	ContentType string
}

// Response is the per-request output record, owned by a Session and reset
// between pipelined requests. All fluent stages may be called in any order
// before the terminal Send; after Send, mutation methods return
// ErrAlreadySent instead of panicking, so a careless middleware fails soft.
type Response struct {
	StatusCode int
	Reason     string
	Headers    []Header // ordered; duplicates permitted (Vary, Set-Cookie)

	body     []byte
	hasBody  bool
	file     *FileBody
	hasFile  bool

	sent      bool
	bytesSent int64
}

// Reset clears the Response for reuse with a new pipelined request.
func (r *Response) Reset() {
	r.StatusCode = 0
	r.Reason = ""
	r.Headers = r.Headers[:0]
	r.body = nil
	r.hasBody = false
	r.file = nil
	r.hasFile = false
	r.sent = false
	r.bytesSent = 0
}

// Sent reports whether SendAsync has already written this response.
func (r *Response) Sent() bool { return r.sent }

// BytesSent reports the number of body bytes written by the last Send.
func (r *Response) BytesSent() int64 { return r.bytesSent }

// Status sets the status code and, optionally, an explicit reason phrase
// (defaulting to the standard phrase for the code if omitted).
func (r *Response) Status(code int, reason ...string) error {
	if r.sent {
		return ErrAlreadySent
	}
	r.StatusCode = code
	if len(reason) > 0 {
		r.Reason = reason[0]
	} else {
		r.Reason = ""
	}
	return nil
}

// AddHeader appends a response header; duplicates are permitted.
func (r *Response) AddHeader(name, value string) error {
	if r.sent {
		return ErrAlreadySent
	}
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
	return nil
}

// SetCookie appends a Set-Cookie header following RFC 6265 attribute order.
type CookieAttrs struct {
	Path     string
	Domain   string
	MaxAge   int // seconds; 0 means omit
	Secure   bool
	HTTPOnly bool
	SameSite string // "Strict", "Lax", "None"; empty omits the attribute
}

// SetCookie appends a Set-Cookie header for name=value with the given attrs.
func (r *Response) SetCookie(name, value string, attrs CookieAttrs) error {
	v := name + "=" + value
	if attrs.Path != "" {
		v += "; Path=" + attrs.Path
	}
	if attrs.Domain != "" {
		v += "; Domain=" + attrs.Domain
	}
	if attrs.MaxAge != 0 {
		v += "; Max-Age=" + strconv.Itoa(attrs.MaxAge)
	}
	if attrs.Secure {
		v += "; Secure"
	}
	if attrs.HTTPOnly {
		v += "; HttpOnly"
	}
	if attrs.SameSite != "" {
		v += "; SameSite=" + attrs.SameSite
	}
	return r.AddHeader("Set-Cookie", v)
}

// Text sets a plain-text body.
func (r *Response) Text(s string) error {
	return r.Body([]byte(s), "text/plain; charset=utf-8")
}

// JSON serializes obj and sets it as the body with a JSON content type.
func (r *Response) JSON(obj interface{}) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("httpmsg: marshal json body: %w", err)
	}
	return r.Body(b, "application/json")
}

// Body sets an inline byte-slice body with the given content type. Replaces
// any previously set body or file body.
func (r *Response) Body(b []byte, contentType string) error {
	if r.sent {
		return ErrAlreadySent
	}
	r.body = b
	r.hasBody = true
	r.hasFile = false
	r.file = nil
	if contentType != "" {
		r.setContentType(contentType)
	}
	return nil
}

// File sets the body to stream from disk at Send time. Content-Length is
// taken from size (the file size at open); callers must not mutate the
// file during send.
func (r *Response) File(path string, size int64, contentType string) error {
	if r.sent {
		return ErrAlreadySent
	}
	r.file = &FileBody{Path: path, Size: size, ContentType: contentType}
	r.hasFile = true
	r.hasBody = false
	r.body = nil
	if contentType != "" {
		r.setContentType(contentType)
	}
	return nil
}

// RemoveBody clears any body previously set.
func (r *Response) RemoveBody() error {
	if r.sent {
		return ErrAlreadySent
	}
	r.body = nil
	r.hasBody = false
	r.file = nil
	r.hasFile = false
	return nil
}

func (r *Response) setContentType(ct string) {
	for i := range r.Headers {
		if equalFoldHeader(r.Headers[i].Name, "Content-Type") {
			r.Headers[i].Value = ct
			return
		}
	}
	r.Headers = append(r.Headers, Header{Name: "Content-Type", Value: ct})
}

func equalFoldHeader(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (r *Response) hasHeader(name string) bool {
	for _, h := range r.Headers {
		if equalFoldHeader(h.Name, name) {
			return true
		}
	}
	return false
}

// SendAsync writes status line, headers, and body to w. On file bodies it
// streams from disk without loading the whole file into memory. Sets the
// sent flag and records bytes-sent. serverName is used for the default
// Server header; headOnly suppresses body writing (HEAD responses, §4.11).
func (r *Response) SendAsync(w io.Writer, serverName string, headOnly bool) (int64, error) {
	if r.sent {
		return 0, ErrAlreadySent
	}

	code := r.StatusCode
	if code == 0 {
		code = 200
	}
	reason := r.Reason
	if reason == "" {
		reason = http.StatusText(code)
	}

	var bodyLen int64
	var bodyReader io.Reader
	var fileToClose *os.File

	switch {
	case r.hasFile && r.file != nil:
		bodyLen = r.file.Size
		if !headOnly {
			f, err := os.Open(r.file.Path)
			if err != nil {
				return 0, fmt.Errorf("httpmsg: open response file: %w", err)
			}
			fileToClose = f
			bodyReader = f
		}
	case r.hasBody:
		bodyLen = int64(len(r.body))
		if !headOnly {
			bodyReader = bytesReader(r.body)
		}
	}
	if fileToClose != nil {
		defer fileToClose.Close()
	}

	headerBuf := make([]byte, 0, 256)
	headerBuf = append(headerBuf, "HTTP/1.1 "...)
	headerBuf = strconv.AppendInt(headerBuf, int64(code), 10)
	headerBuf = append(headerBuf, ' ')
	headerBuf = append(headerBuf, reason...)
	headerBuf = append(headerBuf, "\r\n"...)

	if !r.hasHeader("Date") {
		headerBuf = append(headerBuf, "Date: "...)
		headerBuf = append(headerBuf, time.Now().UTC().Format(http1Date)...)
		headerBuf = append(headerBuf, "\r\n"...)
	}
	if !r.hasHeader("Server") && serverName != "" {
		headerBuf = append(headerBuf, "Server: "...)
		headerBuf = append(headerBuf, serverName...)
		headerBuf = append(headerBuf, "\r\n"...)
	}
	if !r.hasHeader("Content-Length") {
		headerBuf = append(headerBuf, "Content-Length: "...)
		headerBuf = strconv.AppendInt(headerBuf, bodyLen, 10)
		headerBuf = append(headerBuf, "\r\n"...)
	}
	for _, h := range r.Headers {
		headerBuf = append(headerBuf, h.Name...)
		headerBuf = append(headerBuf, ": "...)
		headerBuf = append(headerBuf, h.Value...)
		headerBuf = append(headerBuf, "\r\n"...)
	}
	headerBuf = append(headerBuf, "\r\n"...)

	if _, err := w.Write(headerBuf); err != nil {
		return 0, err
	}

	var written int64
	if bodyReader != nil {
		n, err := io.Copy(w, bodyReader)
		written = n
		if err != nil {
			return written, err
		}
	}

	r.sent = true
	r.bytesSent = written
	return written, nil
}

const http1Date = "Mon, 02 Jan 2006 15:04:05 GMT"

func bytesReader(b []byte) io.Reader {
	return &sliceReader{b: b}
}

// sliceReader avoids pulling in bytes.Reader just to wrap a []byte; kept
// tiny and allocation-free for the hot path of small inline bodies.
type sliceReader struct {
	b   []byte
	off int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.off >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.off:])
	s.off += n
	return n, nil
}
