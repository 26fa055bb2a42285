package httpmsg

import (
	"bytes"
	"strings"
	"testing"
)

func TestResponse_JSONEcho(t *testing.T) {
	t.Parallel()

	var resp Response
	if err := resp.JSON(map[string]string{"msg": "hi"}); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if err := resp.Status(200); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	var buf bytes.Buffer
	n, err := resp.SendAsync(&buf, "corehttp", false)
	if err != nil {
		t.Fatalf("SendAsync() error = %v", err)
	}
	if n != int64(len(`{"msg":"hi"}`)) {
		t.Errorf("SendAsync() returned %d bytes, want %d", n, len(`{"msg":"hi"}`))
	}

	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("SendAsync() output missing status line: %q", out)
	}
	if !strings.Contains(out, "Content-Type: application/json\r\n") {
		t.Errorf("SendAsync() output missing Content-Type header: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 12\r\n") {
		t.Errorf("SendAsync() output missing correct Content-Length: %q", out)
	}
	if !strings.HasSuffix(out, `{"msg":"hi"}`) {
		t.Errorf("SendAsync() output missing body: %q", out)
	}
}

func TestResponse_SendTwiceFails(t *testing.T) {
	t.Parallel()

	var resp Response
	_ = resp.Text("hello")

	var buf bytes.Buffer
	if _, err := resp.SendAsync(&buf, "corehttp", false); err != nil {
		t.Fatalf("first SendAsync() error = %v", err)
	}
	if _, err := resp.SendAsync(&buf, "corehttp", false); err != ErrAlreadySent {
		t.Errorf("second SendAsync() error = %v, want ErrAlreadySent", err)
	}
	if err := resp.Status(500); err != ErrAlreadySent {
		t.Errorf("Status() after send error = %v, want ErrAlreadySent", err)
	}
}

func TestResponse_HeadOnlyOmitsBody(t *testing.T) {
	t.Parallel()

	var resp Response
	_ = resp.Text("hello world")

	var buf bytes.Buffer
	if _, err := resp.SendAsync(&buf, "corehttp", true); err != nil {
		t.Fatalf("SendAsync() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "hello world") {
		t.Errorf("SendAsync(headOnly=true) wrote body: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 11\r\n") {
		t.Errorf("SendAsync(headOnly=true) missing Content-Length reflecting the real body size: %q", out)
	}
}

func TestResponse_RemoveBody(t *testing.T) {
	t.Parallel()

	var resp Response
	_ = resp.Text("hello")
	_ = resp.RemoveBody()

	var buf bytes.Buffer
	if _, err := resp.SendAsync(&buf, "corehttp", false); err != nil {
		t.Fatalf("SendAsync() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Content-Length: 0\r\n") {
		t.Errorf("SendAsync() after RemoveBody should report zero length: %q", buf.String())
	}
}

func TestResponse_ExplicitHeadersNotOverridden(t *testing.T) {
	t.Parallel()

	var resp Response
	_ = resp.AddHeader("Server", "custom-server")
	_ = resp.Text("x")

	var buf bytes.Buffer
	if _, err := resp.SendAsync(&buf, "corehttp", false); err != nil {
		t.Fatalf("SendAsync() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Server: corehttp\r\n") {
		t.Errorf("SendAsync() overrode explicit Server header: %q", out)
	}
	if !strings.Contains(out, "Server: custom-server\r\n") {
		t.Errorf("SendAsync() dropped explicit Server header: %q", out)
	}
}
