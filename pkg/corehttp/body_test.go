package corehttp

import (
	"testing"
)

func TestDecodeJSONBody_PopulatesTarget(t *testing.T) {
	t.Parallel()

	c := newTestContext("POST", "/items")
	c.Request.Headers.Add("Content-Type", "application/json")
	c.Request.Body = []byte(`{"name":"widget","qty":3}`)

	var target struct {
		Name string `json:"name"`
		Qty  int    `json:"qty"`
	}
	if err := DecodeJSONBody(c, &target, JSONOptions{}); err != nil {
		t.Fatalf("DecodeJSONBody() error = %v", err)
	}
	if target.Name != "widget" || target.Qty != 3 {
		t.Errorf("target = %+v, want {widget 3}", target)
	}
}

func TestDecodeJSONBody_WrongContentType(t *testing.T) {
	t.Parallel()

	c := newTestContext("POST", "/items")
	c.Request.Headers.Add("Content-Type", "text/plain")
	c.Request.Body = []byte(`{"name":"widget"}`)

	var target struct {
		Name string `json:"name"`
	}
	if err := DecodeJSONBody(c, &target, JSONOptions{}); err == nil {
		t.Fatal("DecodeJSONBody() error = nil, want ErrWrongContentType")
	}
}

func TestParseFormBody_DecodesURLEncoded(t *testing.T) {
	t.Parallel()

	c := newTestContext("POST", "/submit")
	c.Request.Body = []byte("name=a+b&tag%5B%5D=x&tag%5B%5D=y")

	values, err := ParseFormBody(c)
	if err != nil {
		t.Fatalf("ParseFormBody() error = %v", err)
	}
	if got := values["name"]; len(got) != 1 || got[0] != "a b" {
		t.Errorf("values[name] = %v, want [\"a b\"]", got)
	}
	if got := values["tag"]; len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("values[tag] = %v, want [x y]", got)
	}
}

func TestParseMultipartBody_SeparatesFieldsAndFiles(t *testing.T) {
	t.Parallel()

	const boundary = "boundary123"
	body := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"title\"\r\n\r\n" +
		"hello\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"file contents\r\n" +
		"--" + boundary + "--\r\n"

	c := newTestContext("POST", "/upload")
	c.Request.Headers.Add("Content-Type", "multipart/form-data; boundary="+boundary)
	c.Request.Body = []byte(body)

	fields, files, err := ParseMultipartBody(c, MultipartLimits{})
	if err != nil {
		t.Fatalf("ParseMultipartBody() error = %v", err)
	}
	if got := fields["title"]; len(got) != 1 || got[0] != "hello" {
		t.Errorf("fields[title] = %v, want [hello]", got)
	}
	if len(files) != 1 || files[0].Filename != "a.txt" || string(files[0].Content) != "file contents" {
		t.Errorf("files = %+v, want one a.txt file with \"file contents\"", files)
	}
}
