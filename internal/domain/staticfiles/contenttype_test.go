package staticfiles

import (
	"strings"
	"testing"
)

func TestDetectContentType_ExtensionFastPath(t *testing.T) {
	t.Parallel()

	ct, err := DetectContentType("app.js", strings.NewReader(""))
	if err != nil {
		t.Fatalf("DetectContentType() error = %v", err)
	}
	if ct != "text/javascript; charset=utf-8" {
		t.Errorf("DetectContentType() = %q, want text/javascript; charset=utf-8", ct)
	}
}

func TestDetectContentType_SniffsUnknownExtension(t *testing.T) {
	t.Parallel()

	ct, err := DetectContentType("data.unknownext", strings.NewReader("%PDF-1.4\n"))
	if err != nil {
		t.Fatalf("DetectContentType() error = %v", err)
	}
	if ct != "application/pdf" {
		t.Errorf("DetectContentType() = %q, want application/pdf", ct)
	}
}

func TestDetectContentType_FallsBackToOctetStream(t *testing.T) {
	t.Parallel()

	ct, err := DetectContentType("data.unknownext", strings.NewReader(""))
	if err != nil {
		t.Fatalf("DetectContentType() error = %v", err)
	}
	if ct == "" {
		t.Error("DetectContentType() returned empty content type")
	}
}
