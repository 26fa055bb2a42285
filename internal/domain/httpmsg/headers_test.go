package httpmsg

import "testing"

func TestHeaderStore_FastFieldRoundTrip(t *testing.T) {
	t.Parallel()

	var h HeaderStore
	h.Add("content-type", "application/json")
	h.Add("HOST", "example.com")

	if v, ok := h.TryGet("Content-Type"); !ok || v != "application/json" {
		t.Errorf("TryGet(Content-Type) = %q, %v; want application/json, true", v, ok)
	}
	if v, ok := h.TryGet("host"); !ok || v != "example.com" {
		t.Errorf("TryGet(host) = %q, %v; want example.com, true", v, ok)
	}
}

func TestHeaderStore_FallbackLookup(t *testing.T) {
	t.Parallel()

	var h HeaderStore
	h.Add("X-Custom-Header", "value1")
	h.Add("X-Another", "value2")

	if v, ok := h.TryGet("x-custom-header"); !ok || v != "value1" {
		t.Errorf("TryGet(x-custom-header) = %q, %v; want value1, true", v, ok)
	}
	if _, ok := h.TryGet("x-missing"); ok {
		t.Error("TryGet(x-missing) = ok, want not found")
	}
}

func TestHeaderStore_EnumerateAllOrder(t *testing.T) {
	t.Parallel()

	var h HeaderStore
	h.Add("X-First", "1")
	h.Add("Host", "example.com")
	h.Add("X-Second", "2")

	all := h.EnumerateAll()
	// Fast fields first (declaration order: Host is first in the table),
	// then fallback entries in insertion order.
	if len(all) != 3 {
		t.Fatalf("EnumerateAll() returned %d headers, want 3", len(all))
	}
	if all[0].Name != "Host" {
		t.Errorf("EnumerateAll()[0].Name = %q, want Host", all[0].Name)
	}
	if all[1].Name != "X-First" || all[2].Name != "X-Second" {
		t.Errorf("EnumerateAll() fallback order = %+v, want X-First then X-Second", all[1:])
	}
}

func TestHeaderStore_Cookies(t *testing.T) {
	t.Parallel()

	var h HeaderStore
	h.Add("Cookie", `session=abc123; theme="dark"; empty=`)

	cookies := h.Cookies()
	want := map[string]string{"session": "abc123", "theme": "dark", "empty": ""}
	if len(cookies) != len(want) {
		t.Fatalf("Cookies() returned %d entries, want %d", len(cookies), len(want))
	}
	for _, c := range cookies {
		if wv, ok := want[c.Name]; !ok || wv != c.Value {
			t.Errorf("Cookies() entry %+v not expected", c)
		}
	}

	// Case-sensitive name lookup (a cookie named "Session" must not match "session").
	if _, ok := h.Cookie("Session"); ok {
		t.Error("Cookie(\"Session\") matched case-insensitively, want exact match only")
	}
	if v, ok := h.Cookie("session"); !ok || v != "abc123" {
		t.Errorf("Cookie(session) = %q, %v; want abc123, true", v, ok)
	}
}

func TestHeaderStore_Reset(t *testing.T) {
	t.Parallel()

	var h HeaderStore
	h.Add("Host", "example.com")
	h.Add("X-Custom", "value")
	h.Reset()

	if _, ok := h.TryGet("Host"); ok {
		t.Error("TryGet(Host) after Reset found a value, want none")
	}
	if len(h.EnumerateAll()) != 0 {
		t.Error("EnumerateAll() after Reset is non-empty")
	}
}
