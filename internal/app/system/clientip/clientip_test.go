package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolve(t *testing.T) {
	trusted, err := ParseTrusted("10.0.0.0/8, 192.0.2.7")
	if err != nil {
		t.Fatalf("ParseTrusted: %v", err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct client", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted peer ignores headers", "203.0.113.5:4000", "1.2.3.4", "5.6.7.8", "203.0.113.5"},
		{"trusted proxy", "10.1.2.3:80", "198.51.100.9", "", "198.51.100.9"},
		{"spoofed left hop skipped", "10.1.2.3:80", "1.1.1.1, 198.51.100.9", "", "198.51.100.9"},
		{"proxy chain", "10.1.2.3:80", "198.51.100.9, 10.9.9.9, 192.0.2.7", "", "198.51.100.9"},
		{"real ip fallback", "192.0.2.7:80", "", "198.51.100.10", "198.51.100.10"},
		{"garbage header", "10.1.2.3:80", "not-an-ip", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := trusted.Resolve(r); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrusted_Invalid(t *testing.T) {
	for _, in := range []string{"nope", "10.0.0.0/99"} {
		if _, err := ParseTrusted(in); err == nil {
			t.Errorf("ParseTrusted(%q) should fail", in)
		}
	}
	if got, err := ParseTrusted(""); err != nil || len(got) != 0 {
		t.Errorf("empty list = %v, %v", got, err)
	}
}

func TestMiddleware_RewritesRemoteAddr(t *testing.T) {
	trusted, _ := ParseTrusted("10.0.0.0/8")
	var seen string
	h := trusted.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "198.51.100.9" {
		t.Errorf("behind proxy: got %q", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "203.0.113.5" {
		t.Errorf("direct: got %q", seen)
	}
}
