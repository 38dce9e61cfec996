package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trusted    *TrustedProxies
		want       string
	}{
		{name: "untrusted peer ignores header", remoteAddr: "198.51.100.10:1234", xff: "203.0.113.5", want: "198.51.100.10"},
		{name: "trusted peer uses header", remoteAddr: "10.0.0.20:1234", xff: "203.0.113.5", trusted: trusted, want: "203.0.113.5"},
		{name: "rightmost untrusted hop wins", remoteAddr: "192.168.1.10:1234", xff: "203.0.113.9, 203.0.113.5, 10.0.0.10", trusted: trusted, want: "203.0.113.5"},
		{name: "garbage header falls back to peer", remoteAddr: "10.0.0.20:1234", xff: "nope", trusted: trusted, want: "10.0.0.20"},
		{name: "all hops trusted returns leftmost", remoteAddr: "10.0.0.20:1234", xff: "10.0.0.5, 10.0.0.10", trusted: trusted, want: "10.0.0.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/content/generate", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := NewTrustedProxies([]string{"bad-cidr"}); err == nil {
		t.Fatal("expected parse error")
	}
	got, err := NewTrustedProxies([]string{" ", ""})
	if err != nil || got != nil {
		t.Fatalf("blank entries: got %v err %v", got, err)
	}
}
