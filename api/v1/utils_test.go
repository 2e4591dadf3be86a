package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain ipv4", raw: "79.144.65.173", want: "79.144.65.173"},
		{name: "ipv4 with spaces", raw: " 79.144.65.173 ", want: "79.144.65.173"},
		{name: "quoted ipv4", raw: "\"79.144.65.173\"", want: "79.144.65.173"},
		{name: "ipv4 with port", raw: "79.144.65.173:443", want: "79.144.65.173"},
		{name: "quoted forwarded ipv4", raw: "\"79.144.65.173:1234\"", want: "79.144.65.173"},
		{name: "ipv6 literal", raw: "2001:db8::1", want: "2001:db8::1"},
		{name: "ipv6 in brackets", raw: "[2001:db8::1]", want: "2001:db8::1"},
		{name: "ipv6 with port", raw: "[2001:db8::1]:8443", want: "2001:db8::1"},
		{name: "ipv6 with zone", raw: "fe80::1%eth0", want: "fe80::1"},
		{name: "ipv4 mapped ipv6", raw: "::ffff:203.0.113.9", want: "203.0.113.9"},
		{name: "invalid value", raw: "not-an-ip", want: ""},
		{name: "empty", raw: "   ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			addr, ok := parseAddr(tc.raw)
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, addr.String())
		})
	}
}

func TestPublicAddr(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{
			name:   "prefers public ipv4 over ipv6",
			values: []string{"2001:db8::1", "203.0.113.20"},
			want:   "203.0.113.20",
		},
		{
			name:   "skips private addresses",
			values: []string{"192.168.1.10", "10.0.0.5", "::1", "fd00::7", "198.51.100.7"},
			want:   "198.51.100.7",
		},
		{
			name:   "returns ipv6 fallback when no ipv4",
			values: []string{"2001:db8::2"},
			want:   "2001:db8::2",
		},
		{
			name:   "mapped private ipv4 is private",
			values: []string{"::ffff:192.168.1.5"},
			want:   "",
		},
		{
			name:   "returns empty when no valid candidates",
			values: []string{"", "   ", "not-an-ip"},
			want:   "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			addr, ok := publicAddr(tc.values)
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, addr.String())
		})
	}
}

func TestForwardedFor(t *testing.T) {
	got := forwardedFor(`for=192.0.2.60;proto=http;by=203.0.113.43, For="[2001:db8:cafe::17]:4711"`)
	assert.Equal(t, []string{"192.0.2.60", `"[2001:db8:cafe::17]:4711"`}, got)

	addr, ok := publicAddr(got[1:])
	require.True(t, ok)
	assert.Equal(t, "2001:db8:cafe::17", addr.String())
}

func TestPreferredLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "en-GB,en;q=0.9", want: "en-GB"},
		{header: "fr;q=0.5, de-CH", want: "de-CH"},
	}

	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, preferredLanguage(tc.header))
		})
	}
}

func TestAllowedHost(t *testing.T) {
	assert.Equal(t, "example.com", allowedHost("example.com"))
	assert.Equal(t, "example.com", allowedHost(" Example.com/ "))
	assert.Equal(t, "shop.example.com", allowedHost("https://shop.example.com:8443"))
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"domain.com", "https://partner.example"}

	assert.True(t, OriginAllowed("https://domain.com", allowed))
	assert.True(t, OriginAllowed("https://www.domain.com", allowed))
	assert.True(t, OriginAllowed("http://partner.example:8080", allowed))
	assert.False(t, OriginAllowed("https://evil-domain.com", allowed))
	assert.False(t, OriginAllowed("https://domain.com.evil.example", allowed))
	assert.False(t, OriginAllowed("null", allowed))
	assert.True(t, OriginAllowed("https://anything.example", nil))
}

func TestGenerateETagIsStableAndQuoted(t *testing.T) {
	first := generateETag([]byte("content"))
	assert.Equal(t, first, generateETag([]byte("content")))
	assert.NotEqual(t, first, generateETag([]byte("other")))
	assert.True(t, first[0] == '"' && first[len(first)-1] == '"')
}
