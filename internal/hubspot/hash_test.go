package hubspot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hsrelay/internal/hubspot"
)

func TestHashDomain(t *testing.T) {
	// Reference values produced by the browser tracking script.
	tests := []struct {
		domain string
		want   int32
	}{
		{domain: "domain.com", want: 30509994},
		{domain: "example.com", want: 60493049},
		{domain: "www.hubspot.com", want: 3270198},
		{domain: "a", want: 1589345},
		{domain: "", want: 0},
		{domain: "日本.jp", want: 631053705},
		{domain: "😀.io", want: 1049577481},
	}

	for _, tc := range tests {
		t.Run(tc.domain, func(t *testing.T) {
			assert.Equal(t, tc.want, hubspot.HashDomain(tc.domain))
		})
	}
}

func TestHashDomainIsStable(t *testing.T) {
	first := hubspot.HashDomain("shop.example.co.uk")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, hubspot.HashDomain("shop.example.co.uk"))
	}
}

func TestHashDomainStaysInPositiveRange(t *testing.T) {
	long := ""
	for i := 0; i < 512; i++ {
		long += string(rune('a' + i%26))
	}

	h := hubspot.HashDomain(long)
	assert.GreaterOrEqual(t, h, int32(0))
	assert.Less(t, h, int32(1<<30)+int32(1<<29))
}
