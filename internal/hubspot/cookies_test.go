package hubspot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsrelay/internal/hubspot"
	"hsrelay/internal/testsupport"
)

const domainHash int32 = 30509994 // domain.com

var fixedNow = time.UnixMilli(1670502437123)

func TestDeriveStateFirstVisit(t *testing.T) {
	client := testsupport.NewFakeClient(nil)

	state := hubspot.DeriveState(fixedNow, client, domainHash)

	assert.True(t, state.IsNewVisitor)
	assert.True(t, state.IsNewSession)
	assert.Regexp(t, `^[0-9a-f]{32}$`, state.VisitorID)
	assert.Equal(t, "30509994."+state.VisitorID+".1670502437123.1670502437123.1670502437123.1", state.HSTC)
	assert.Equal(t, "30509994.1.1670502437123", state.HSSC)

	require.Len(t, state.Writes, 4)
	assert.Equal(t, hubspot.CookieWrite{Name: "hubspotutk", Value: state.VisitorID, Scope: hubspot.ScopeInfinite}, state.Writes[0])
	assert.Equal(t, hubspot.CookieWrite{Name: "hssrc", Value: "1", Scope: hubspot.ScopeSession}, state.Writes[1])
	assert.Equal(t, hubspot.CookieWrite{Name: "hstc", Value: state.HSTC, Scope: hubspot.ScopeInfinite}, state.Writes[2])
	assert.Equal(t, hubspot.CookieWrite{Name: "hssc", Value: state.HSSC, Scope: hubspot.ScopeSession}, state.Writes[3])
}

func TestDeriveStateReturningVisitorSameSession(t *testing.T) {
	vi := "0123456789abcdef0123456789abcdef"
	hstc := "30509994." + vi + ".1000.2000.3000.4"
	client := testsupport.NewFakeClient(map[string]string{
		"hubspotutk": vi,
		"hssrc":      "1",
		"hstc":       hstc,
		"hssc":       "30509994.5.3000",
	})

	state := hubspot.DeriveState(fixedNow, client, domainHash)

	assert.False(t, state.IsNewVisitor)
	assert.False(t, state.IsNewSession)
	assert.Equal(t, vi, state.VisitorID)
	assert.Equal(t, hstc, state.HSTC, "timing cookie is stable within a session")
	assert.Equal(t, "30509994.6.3000", state.HSSC)

	require.Len(t, state.Writes, 1, "only the session count cookie is rewritten")
	assert.Equal(t, "hssc", state.Writes[0].Name)
}

func TestDeriveStateNewSession(t *testing.T) {
	vi := "0123456789abcdef0123456789abcdef"
	client := testsupport.NewFakeClient(map[string]string{
		"hubspotutk": vi,
		"hstc":       "30509994." + vi + ".1000.2000.3000.4",
		"hssc":       "30509994.9.3000",
	})

	state := hubspot.DeriveState(fixedNow, client, domainHash)

	assert.False(t, state.IsNewVisitor)
	assert.True(t, state.IsNewSession)
	assert.Equal(t, "30509994."+vi+".1000.3000.1670502437123.4", state.HSTC)
	assert.Equal(t, "30509994.10.3000", state.HSSC, "page counter keeps counting across sessions")

	names := make([]string, 0, len(state.Writes))
	for _, w := range state.Writes {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"hssrc", "hstc", "hssc"}, names)
	assert.Equal(t, hubspot.ScopeDefault, state.Writes[1].Scope)
}

func TestDeriveStateSessionCounter(t *testing.T) {
	tests := []struct {
		name string
		hssc string
		want string
	}{
		{name: "increments", hssc: "d.5.t", want: "d.6.t"},
		{name: "large counter", hssc: "d.999999.t", want: "d.1000000.t"},
		{name: "not a number", hssc: "d.x.t", want: "d.NaN.t"},
		{name: "numeric prefix", hssc: "d. 7abc.t", want: "d.8.t"},
		{name: "hex prefix", hssc: "d.0x10.t", want: "d.17.t"},
		{name: "negative", hssc: "d.-3.t", want: "d.-2.t"},
		{name: "missing counter", hssc: "abc", want: "abc.NaN"},
		{name: "extra fields kept", hssc: "d.1.t.extra", want: "d.2.t.extra"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := testsupport.NewFakeClient(map[string]string{
				"hubspotutk": "0123456789abcdef0123456789abcdef",
				"hssrc":      "1",
				"hstc":       "x",
				"hssc":       tc.hssc,
			})

			state := hubspot.DeriveState(fixedNow, client, domainHash)
			assert.Equal(t, tc.want, state.HSSC)
		})
	}
}

func TestDeriveStateMalformedTiming(t *testing.T) {
	tests := []struct {
		name string
		hstc string
		want string
	}{
		{name: "short cookie is padded", hstc: "a.b.c", want: "a.b.c..1670502437123"},
		{name: "four fields", hstc: "a.b.c.d", want: "a.b.c..1670502437123"},
		{name: "extra fields kept", hstc: "a.b.c.d.e.f.g", want: "a.b.c.e.1670502437123.f.g"},
		{name: "single value", hstc: "garbage", want: "garbage....1670502437123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := testsupport.NewFakeClient(map[string]string{
				"hubspotutk": "0123456789abcdef0123456789abcdef",
				"hstc":       tc.hstc,
			})

			state := hubspot.DeriveState(fixedNow, client, domainHash)
			assert.Equal(t, tc.want, state.HSTC)
		})
	}
}

func TestDeriveStateTreatsEmptyCookiesAsAbsent(t *testing.T) {
	client := testsupport.NewFakeClient(map[string]string{
		"hubspotutk": "",
		"hssrc":      "",
	})

	state := hubspot.DeriveState(fixedNow, client, domainHash)

	assert.True(t, state.IsNewVisitor)
	assert.True(t, state.IsNewSession)
	assert.NotEmpty(t, state.VisitorID)
}

func TestDeriveStateDoesNotWriteThroughReader(t *testing.T) {
	client := testsupport.NewFakeClient(nil)

	hubspot.DeriveState(fixedNow, client, domainHash)

	assert.Empty(t, client.Writes, "writes are returned, not applied")
	assert.Empty(t, client.Cookies())
}
