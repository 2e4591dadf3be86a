package hubspot

// CookieScope selects the lifetime the host gives a cookie.
type CookieScope string

const (
	// ScopeDefault leaves the lifetime to the host's default policy.
	ScopeDefault  CookieScope = ""
	ScopeSession  CookieScope = "session"
	ScopeInfinite CookieScope = "infinite"
)

// CookieReader reads the host's cookie store.
type CookieReader interface {
	// Get returns the cookie value and whether it is set. Empty values count
	// as unset.
	Get(name string) (string, bool)
}

// Client is the host capability handed to every event. Fetch and Execute are
// one-way: the core never waits for, or looks at, their outcome.
type Client interface {
	CookieReader
	Set(name, value string, scope CookieScope)
	Fetch(req Request)
	Execute(script string)
}

// RequestKind labels an outbound request for logging and journaling.
type RequestKind string

const (
	KindTracking        RequestKind = "tracking"
	KindCollectedForm   RequestKind = "collected-form"
	KindLegacyForm      RequestKind = "legacy-form"
	KindIntegrationForm RequestKind = "integration-form"
)

// Redirect modes.
const (
	RedirectFollow = "follow"
	RedirectManual = "manual"
)

// Request describes an outbound HTTP call for the host to perform.
type Request struct {
	Kind    RequestKind
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte

	// Browser fetch options. The host maps them onto its own transport.
	Mode        string
	Credentials string
	KeepAlive   bool
	Redirect    string
}

// FollowsRedirects reports whether the host may follow redirects for req.
func (r Request) FollowsRedirects() bool {
	return r.Redirect != RedirectManual
}
