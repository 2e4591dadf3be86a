package testsupport

import (
	"sync"

	"hsrelay/internal/hubspot"
)

// FakeClient is an in-memory hubspot.Client that records every effect.
type FakeClient struct {
	mu       sync.Mutex
	cookies  map[string]string
	Writes   []hubspot.CookieWrite
	Requests []hubspot.Request
	Scripts  []string
}

// Ensure FakeClient implements hubspot.Client
var _ hubspot.Client = (*FakeClient)(nil)

// NewFakeClient creates a client whose cookie store starts with cookies.
func NewFakeClient(cookies map[string]string) *FakeClient {
	store := make(map[string]string, len(cookies))
	for k, v := range cookies {
		store[k] = v
	}
	return &FakeClient{cookies: store}
}

func (c *FakeClient) Get(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cookies[name]
	return v, ok
}

func (c *FakeClient) Set(name, value string, scope hubspot.CookieScope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies[name] = value
	c.Writes = append(c.Writes, hubspot.CookieWrite{Name: name, Value: value, Scope: scope})
}

func (c *FakeClient) Fetch(req hubspot.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
}

func (c *FakeClient) Execute(script string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Scripts = append(c.Scripts, script)
}

// Write returns the last write of the named cookie.
func (c *FakeClient) Write(name string) (hubspot.CookieWrite, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Writes) - 1; i >= 0; i-- {
		if c.Writes[i].Name == name {
			return c.Writes[i], true
		}
	}
	return hubspot.CookieWrite{}, false
}

// LastRequest returns the most recent fetched request.
func (c *FakeClient) LastRequest() (hubspot.Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Requests) == 0 {
		return hubspot.Request{}, false
	}
	return c.Requests[len(c.Requests)-1], true
}

// Cookies returns a copy of the current cookie store.
func (c *FakeClient) Cookies() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.cookies))
	for k, v := range c.cookies {
		out[k] = v
	}
	return out
}

// DummyContext mirrors a desktop Chrome visit to a local page.
func DummyContext() hubspot.ClientContext {
	return hubspot.ClientContext{
		URL:          "http://127.0.0.1:1337/",
		Title:        `Zaraz "Test" /t Page`,
		Referrer:     "",
		UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		Language:     "en-GB",
		IP:           "127.0.0.1",
		ScreenWidth:  2560,
		ScreenHeight: 1080,
	}
}
