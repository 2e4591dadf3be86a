package v1

import (
	"github.com/gofiber/fiber/v2"

	"hsrelay/internal/config"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/outbound"
)

// fiberClient is the hubspot.Client for one HTTP request. Cookie writes go
// out as Set-Cookie headers and are visible to later reads in the same
// request. Scripts are collected for the response body.
type fiberClient struct {
	c       *fiber.Ctx
	cfg     *config.Config
	fetcher Fetcher
	origin  outbound.Origin

	pending map[string]string
	scripts []string
	dropped int
}

var _ hubspot.Client = (*fiberClient)(nil)

func newFiberClient(c *fiber.Ctx, cfg *config.Config, fetcher Fetcher, origin outbound.Origin) *fiberClient {
	return &fiberClient{
		c:       c,
		cfg:     cfg,
		fetcher: fetcher,
		origin:  origin,
		pending: make(map[string]string),
		scripts: []string{},
	}
}

func (fc *fiberClient) Get(name string) (string, bool) {
	if v, ok := fc.pending[name]; ok {
		return v, v != ""
	}
	v := fc.c.Cookies(name)
	return v, v != ""
}

func (fc *fiberClient) Set(name, value string, scope hubspot.CookieScope) {
	fc.pending[name] = value
	fc.c.Cookie(&fiber.Cookie{
		Name:        name,
		Value:       value,
		Path:        "/",
		Domain:      fc.cfg.CookieDomain,
		MaxAge:      int(fc.cfg.CookieMaxAge(scope).Seconds()),
		Secure:      fc.cfg.CookieSecure,
		SameSite:    fiber.CookieSameSiteLaxMode,
		SessionOnly: scope == hubspot.ScopeSession,
	})
}

func (fc *fiberClient) Fetch(req hubspot.Request) {
	if fc.fetcher == nil || !fc.fetcher.Fetch(req, fc.origin) {
		fc.dropped++
	}
}

func (fc *fiberClient) Execute(script string) {
	fc.scripts = append(fc.scripts, script)
}

// cookieReader exposes the request cookies read-only.
type cookieReader struct {
	c *fiber.Ctx
}

func (r cookieReader) Get(name string) (string, bool) {
	v := r.c.Cookies(name)
	return v, v != ""
}
