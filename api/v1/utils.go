package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

var loopback = netip.MustParseAddr("127.0.0.1")

// proxyHeaders are read in order. Each may carry a comma separated chain.
var proxyHeaders = []string{
	fiber.HeaderXForwardedFor,
	"X-Real-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Client-IP",
}

// getClientIP returns the visitor's public address, preferring IPv4, or the
// loopback address when the request only carries internal hops.
func getClientIP(c *fiber.Ctx) string {
	for _, header := range proxyHeaders {
		if addr, ok := publicAddr(strings.Split(c.Get(header), ",")); ok {
			return addr.String()
		}
	}

	if addr, ok := publicAddr(forwardedFor(c.Get("Forwarded"))); ok {
		return addr.String()
	}

	if addr, ok := publicAddr([]string{c.Context().RemoteAddr().String(), c.IP()}); ok {
		return addr.String()
	}

	slog.Default().Debug("Fallback to loopback IP for request", slog.String("path", c.Path()))
	return loopback.String()
}

// publicAddr picks the first public IPv4 among candidates, else the first
// public IPv6.
func publicAddr(candidates []string) (netip.Addr, bool) {
	var v6 netip.Addr
	for _, raw := range candidates {
		addr, ok := parseAddr(raw)
		if !ok || !isPublic(addr) {
			continue
		}
		if addr.Is4() {
			return addr, true
		}
		if !v6.IsValid() {
			v6 = addr
		}
	}
	return v6, v6.IsValid()
}

// parseAddr accepts bare addresses, host:port pairs, bracketed IPv6, zones
// and quoted values as found in proxy headers.
func parseAddr(raw string) (netip.Addr, bool) {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	if s == "" {
		return netip.Addr{}, false
	}

	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap().WithZone(""), true
	}

	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}

func isPublic(addr netip.Addr) bool {
	return addr.IsValid() &&
		!addr.IsUnspecified() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast()
}

// forwardedFor extracts the for= parameters of an RFC 7239 Forwarded header.
func forwardedFor(header string) []string {
	var out []string
	for _, element := range strings.Split(header, ",") {
		for _, pair := range strings.Split(element, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && strings.EqualFold(key, "for") {
				out = append(out, value)
			}
		}
	}
	return out
}

// preferredLanguage returns the highest ranked tag of an Accept-Language
// header, or "" when there is none.
func preferredLanguage(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}

// validateOrigin checks the Origin header, or the Referer when it is missing,
// against the allowed hosts. An empty list allows every origin. Subdomains of
// an allowed host are accepted.
func validateOrigin(c *fiber.Ctx, allowed []string, logger *slog.Logger) error {
	if len(allowed) == 0 {
		return nil
	}

	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" {
		origin = c.Get(fiber.HeaderReferer)
	}
	if origin == "" {
		logger.Debug("No Origin or Referer header present")
		return fiber.NewError(http.StatusForbidden, errInvalidOrigin)
	}

	if !OriginAllowed(origin, allowed) {
		logger.Debug("Origin not allowed", slog.String("origin", origin))
		return fiber.NewError(http.StatusForbidden, errInvalidOrigin)
	}
	return nil
}

// OriginAllowed reports whether the host of origin, a full URL, is one of
// the allowed hosts or a subdomain of one. An empty list allows all.
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	parsedURL, err := url.Parse(origin)
	if err != nil || parsedURL.Hostname() == "" {
		return false
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	for _, entry := range allowed {
		host := allowedHost(entry)
		if hostname == host || strings.HasSuffix(hostname, "."+host) {
			return true
		}
	}
	return false
}

// allowedHost accepts both bare hosts and full origins in the allow-list.
func allowedHost(entry string) string {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if strings.Contains(entry, "://") {
		if u, err := url.Parse(entry); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return strings.TrimSuffix(entry, "/")
}

// generateETag creates a strong ETag from content using SHA-256
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
