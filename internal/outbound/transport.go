package outbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"hsrelay/internal/hubspot"
)

const maxRedirects = 5

// Origin identifies the browser an outbound request is made on behalf of.
type Origin struct {
	UserAgent string
	IP        string
}

// Transport performs one request and returns the response status code.
type Transport func(ctx context.Context, req hubspot.Request, origin Origin) (int, error)

// FiberTransport sends requests with fiber's fasthttp client. Redirects are
// followed only when the request allows it.
func FiberTransport(timeout time.Duration) Transport {
	return func(ctx context.Context, req hubspot.Request, origin Origin) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		agent := fiber.AcquireAgent()
		r := agent.Request()
		r.Header.SetMethod(req.Method)
		r.SetRequestURI(req.URL)
		if err := agent.Parse(); err != nil {
			fiber.ReleaseAgent(agent)
			return 0, fmt.Errorf("parse request: %w", err)
		}

		// The agent ignores its redirect limit once a timeout is set, so
		// redirect-following requests bound the connection instead.
		limit := effectiveTimeout(ctx, timeout)
		if req.FollowsRedirects() {
			agent.HostClient.ReadTimeout = limit
			agent.HostClient.WriteTimeout = limit
			agent.MaxRedirectsCount(maxRedirects)
		} else {
			agent.Timeout(limit)
		}
		for k, v := range req.Headers {
			agent.Set(k, v)
		}
		if origin.UserAgent != "" {
			agent.UserAgent(origin.UserAgent)
		}
		if origin.IP != "" {
			agent.Set(fiber.HeaderXForwardedFor, origin.IP)
		}
		if len(req.Body) > 0 {
			agent.Body(req.Body)
		}
		code, _, errs := agent.Bytes()
		if len(errs) > 0 {
			return code, errors.Join(errs...)
		}
		return code, nil
	}
}

func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return timeout
	}
	if remaining := time.Until(deadline); remaining < timeout || timeout <= 0 {
		return remaining
	}
	return timeout
}
