package outbound_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsrelay/internal/deliveries"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/outbound"
	"hsrelay/internal/testsupport"
)

type memoryJournal struct {
	mu      sync.Mutex
	records []deliveries.Delivery
	err     error
}

func (j *memoryJournal) Record(d *deliveries.Delivery) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, *d)
	return j.err
}

func (j *memoryJournal) all() []deliveries.Delivery {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]deliveries.Delivery(nil), j.records...)
}

func TestDispatcherDeliversAndJournals(t *testing.T) {
	journal := &memoryJournal{}
	var gotOrigin outbound.Origin
	transport := func(_ context.Context, req hubspot.Request, origin outbound.Origin) (int, error) {
		gotOrigin = origin
		if req.Kind == hubspot.KindLegacyForm {
			return 0, errors.New("connection refused")
		}
		return http.StatusNoContent, nil
	}

	d := outbound.NewDispatcher(outbound.Options{Workers: 1, QueueSize: 4, Transport: transport, Journal: journal}, testsupport.DiscardLogger())
	d.Start(context.Background())

	origin := outbound.Origin{UserAgent: "Mozilla/5.0", IP: "203.0.113.9"}
	require.True(t, d.Fetch(hubspot.Request{Kind: hubspot.KindTracking, Method: http.MethodGet, URL: "https://track.hubspot.com/__ptq.gif?vi=secret"}, origin))
	require.True(t, d.Fetch(hubspot.Request{Kind: hubspot.KindLegacyForm, Method: http.MethodPost, URL: "https://forms.hubspot.com/uploads/form/v2/1/f"}, origin))
	require.NoError(t, d.Stop(context.Background()))

	records := journal.all()
	require.Len(t, records, 2)
	assert.Equal(t, origin, gotOrigin)

	assert.Equal(t, "tracking", records[0].Kind)
	assert.Equal(t, "https://track.hubspot.com/__ptq.gif", records[0].Target, "query is not journaled")
	assert.Equal(t, http.StatusNoContent, records[0].StatusCode)
	assert.False(t, records[0].Failed())

	assert.Equal(t, "legacy-form", records[1].Kind)
	assert.Equal(t, "connection refused", records[1].Error)
	assert.True(t, records[1].Failed())
}

func TestDispatcherDropsWhenStopped(t *testing.T) {
	d := outbound.NewDispatcher(outbound.Options{Workers: 1, QueueSize: 1, Transport: func(context.Context, hubspot.Request, outbound.Origin) (int, error) {
		return http.StatusOK, nil
	}}, testsupport.DiscardLogger())
	d.Start(context.Background())
	require.NoError(t, d.Stop(context.Background()))

	assert.False(t, d.Fetch(hubspot.Request{Kind: hubspot.KindTracking, URL: "https://track.hubspot.com/"}, outbound.Origin{}))
}

func TestDispatcherWithoutJournal(t *testing.T) {
	var calls int
	d := outbound.NewDispatcher(outbound.Options{Workers: 1, QueueSize: 1, Transport: func(context.Context, hubspot.Request, outbound.Origin) (int, error) {
		calls++
		return http.StatusOK, nil
	}}, testsupport.DiscardLogger())
	d.Start(context.Background())

	require.True(t, d.Fetch(hubspot.Request{Kind: hubspot.KindTracking, Method: http.MethodGet, URL: "https://track.hubspot.com/"}, outbound.Origin{}))
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestFiberTransport(t *testing.T) {
	type seen struct {
		method, path, userAgent, forwardedFor, contentType, body string
	}
	var mu sync.Mutex
	var requests []seen

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, seen{
			method:       r.Method,
			path:         r.URL.Path,
			userAgent:    r.UserAgent(),
			forwardedFor: r.Header.Get("X-Forwarded-For"),
			contentType:  r.Header.Get("Content-Type"),
			body:         string(body),
		})
		mu.Unlock()

		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "/pixel", http.StatusFound)
		case "/form":
			http.Redirect(w, r, "/thanks", http.StatusFound)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	transport := outbound.FiberTransport(5 * time.Second)
	origin := outbound.Origin{UserAgent: "Mozilla/5.0 (Test)", IP: "203.0.113.9"}

	t.Run("follows redirects when allowed", func(t *testing.T) {
		code, err := transport(context.Background(), hubspot.Request{
			Method:   http.MethodGet,
			URL:      server.URL + "/redirect",
			Redirect: hubspot.RedirectFollow,
		}, origin)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, code)
	})

	t.Run("manual redirect returns the redirect status", func(t *testing.T) {
		code, err := transport(context.Background(), hubspot.Request{
			Method:   http.MethodPost,
			URL:      server.URL + "/form",
			Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
			Body:     []byte("a=1&b=2"),
			Redirect: hubspot.RedirectManual,
		}, origin)
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, code)
	})

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(requests), 3)
	assert.Equal(t, "/redirect", requests[0].path)
	assert.Equal(t, "/pixel", requests[1].path)
	assert.Equal(t, "Mozilla/5.0 (Test)", requests[0].userAgent)
	assert.Equal(t, "203.0.113.9", requests[0].forwardedFor)

	last := requests[len(requests)-1]
	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, "/form", last.path)
	assert.Equal(t, "application/x-www-form-urlencoded", last.contentType)
	assert.Equal(t, "a=1&b=2", last.body)
}

func TestFiberTransportCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := outbound.FiberTransport(time.Second)(ctx, hubspot.Request{Method: http.MethodGet, URL: "http://127.0.0.1:1/"}, outbound.Origin{})
	assert.ErrorIs(t, err, context.Canceled)
}
