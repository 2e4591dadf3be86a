package internal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsrelay/internal"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/outbound"
	"hsrelay/internal/testsupport"
)

func TestMountAppRoutes(t *testing.T) {
	app := testsupport.CreateTestApp(t, testsupport.TestConfig(t))

	routes := make(map[string]bool)
	for _, r := range app.Server.App().GetRoutes(true) {
		routes[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /_health",
		"HEAD /_health",
		"POST /x/api/v1/events",
		"OPTIONS /x/api/v1/events",
		"POST /x/api/v1/events/beacon",
		"GET /x/api/v1/me",
		"GET /y/api/v1/sdk.js",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestApplicationLifecycle(t *testing.T) {
	cfg := testsupport.TestConfig(t)
	cfg.DatabasePath = t.TempDir()
	cfg.DatabaseName = ""

	transport := testsupport.NewRecordingTransport(http.StatusOK)
	app, err := internal.NewAppWithConfig(cfg,
		internal.WithLogger(testsupport.DiscardLogger()),
		internal.WithTransport(transport.Transport()))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.DatabasePath, "hsrelay-test.db"), cfg.GetDatabasePath())

	require.NoError(t, app.DBManager.MigrateDatabase())
	require.NoError(t, app.StartWorkers())
	assert.True(t, app.Scheduler.IsRunning())

	req := httptest.NewRequest(http.MethodPost, "/x/api/v1/events",
		strings.NewReader(`{"type":"pageview","payload":{},"client":{"url":"https://domain.com/","userAgent":"Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	resp, err := app.Server.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	transport.WaitForRequests(t, 1, 2*time.Second)
	require.Eventually(t, func() bool {
		rows, err := app.Deliveries.Recent(10, "tracking")
		return err == nil && len(rows) == 1
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
	assert.False(t, app.Scheduler.IsRunning())
	assert.False(t, app.Dispatcher.Fetch(hubspot.Request{
		Kind:   hubspot.KindTracking,
		Method: http.MethodGet,
		URL:    "https://track.hubspot.com/__ptq.gif",
	}, outbound.Origin{}), "stopped dispatcher must drop requests")
}
