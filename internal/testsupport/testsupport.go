package testsupport

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hsrelay/internal"
	"hsrelay/internal/config"
	"hsrelay/internal/database"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/outbound"
)

// GetLogger returns a logger that only prints errors.
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return ctestsupport.NewTestLogger()
}

// SetupTestDB creates an in-memory database with the journal migrated,
// using cartridge's testsupport. The pool is pinned to one connection since
// every new in-memory connection would see an empty database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := ctestsupport.SetupTestDB(t, ctestsupport.TestDBOptions{
		Models: database.Models(),
	})

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("testsupport: failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db
}

// TestConfig returns a validated configuration for a regional test portal.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		AppName:                "hsrelay",
		AppPort:                "0",
		Environment:            config.Test,
		LogLevel:               config.LogLevelError,
		AccountID:              "12345",
		RegionPrefix:           "eu1",
		DomainName:             "domain.com",
		FormsAPI:               string(hubspot.FormsAPILegacy),
		CookieSecure:           true,
		CookieDefaultDays:      180,
		CookieInfiniteDays:     390,
		SkipBots:               true,
		DispatchWorkers:        2,
		DispatchQueueSize:      64,
		DispatchTimeoutSeconds: 5,
		DatabasePath:           t.TempDir(),
		DeliveryLog:            true,
		DeliveryRetentionDays:  14,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// RecordedRequest is one call seen by a RecordingTransport.
type RecordedRequest struct {
	Request hubspot.Request
	Origin  outbound.Origin
}

// RecordingTransport answers every outbound request with a fixed status and
// keeps what it was asked to send.
type RecordingTransport struct {
	Status int
	Err    error

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewRecordingTransport creates a transport answering with status.
func NewRecordingTransport(status int) *RecordingTransport {
	return &RecordingTransport{Status: status}
}

// Transport returns the outbound.Transport backed by r.
func (r *RecordingTransport) Transport() outbound.Transport {
	return func(ctx context.Context, req hubspot.Request, origin outbound.Origin) (int, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.requests = append(r.requests, RecordedRequest{Request: req, Origin: origin})
		if r.Err != nil {
			return 0, r.Err
		}
		return r.Status, nil
	}
}

// Requests returns a copy of the recorded requests.
func (r *RecordingTransport) Requests() []RecordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedRequest(nil), r.requests...)
}

// WaitForRequests blocks until n requests were recorded or the timeout hits.
func (r *RecordingTransport) WaitForRequests(t *testing.T, n int, timeout time.Duration) []RecordedRequest {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(r.Requests()) >= n
	}, timeout, 10*time.Millisecond)
	return r.Requests()
}

// CreateTestApp builds an application on a migrated temp database and starts
// its background workers. The HTTP listener is not bound; drive it with
// app.Server.App().Test.
func CreateTestApp(t *testing.T, cfg *config.Config, opts ...internal.Option) *internal.Application {
	t.Helper()

	opts = append([]internal.Option{internal.WithLogger(DiscardLogger())}, opts...)

	app, err := internal.NewAppWithConfig(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, app.DBManager.MigrateDatabase())
	require.NoError(t, app.StartWorkers())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})

	return app
}
