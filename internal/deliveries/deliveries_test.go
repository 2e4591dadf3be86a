package deliveries_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hsrelay/internal/deliveries"
	"hsrelay/internal/testsupport"
)

func TestTargetOf(t *testing.T) {
	assert.Equal(t, "https://track.hubspot.com/__ptq.gif", deliveries.TargetOf("https://track.hubspot.com/__ptq.gif?vi=abc&u=1#x"))
	assert.Equal(t, "https://forms.hubspot.com/uploads/form/v2/1/f", deliveries.TargetOf("https://forms.hubspot.com/uploads/form/v2/1/f"))
}

func TestDeliveryFailed(t *testing.T) {
	assert.False(t, deliveries.Delivery{StatusCode: 204}.Failed())
	assert.False(t, deliveries.Delivery{StatusCode: 302}.Failed())
	assert.True(t, deliveries.Delivery{StatusCode: 404}.Failed())
	assert.True(t, deliveries.Delivery{Error: "timeout"}.Failed())
}

func TestStoreRecordAndRecent(t *testing.T) {
	store := deliveries.NewStore(testsupport.SetupTestDB(t))
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(&deliveries.Delivery{Kind: "tracking", Method: "GET", Target: "a", StatusCode: 200, CreatedAt: base}))
	require.NoError(t, store.Record(&deliveries.Delivery{Kind: "legacy-form", Method: "POST", Target: "b", StatusCode: 302, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Record(&deliveries.Delivery{Kind: "tracking", Method: "GET", Target: "c", Error: "timeout", CreatedAt: base.Add(2 * time.Minute)}))

	recent, err := store.Recent(10, "")
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Target)
	assert.Equal(t, "a", recent[2].Target)

	tracking, err := store.Recent(1, "tracking")
	require.NoError(t, err)
	require.Len(t, tracking, 1)
	assert.Equal(t, "c", tracking[0].Target)
}

func TestStoreRecordStampsCreatedAt(t *testing.T) {
	store := deliveries.NewStore(testsupport.SetupTestDB(t))

	d := &deliveries.Delivery{Kind: "tracking", Method: "GET", Target: "a"}
	require.NoError(t, store.Record(d))

	assert.NotZero(t, d.ID)
	assert.WithinDuration(t, time.Now(), d.CreatedAt, time.Minute)
}

func TestStoreSummarize(t *testing.T) {
	store := deliveries.NewStore(testsupport.SetupTestDB(t))
	now := time.Now().UTC()

	records := []deliveries.Delivery{
		{Kind: "tracking", StatusCode: 200, CreatedAt: now.Add(-time.Hour)},
		{Kind: "tracking", StatusCode: 500, CreatedAt: now.Add(-time.Hour)},
		{Kind: "tracking", Error: "dial tcp: timeout", CreatedAt: now.Add(-2 * time.Hour)},
		{Kind: "collected-form", StatusCode: 204, CreatedAt: now.Add(-3 * time.Hour)},
		{Kind: "tracking", StatusCode: 200, CreatedAt: now.Add(-48 * time.Hour)},
	}
	for i := range records {
		records[i].Method = "GET"
		records[i].Target = "https://track.hubspot.com/__ptq.gif"
		require.NoError(t, store.Record(&records[i]))
	}

	summary, err := store.Summarize(now.Add(-24 * time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.Total)
	assert.Equal(t, int64(2), summary.Failed)
	assert.Equal(t, []deliveries.KindCount{
		{Kind: "collected-form", Total: 1, Failed: 0},
		{Kind: "tracking", Total: 3, Failed: 2},
	}, summary.Kinds)
}

func TestStoreSummarizeEmpty(t *testing.T) {
	store := deliveries.NewStore(testsupport.SetupTestDB(t))

	summary, err := store.Summarize(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Kinds)
}

func TestStorePrune(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	store := deliveries.NewStore(db)
	now := time.Now().UTC()

	for i := 0; i < 7; i++ {
		require.NoError(t, store.Record(&deliveries.Delivery{Kind: "tracking", Method: "GET", Target: "old", CreatedAt: now.AddDate(0, 0, -30)}))
	}
	require.NoError(t, store.Record(&deliveries.Delivery{Kind: "tracking", Method: "GET", Target: "new", CreatedAt: now}))

	pending, err := store.CountBefore(now.AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.Equal(t, int64(7), pending)

	deleted, err := store.Prune(now.AddDate(0, 0, -14), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	var remaining []deliveries.Delivery
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Target)
}
