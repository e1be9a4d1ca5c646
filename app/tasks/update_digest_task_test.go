package tasks

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/market-comb/app/market"
)

func newDigestTask(remote *fakeRemote, store Store) *UpdateDigestTask {
	task := NewUpdateDigestTask(remote, store, "xyMarket", "Daily Thread", 1, 24*time.Hour)
	task.now = func() time.Time { return testNow }
	task.rng = rand.New(rand.NewPCG(1, 2))
	return task
}

func seedDigest(t *testing.T, remote *fakeRemote) Store {
	db := newTestStore(t)
	promoted := aged("p1", "alice", time.Hour)
	promoted.Promoted = true
	promoted.Payload = market.Payload{Title: "Promoted card", Category: "Vouchers & Gift Cards"}
	pending := aged("x1", "carol", time.Hour)
	pending.Approved = false
	insertRecords(t, db, promoted, aged("o1", "bob", 2*time.Hour), pending)
	return db
}

func TestUpdateDigest_ReplacesStalePost(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.pinned[1] = &market.Post{ID: "daily", CreatedAt: testNow.Add(-25 * time.Hour)}
	db := seedDigest(t, remote)

	require.NoError(t, newDigestTask(remote, db).Execute(context.Background()))

	assert.Equal(t, []string{"remove:daily", "submit:Daily Thread", "approve:new1", "pin:new1"}, remote.calls)
	require.Len(t, remote.submitted, 1)
	sub := remote.submitted[0]
	assert.Equal(t, "xyMarket", sub.Community)
	assert.False(t, sub.SendReplies)
	assert.Contains(t, sub.Body, "- **Vouchers & Gift Cards**\n  - ⭐ [Promoted card](/r/xyMarket/comments/p1)")
	assert.Contains(t, sub.Body, "- **Other**\n  - [Listing o1](/r/xyMarket/comments/o1)")
	assert.NotContains(t, sub.Body, "x1")
	assert.Equal(t, 1, remote.pins["new1"])
}

func TestUpdateDigest_EditsFreshPost(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.pinned[1] = &market.Post{ID: "daily", CreatedAt: testNow.Add(-12 * time.Hour)}
	db := seedDigest(t, remote)

	require.NoError(t, newDigestTask(remote, db).Execute(context.Background()))

	assert.Equal(t, []string{"edit:daily"}, remote.calls)
	body := remote.edited["daily"]
	assert.Equal(t, 2, strings.Count(body, "- **"))
	assert.Contains(t, body, "[Promoted card](/r/xyMarket/comments/p1)")
}

func TestUpdateDigest_CreatesWhenSlotEmpty(t *testing.T) {
	remote := newFakeRemote(testNow)
	db := seedDigest(t, remote)

	require.NoError(t, newDigestTask(remote, db).Execute(context.Background()))

	assert.Equal(t, []string{"submit:Daily Thread", "approve:new1", "pin:new1"}, remote.calls)
}

func TestUpdateDigest_EmptyStoreRendersPlaceholder(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.pinned[1] = &market.Post{ID: "daily", CreatedAt: testNow.Add(-time.Hour)}
	db := newTestStore(t)

	require.NoError(t, newDigestTask(remote, db).Execute(context.Background()))

	body := remote.edited["daily"]
	assert.NotEmpty(t, body)
	assert.NotContains(t, body, "- **")
}

func TestUpdateDigest_GetPinnedFailure(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.getPinnedErr = market.ErrRemoteUnavailable
	db := seedDigest(t, remote)

	err := newDigestTask(remote, db).Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrRemoteUnavailable)
	assert.Empty(t, remote.calls)
}

func TestMaintenanceTask_SweepsThenUpdatesDigest(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.pinned[1] = &market.Post{ID: "daily", CreatedAt: testNow.Add(-time.Hour)}
	db := newTestStore(t)
	insertRecords(t, db, aged("old", "alice", 8*24*time.Hour), aged("live", "bob", time.Hour))

	task := NewMaintenanceTask(newExpireTask(remote, db), newDigestTask(remote, db))
	assert.Equal(t, LaneMaintenance, task.GetLane())
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, []string{"remove:old", "message:alice", "edit:daily"}, remote.calls)
	assert.Contains(t, remote.edited["daily"], "comments/live")
	assert.NotContains(t, remote.edited["daily"], "comments/old")
}

func TestMaintenanceTask_DigestRunsWhenSweepFails(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.pinned[1] = &market.Post{ID: "daily", CreatedAt: testNow.Add(-time.Hour)}
	db := newTestStore(t)

	task := NewMaintenanceTask(newExpireTask(remote, failingStore{}), newDigestTask(remote, db))
	err := task.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrStoreUnavailable)
	assert.Equal(t, []string{"edit:daily"}, remote.calls)
}
