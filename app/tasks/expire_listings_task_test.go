package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/market-comb/app/market"
)

const week = 7 * 24 * time.Hour

func aged(id, author string, age time.Duration) market.Record {
	return market.Record{
		ID:           id,
		Author:       author,
		CreatedAt:    testNow.Add(-age),
		Unstructured: true,
		Approved:     true,
		Payload:      market.Payload{Title: "Listing " + id, Category: "Other"},
	}
}

func newExpireTask(remote *fakeRemote, store Store) *ExpireListingsTask {
	task := NewExpireListingsTask(remote, store, "xyMarket", week)
	task.now = func() time.Time { return testNow }
	return task
}

func TestExpireListings_RemovesOnlyExpired(t *testing.T) {
	remote := newFakeRemote(testNow)
	db := newTestStore(t)
	insertRecords(t, db,
		aged("eight", "alice", 8*24*time.Hour),
		aged("six", "bob", 6*24*time.Hour),
	)

	require.NoError(t, newExpireTask(remote, db).Execute(context.Background()))

	records := listAll(t, db)
	require.Len(t, records, 1)
	assert.Equal(t, "six", records[0].ID)

	assert.Equal(t, []string{"eight"}, remote.removed)
	require.Len(t, remote.messages, 1)
	assert.Equal(t, "alice", remote.messages[0].To)
	assert.Equal(t, "r/xyMarket", remote.messages[0].Subject)
	assert.Contains(t, remote.messages[0].Body, "/r/xyMarket/comments/eight")
}

func TestExpireListings_SecondRunIsNoop(t *testing.T) {
	remote := newFakeRemote(testNow)
	db := newTestStore(t)
	insertRecords(t, db, aged("old", "alice", 10*24*time.Hour))

	require.NoError(t, newExpireTask(remote, db).Execute(context.Background()))
	require.NoError(t, newExpireTask(remote, db).Execute(context.Background()))

	assert.Equal(t, []string{"old"}, remote.removed)
	assert.Len(t, remote.messages, 1)
	assert.Empty(t, listAll(t, db))
}

func TestExpireListings_RemoteFailuresAreSkipped(t *testing.T) {
	remote := newFakeRemote(testNow)
	remote.removeErr["first"] = market.ErrRemoteUnavailable
	db := newTestStore(t)
	insertRecords(t, db,
		aged("first", "alice", 9*24*time.Hour),
		aged("second", "bob", 8*24*time.Hour),
	)

	require.NoError(t, newExpireTask(remote, db).Execute(context.Background()))

	assert.Empty(t, listAll(t, db), "rows are deleted even when remote cleanup fails")
	assert.Equal(t, []string{"second"}, remote.removed)
	assert.Len(t, remote.messages, 2)

	// The failed removal is not attempted again.
	require.NoError(t, newExpireTask(remote, db).Execute(context.Background()))
	assert.Equal(t, []string{"remove:first", "remove:second"}, remote.callsWithPrefix("remove:"))
}

func TestExpireListings_StoreFailure(t *testing.T) {
	remote := newFakeRemote(testNow)

	err := newExpireTask(remote, failingStore{}).Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrStoreUnavailable)
	assert.Empty(t, remote.calls)
}
