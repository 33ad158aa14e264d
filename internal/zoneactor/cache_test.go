package zoneactor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterdns/zoned/internal/eventbus"
	"github.com/clusterdns/zoned/internal/replication"
	"github.com/clusterdns/zoned/internal/zonestore"
)

// fakeReplicator lets tests force quorum success or failure without a
// real network.
type fakeReplicator struct {
	quorumFails bool
	acked       []string
	rollbacks   []string
}

func (f *fakeReplicator) Broadcast(ctx context.Context, action, domain string, zone *zonestore.Zone) error {
	if f.quorumFails {
		return &replication.QuorumError{Required: 2, Acked: f.acked}
	}
	return nil
}

func (f *fakeReplicator) Rollback(ctx context.Context, abortedAction, domain string, previous *zonestore.Zone, acked []string) {
	f.rollbacks = append(f.rollbacks, abortedAction)
}

func (f *fakeReplicator) RemoteFetch(ctx context.Context, domain string) (zonestore.Zone, error) {
	return zonestore.Zone{}, zonestore.ErrNotFound
}

func rawStr(t *testing.T, s string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}

func aZone(t *testing.T, name string, version int, ip string) zonestore.Zone {
	return zonestore.Zone{
		Name:    name,
		Version: version,
		Records: []zonestore.RecordSpec{
			{Type: rawStr(t, "A"), Data: rawStr(t, ip)},
		},
	}
}

func newTestCache(t *testing.T, repl Replicator) (*Cache, *zonestore.Store) {
	t.Helper()
	store, err := zonestore.NewStore(t.TempDir(), logrus.StandardLogger())
	require.NoError(t, err)
	return New(store, repl, eventbus.New(4), logrus.StandardLogger()), store
}

func TestCache_CreateFetchUpdate(t *testing.T) {
	ctx := context.Background()
	repl := &fakeReplicator{}
	cache, _ := newTestCache(t, repl)

	require.NoError(t, cache.Create(ctx, "a.test", aZone(t, "a.test", 1, "1.1.1.1")))

	z, err := cache.Fetch(ctx, "a.test")
	require.NoError(t, err)
	assert.Equal(t, 1, z.Version)

	require.NoError(t, cache.Update(ctx, "a.test", aZone(t, "a.test", 0, "2.2.2.2"), 1))

	z, err = cache.Fetch(ctx, "a.test")
	require.NoError(t, err)
	assert.Equal(t, 2, z.Version)

	err = cache.Update(ctx, "a.test", aZone(t, "a.test", 0, "3.3.3.3"), 1)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "version mismatch", conflict.Reason)
}

func TestCache_CreateDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t, &fakeReplicator{})

	require.NoError(t, cache.Create(ctx, "dup.test", aZone(t, "dup.test", 1, "1.1.1.1")))
	err := cache.Create(ctx, "dup.test", aZone(t, "dup.test", 1, "9.9.9.9"))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCache_CreateRollsBackOnQuorumFailure(t *testing.T) {
	ctx := context.Background()
	repl := &fakeReplicator{quorumFails: true}
	cache, store := newTestCache(t, repl)

	err := cache.Create(ctx, "r.test", aZone(t, "r.test", 1, "1.1.1.1"))
	var qerr *replication.QuorumError
	require.ErrorAs(t, err, &qerr)

	assert.False(t, store.Exists("r.test"))
	_, err = cache.FetchLocal(ctx, "r.test")
	assert.ErrorIs(t, err, zonestore.ErrNotFound)
	assert.Contains(t, repl.rollbacks, "create")
}

func TestCache_UpdateRollsBackOnQuorumFailure(t *testing.T) {
	ctx := context.Background()
	repl := &fakeReplicator{}
	cache, _ := newTestCache(t, repl)

	require.NoError(t, cache.Create(ctx, "u.test", aZone(t, "u.test", 1, "1.1.1.1")))

	repl.quorumFails = true
	err := cache.Update(ctx, "u.test", aZone(t, "u.test", 0, "9.9.9.9"), 1)
	require.Error(t, err)

	z, err := cache.FetchLocal(ctx, "u.test")
	require.NoError(t, err)
	assert.Equal(t, 1, z.Version)
}

func TestCache_DeleteRollsBackOnQuorumFailure(t *testing.T) {
	ctx := context.Background()
	repl := &fakeReplicator{}
	cache, store := newTestCache(t, repl)

	require.NoError(t, cache.Create(ctx, "d.test", aZone(t, "d.test", 1, "1.1.1.1")))

	repl.quorumFails = true
	err := cache.Delete(ctx, "d.test")
	require.Error(t, err)

	assert.True(t, store.Exists("d.test"))
	z, err := cache.FetchLocal(ctx, "d.test")
	require.NoError(t, err)
	assert.Equal(t, 1, z.Version)
}

func TestCache_ApplyChange(t *testing.T) {
	ctx := context.Background()
	cache, store := newTestCache(t, &fakeReplicator{})

	zone := aZone(t, "peer.test", 1, "1.1.1.1")
	require.NoError(t, cache.ApplyChange(ctx, "create", "peer.test", &zone))
	assert.True(t, store.Exists("peer.test"))

	require.NoError(t, cache.ApplyChange(ctx, "delete", "peer.test", nil))
	assert.False(t, store.Exists("peer.test"))
}
