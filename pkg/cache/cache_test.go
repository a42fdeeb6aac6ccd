package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"apart-tracker/pkg/clock"
	"apart-tracker/pkg/db/memstore"
	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps the in-memory store and counts deletes.
type countingStore struct {
	*memstore.Store
	deletes int32
}

func (s *countingStore) Delete(ctx context.Context, collection, id string) error {
	atomic.AddInt32(&s.deletes, 1)
	return s.Store.Delete(ctx, collection, id)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	return false, errStoreDown
}
func (brokenStore) Upsert(ctx context.Context, collection, id string, doc any) error {
	return errStoreDown
}
func (brokenStore) Delete(ctx context.Context, collection, id string) error { return errStoreDown }
func (brokenStore) FindByField(ctx context.Context, collection, field string, value, out any) error {
	return errStoreDown
}

var now = time.Date(2025, 10, 15, 12, 0, 0, 0, clock.KST)

func seed(t *testing.T, store *countingStore, id string, crawledAt time.Time) {
	t.Helper()
	entry := domain.CacheEntry{Key: id, Payload: `{"count":7}`, CrawledAt: crawledAt}
	require.NoError(t, store.Store.Upsert(context.Background(), DefaultCollection, id, entry))
}

type payload struct {
	Count int `json:"count"`
}

func TestGet_TTLBoundary(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memstore.New()}
	c := New(store, Config{Namespace: NamespaceNewTransactions, Clock: clock.Fixed(now)}, logger.Discard())

	seed(t, store, "new-transactions:stale", now.Add(-DefaultTTL-time.Second))
	seed(t, store, "new-transactions:fresh", now.Add(-DefaultTTL+time.Second))

	var p payload
	assert.False(t, c.Get(ctx, "stale", &p))
	assert.False(t, c.Get(ctx, "stale", &p), "expired entry must stay a miss")
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.deletes), "expired entry is deleted exactly once")

	require.True(t, c.Get(ctx, "fresh", &p))
	assert.Equal(t, 7, p.Count)
}

func TestGet_ExactExpiryIsMiss(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	c := New(store, Config{Clock: clock.Fixed(now)}, logger.Discard())
	seed(t, store, "k", now.Add(-DefaultTTL))

	var p payload
	assert.False(t, c.Get(context.Background(), "k", &p))
}

func TestPut_UpsertsWithCrawledAtNow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := New(store, Config{Namespace: NamespaceApartDetail, Clock: clock.Fixed(now)}, logger.Discard())

	c.Put(ctx, "q", payload{Count: 1})
	c.Put(ctx, "q", payload{Count: 2})

	var entry domain.CacheEntry
	found, err := store.Get(ctx, DefaultCollection, "apart-detail:q", &entry)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"count":2}`, entry.Payload)
	assert.True(t, entry.CrawledAt.Equal(now))
	assert.Equal(t, 1, store.Len())
}

func TestNamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	detail := New(store, Config{Namespace: NamespaceApartDetail, Clock: clock.Fixed(now)}, logger.Discard())
	fresh := New(store, Config{Namespace: NamespaceNewTransactions, Clock: clock.Fixed(now)}, logger.Discard())

	detail.Put(ctx, "area=11680", payload{Count: 1})

	var p payload
	assert.False(t, fresh.Get(ctx, "area=11680", &p))
	assert.True(t, detail.Get(ctx, "area=11680", &p))
}

func TestGetOrPopulate(t *testing.T) {
	ctx := context.Background()
	c := New(memstore.New(), Config{Clock: clock.Fixed(now)}, logger.Discard())

	calls := 0
	populate := func(context.Context) (payload, error) {
		calls++
		return payload{Count: calls}, nil
	}

	v, hit, err := GetOrPopulate(ctx, c, "k", populate)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, v.Count)

	v, hit, err = GetOrPopulate(ctx, c, "k", populate)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, v.Count)
	assert.Equal(t, 1, calls)
}

func TestGetOrPopulate_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := New(store, Config{Clock: clock.Fixed(now)}, logger.Discard())

	boom := errors.New("crawl failed")
	_, _, err := GetOrPopulate(ctx, c, "k", func(context.Context) (payload, error) {
		return payload{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())
}

func TestStoreFailuresDegradeToMiss(t *testing.T) {
	ctx := context.Background()
	c := New(brokenStore{}, Config{Clock: clock.Fixed(now)}, logger.Discard())

	v, hit, err := GetOrPopulate(ctx, c, "k", func(context.Context) (payload, error) {
		return payload{Count: 3}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, v.Count)
}
