//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cobal/internal/delivery"
	"cobal/internal/delivery/store/cache"
	deliverymemory "cobal/internal/delivery/store/memory"
	id "cobal/pkg/domain"
	"cobal/pkg/testutil/containers"
)

func TestCachedStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	newStore := func(t *testing.T) (*deliverymemory.InMemoryStore, *cache.CachedStore) {
		require.NoError(t, rc.FlushAll(ctx))
		inner := deliverymemory.New(nil)
		return inner, cache.New(inner, rc.Client, time.Minute)
	}

	record := func(rcptID id.RecipientID, at time.Time, items delivery.Quantities) delivery.Record {
		return delivery.Record{ID: id.NewDeliveryID(), RecipientID: rcptID, Timestamp: at, Items: items}
	}

	t.Run("caches the never-delivered answer", func(t *testing.T) {
		inner, cached := newStore(t)
		rcptID := id.NewRecipientID()

		_, ok, err := cached.LastDeliveryOf(ctx, rcptID, "toalha")
		require.NoError(t, err)
		require.False(t, ok)

		// Write behind the cache's back; the stale "none" answer must be
		// served until the entry expires or an insert refreshes it.
		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, inner.Insert(ctx, record(rcptID, at, delivery.Quantities{"toalha": 1}), nil))

		_, ok, err = cached.LastDeliveryOf(ctx, rcptID, "toalha")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("insert refreshes cached entries", func(t *testing.T) {
		_, cached := newStore(t)
		rcptID := id.NewRecipientID()

		// Prime the "none" entry.
		_, ok, err := cached.LastDeliveryOf(ctx, rcptID, "toalha")
		require.NoError(t, err)
		require.False(t, ok)

		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, cached.Insert(ctx, record(rcptID, at, delivery.Quantities{"toalha": 1}), nil))

		last, ok, err := cached.LastDeliveryOf(ctx, rcptID, "toalha")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, last.Equal(at))
	})

	t.Run("miss falls through and populates", func(t *testing.T) {
		inner, cached := newStore(t)
		rcptID := id.NewRecipientID()
		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, inner.Insert(ctx, record(rcptID, at, delivery.Quantities{"toalha": 1}), nil))

		last, ok, err := cached.LastDeliveryOf(ctx, rcptID, "toalha")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, last.Equal(at))

		// The second read is served from Redis with the same answer.
		last, ok, err = cached.LastDeliveryOf(ctx, rcptID, "toalha")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, last.Equal(at))
	})
}
