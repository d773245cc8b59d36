// Package cache decorates a delivery store with a Redis read-through cache
// for history lookups. LastDeliveryOf is the hottest query in the system
// (every windowed item in every evaluation hits it), while the underlying
// history changes only when a delivery is inserted.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cobal/internal/delivery"
	"cobal/internal/delivery/metrics"
	id "cobal/pkg/domain"
)

const (
	historyKeyPrefix = "history:"
	// noneMarker caches the "never delivered" answer so cold recipients
	// don't fall through on every evaluation.
	noneMarker = "none"
)

type CachedStore struct {
	inner   delivery.Store
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

type Option func(*CachedStore)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CachedStore) { s.metrics = m }
}

// New wraps a delivery store with a Redis history cache.
func New(inner delivery.Store, client *redis.Client, ttl time.Duration, opts ...Option) *CachedStore {
	s := &CachedStore{inner: inner, client: client, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func historyKey(recipientID id.RecipientID, itemID string) string {
	return historyKeyPrefix + recipientID.String() + ":" + itemID
}

func (s *CachedStore) LastDeliveryOf(ctx context.Context, recipientID id.RecipientID, itemID string) (time.Time, bool, error) {
	key := historyKey(recipientID, itemID)

	cached, err := s.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		s.hit()
		if cached == noneMarker {
			return time.Time{}, false, nil
		}
		if last, parseErr := time.Parse(time.RFC3339Nano, cached); parseErr == nil {
			return last, true, nil
		}
		// Unparseable entry: fall through to storage and rewrite it.
	case !errors.Is(err, redis.Nil):
		// Cache unavailability must not break evaluations; serve from
		// storage.
		return s.inner.LastDeliveryOf(ctx, recipientID, itemID)
	}

	s.miss()
	last, ok, err := s.inner.LastDeliveryOf(ctx, recipientID, itemID)
	if err != nil {
		return time.Time{}, false, err
	}

	value := noneMarker
	if ok {
		value = last.Format(time.RFC3339Nano)
	}
	_ = s.client.Set(ctx, key, value, s.ttl).Err()

	return last, ok, nil
}

// Insert delegates to storage and refreshes the cache entries for the
// inserted items, so the next evaluation sees the new history immediately.
func (s *CachedStore) Insert(ctx context.Context, record delivery.Record, windows map[string]int) error {
	if err := s.inner.Insert(ctx, record, windows); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for itemID := range record.Items {
		pipe.Set(ctx, historyKey(record.RecipientID, itemID), record.Timestamp.Format(time.RFC3339Nano), s.ttl)
	}
	// Cache refresh failure is tolerable: entries expire and the next miss
	// repopulates from storage.
	_, _ = pipe.Exec(ctx)
	return nil
}

func (s *CachedStore) ListByRecipient(ctx context.Context, recipientID id.RecipientID) ([]delivery.Record, error) {
	return s.inner.ListByRecipient(ctx, recipientID)
}

func (s *CachedStore) Search(ctx context.Context, filter delivery.SearchFilter) ([]delivery.RecordWithRecipient, error) {
	return s.inner.Search(ctx, filter)
}

func (s *CachedStore) hit() {
	if s.metrics != nil {
		s.metrics.HistoryCacheHits.Inc()
	}
}

func (s *CachedStore) miss() {
	if s.metrics != nil {
		s.metrics.HistoryCacheMisses.Inc()
	}
}
