package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"lendo/internal/application/models"
	"lendo/pkg/platform/sentinel"
)

var storeOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "lendo_record_store_op_duration_ms",
	Help:    "Latency of record store operations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
}, []string{"op"})

const (
	recordKeyPrefix = "app:record:"
	pendingIndexKey = "app:pending"
)

// RedisStore is the production RecordStore. Redis key expiry is the
// authoritative retention mechanism: a record whose TTL has elapsed is gone
// whether or not a cleanup sweep ever ran.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore constructs a Redis-backed record store.
func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func recordKey(kind models.Kind, id string) string {
	return recordKeyPrefix + string(kind) + ":" + sanitizeKeySegment(id)
}

// Store persists the record under its kind-namespaced key with a TTL derived
// from its expiry. Application records are additionally added to the pending
// index. The two writes are sequential, not atomic; the index is advisory.
func (s *RedisStore) Store(ctx context.Context, record *models.Record) error {
	defer observe("store", time.Now())

	ttl := record.TTL(time.Now())
	if ttl <= 0 {
		return fmt.Errorf("record %s: %w", record.ID, sentinel.ErrExpired)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := s.client.Set(ctx, recordKey(record.Kind, record.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store record: %w: %w", sentinel.ErrUnavailable, err)
	}

	if record.Kind == models.KindApplication {
		if err := s.client.SAdd(ctx, pendingIndexKey, record.ID).Err(); err != nil {
			// The record is stored; a missing index entry only degrades the
			// dashboard listing. Cleanup and direct reads are unaffected.
			s.logger.ErrorContext(ctx, "pending index add failed",
				"record_id", record.ID,
				"error", err,
			)
		}
	}

	return nil
}

// Get fetches a record. Absence (including store-native expiry) is reported
// as sentinel.ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string, kind models.Kind) (*models.Record, error) {
	defer observe("get", time.Now())

	payload, err := s.client.Get(ctx, recordKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w: %w", sentinel.ErrUnavailable, err)
	}

	var record models.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return &record, nil
}

// UpdateStatus loads the record, applies the transition, and rewrites the
// full record with its remaining lifetime: the original expiry is preserved
// regardless of status changes. Leaving pending removes the id from the
// pending index.
func (s *RedisStore) UpdateStatus(ctx context.Context, id string, next models.Status) (*models.Record, error) {
	defer observe("update_status", time.Now())

	record, err := s.Get(ctx, id, models.KindApplication)
	if err != nil {
		return nil, err
	}

	if !next.Valid() {
		return nil, fmt.Errorf("status %q: %w", next, sentinel.ErrInvalidState)
	}
	if !record.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("transition %s -> %s: %w", record.Status, next, sentinel.ErrInvalidState)
	}

	record.Status = next

	remaining := record.TTL(time.Now())
	if remaining <= 0 {
		// Expired between read and write; the store's own expiry wins.
		return nil, sentinel.ErrNotFound
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey(models.KindApplication, id), payload, remaining).Err(); err != nil {
		return nil, fmt.Errorf("rewrite record: %w: %w", sentinel.ErrUnavailable, err)
	}

	if next != models.StatusPending {
		if err := s.client.SRem(ctx, pendingIndexKey, id).Err(); err != nil {
			s.logger.ErrorContext(ctx, "pending index remove failed",
				"record_id", id,
				"error", err,
			)
		}
	}

	return record, nil
}

// ListPending returns the ids in the pending index. Advisory only: entries
// can lag behind record state.
func (s *RedisStore) ListPending(ctx context.Context) ([]string, error) {
	defer observe("list_pending", time.Now())

	ids, err := s.client.SMembers(ctx, pendingIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending: %w: %w", sentinel.ErrUnavailable, err)
	}
	return ids, nil
}

// CleanupExpired sweeps the pending index, deleting records whose expiry has
// passed and dropping dangling index entries whose record Redis already
// expired. Failures are logged per id and the sweep continues.
func (s *RedisStore) CleanupExpired(ctx context.Context) (int, error) {
	defer observe("cleanup", time.Now())

	ids, err := s.client.SMembers(ctx, pendingIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cleanup: list pending: %w: %w", sentinel.ErrUnavailable, err)
	}

	removed := 0
	now := time.Now()
	for _, id := range ids {
		key := recordKey(models.KindApplication, id)

		payload, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Redis expired the record ahead of the sweep; drop the index entry.
			if err := s.client.SRem(ctx, pendingIndexKey, id).Err(); err != nil {
				s.logger.ErrorContext(ctx, "cleanup: dangling index remove failed", "record_id", id, "error", err)
			} else {
				removed++
			}
			continue
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "cleanup: read failed", "record_id", id, "error", err)
			continue
		}

		var record models.Record
		if err := json.Unmarshal(payload, &record); err != nil {
			s.logger.ErrorContext(ctx, "cleanup: corrupt record", "record_id", id, "error", err)
			continue
		}
		if !record.Expired(now) {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.ErrorContext(ctx, "cleanup: delete failed", "record_id", id, "error", err)
			continue
		}
		if err := s.client.SRem(ctx, pendingIndexKey, id).Err(); err != nil {
			s.logger.ErrorContext(ctx, "cleanup: index remove failed", "record_id", id, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

func observe(op string, start time.Time) {
	storeOpDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
