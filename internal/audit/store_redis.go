package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const auditKeyPrefix = "app:audit:"

// RedisStore keeps audit entries as individually TTL'd keys. Retrieval is a
// SCAN over the prefix followed by an in-memory sort, which is fine at this
// trail's volume and deliberately not built to scale further.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(entry Entry) string {
	return fmt.Sprintf("%s%d:%s", auditKeyPrefix, entry.Timestamp.UnixNano(), entry.ID)
}

func (s *RedisStore) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(entry), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, resourceID string) ([]Entry, error) {
	var entries []Entry

	iter := s.client.Scan(ctx, 0, auditKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between scan and read.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read audit entry: %w", err)
		}

		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			continue
		}
		if resourceID == "" || entry.ResourceID == resourceID {
			entries = append(entries, entry)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}
