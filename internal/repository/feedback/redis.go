package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pathlight/mentormatch/internal/domain"
)

// listStore is the consumer interface for the Redis-backed log (ISP).
type listStore interface {
	RPush(ctx context.Context, key string, value []byte) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// RedisLog is an append-only feedback log backed by a Redis list. RPUSH of
// one serialized record is atomic on the server, which gives the crash-safe
// append the contract requires.
type RedisLog struct {
	store listStore
	key   string
}

// NewRedisLog creates a Redis-backed feedback log.
func NewRedisLog(s listStore, keyPrefix string) *RedisLog {
	return &RedisLog{store: s, key: keyPrefix + "feedback:log"}
}

// Append adds a record and returns the new total count.
func (l *RedisLog) Append(ctx context.Context, rec domain.FeedbackRecord) (int, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal feedback record: %w", err)
	}

	n, err := l.store.RPush(ctx, l.key, data)
	if err != nil {
		return 0, fmt.Errorf("%w: rpush feedback: %w", domain.ErrStorageFailure, err)
	}
	return int(n), nil
}

// LoadAll returns every record in insertion order.
func (l *RedisLog) LoadAll(ctx context.Context) ([]domain.FeedbackRecord, error) {
	rows, err := l.store.LRange(ctx, l.key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: lrange feedback: %w", domain.ErrStorageFailure, err)
	}

	records := make([]domain.FeedbackRecord, 0, len(rows))
	for i, row := range rows {
		var rec domain.FeedbackRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, fmt.Errorf("corrupt feedback record at position %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count returns the number of stored records.
func (l *RedisLog) Count(ctx context.Context) (int, error) {
	n, err := l.store.LLen(ctx, l.key)
	if err != nil {
		return 0, fmt.Errorf("%w: llen feedback: %w", domain.ErrStorageFailure, err)
	}
	return int(n), nil
}
