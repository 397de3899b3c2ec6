package redis

import (
	"context"

	"github.com/pathlight/mentormatch/internal/db"
)

// RPush appends a value to a list and returns the new length. RPUSH of a
// single element is atomic on the server, so concurrent appends never
// interleave into a corrupted record.
func (s *Store) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	cmd := s.b().Rpush().Key(key).Element(string(value)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpRPush, Err: err}
	}
	return n, nil
}

// LRange returns list elements in insertion order.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	rows, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = []byte(r)
	}
	return out, nil
}

// LLen returns the list length. A missing key reads as an empty list.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Llen().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}
