package patients

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sequenceKeyTTL = 48 * time.Hour

// RedisSequence counts registrations per day with INCR.
type RedisSequence struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSequence(client redis.Cmdable) *RedisSequence {
	if client == nil {
		panic("patients: redis client required")
	}
	return &RedisSequence{client: client, prefix: "patients:seq:"}
}

func (s *RedisSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	key := s.prefix + day.Format("20060102")
	value, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("patients: redis incr: %w", err)
	}
	if value == 1 {
		if err := s.client.Expire(ctx, key, sequenceKeyTTL).Err(); err != nil {
			return 0, fmt.Errorf("patients: redis expire: %w", err)
		}
	}
	return value, nil
}

// MemorySequence is an in-process counter for the memory store mode.
type MemorySequence struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{counts: make(map[string]int64)}
}

func (s *MemorySequence) Next(ctx context.Context, day time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := day.Format("20060102")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}
