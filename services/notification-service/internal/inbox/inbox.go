package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an event id is remembered. Kafka redelivery after
// a rebalance happens within minutes, so a day is generous.
const DefaultTTL = 24 * time.Hour

type redisKV interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Inbox records processed event ids in Redis so redelivered events are skipped.
type Inbox struct {
	rdb    redisKV
	prefix string
	ttl    time.Duration
}

func New(rdb redisKV, prefix string, ttl time.Duration) *Inbox {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Inbox{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Record claims eventID. It returns false when the event was already claimed.
func (i *Inbox) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	if eventID == "" {
		return false, errors.New("inbox: empty event id")
	}
	return i.rdb.SetNX(ctx, i.prefix+eventID, eventType, i.ttl).Result()
}

// Forget releases a claim so the event can be retried.
func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	return i.rdb.Del(ctx, i.prefix+eventID).Err()
}
