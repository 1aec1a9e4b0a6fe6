package settlement

import (
	"context"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockKey = "stockmarket:settlement:lock"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock keeps two settlement runs from overlapping across processes. A nil
// client makes it a no-op, for single-process deployments without Redis.
type Lock struct {
	RDB *redis.Client
	Key string
	TTL time.Duration
}

// Acquire takes the lock or fails with ErrSettlementRunning. The returned
// release only deletes the key while this holder still owns it.
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	if l == nil || l.RDB == nil {
		return func() {}, nil
	}
	key := l.Key
	if key == "" {
		key = defaultLockKey
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	token := uuid.NewString()
	ok, err := l.RDB.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSettlementRunning
	}
	return func() {
		_ = releaseScript.Run(context.Background(), l.RDB, []string{key}, token).Err()
	}, nil
}
