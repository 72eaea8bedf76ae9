package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Kayler1303/ACS-sub001/internal/shared/telemetry"
)

// RedisLocker implements Locker with SET NX and a holder token so a
// release can never drop a lock some other process re-acquired after
// the TTL expired.
type RedisLocker struct {
	client *redis.Client
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(addr, password string, db int) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisLocker{client: client}, nil
}

// Acquire takes the lock for at most ttl. ok=false means another holder
// has it.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			telemetry.Warn("lock.release_failed", map[string]any{"key": key, "error": err.Error()})
		}
	}
	return release, true, nil
}

var _ Locker = (*RedisLocker)(nil)
