// Package lockout counts verification attempts per user in Redis and locks
// the user out once a threshold is reached within a window.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
	DefaultKeyPrefix = "vault:lockout:"
)

var ErrUnavailable = errors.New("lockout store unavailable")

// Limiter is a fixed-window attempt counter. Every attempt is counted before
// the credential is checked, so concurrent guesses cannot all pass under the
// threshold. The window starts at the first attempt and a success clears it.
type Limiter struct {
	Redis     *redis.Client
	Threshold int
	Window    time.Duration
	KeyPrefix string
}

// New returns a Limiter with defaults for any zero setting.
func New(rdb *redis.Client, threshold int, window time.Duration) *Limiter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{Redis: rdb, Threshold: threshold, Window: window, KeyPrefix: DefaultKeyPrefix}
}

func (l *Limiter) key(userID string) string {
	return l.KeyPrefix + userID
}

// beginScript increments and arms the window expiry in one step.
var beginScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// refundScript never recreates an expired counter.
var refundScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('DECR', KEYS[1])
end
return 0
`)

// Begin counts an attempt and returns how many more the window allows after
// it. A negative result means this attempt is over the threshold.
func (l *Limiter) Begin(ctx context.Context, userID string) (int, error) {
	n, err := beginScript.Run(ctx, l.Redis, []string{l.key(userID)}, l.Window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l.Threshold - int(n), nil
}

// Refund uncounts an attempt that was never judged.
func (l *Limiter) Refund(ctx context.Context, userID string) error {
	if err := refundScript.Run(ctx, l.Redis, []string{l.key(userID)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Limiter) Reset(ctx context.Context, userID string) error {
	if err := l.Redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (l *Limiter) Ping(ctx context.Context) error {
	if err := l.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
