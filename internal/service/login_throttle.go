package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed login attempts per identifier and source
// address in Redis and blocks further attempts past the limit for the
// duration of the window. Counters reset on successful login.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	enabled     bool
}

// NewLoginThrottle constructs a throttle. A nil client or disabled flag
// yields a throttle that allows everything.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration, enabled bool) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, maxAttempts: maxAttempts, window: window, enabled: enabled}
}

func (t *LoginThrottle) active() bool {
	return t != nil && t.enabled && t.client != nil
}

func (t *LoginThrottle) key(identifier, ip string) string {
	return fmt.Sprintf("login:fail:%s:%s", strings.ToLower(identifier), ip)
}

// Allow reports whether another attempt is permitted.
func (t *LoginThrottle) Allow(ctx context.Context, identifier, ip string) (bool, error) {
	if !t.active() {
		return true, nil
	}
	count, err := t.client.Get(ctx, t.key(identifier, ip)).Int()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return true, err
	}
	return count < t.maxAttempts, nil
}

// RecordFailure increments the failure counter, starting the window on
// the first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifier, ip string) error {
	if !t.active() {
		return nil
	}
	key := t.key(identifier, ip)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identifier, ip string) error {
	if !t.active() {
		return nil
	}
	return t.client.Del(ctx, t.key(identifier, ip)).Err()
}
