package throttle

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

// ValkeyThrottle keeps failure counters in Valkey so every instance sees the same window.
type ValkeyThrottle struct {
	client valkey.Client
	prefix string
	cfg    auth.ThrottleConfig
}

// NewValkeyThrottle constructs a throttle backed by Valkey.
func NewValkeyThrottle(client valkey.Client, prefix string, cfg auth.ThrottleConfig) *ValkeyThrottle {
	if prefix == "" {
		prefix = "malina-auth:login"
	}
	return &ValkeyThrottle{client: client, prefix: prefix, cfg: cfg}
}

// Check implements auth.LoginThrottle.
func (t *ValkeyThrottle) Check(ctx context.Context, key string) (time.Duration, error) {
	failures, err := t.client.Do(ctx, t.client.B().Get().Key(t.key(key)).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	if failures < int64(t.cfg.MaxFailures) {
		return 0, nil
	}
	ttl, err := t.client.Do(ctx, t.client.B().Pttl().Key(t.key(key)).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		// The counter exists without an expiry; keep blocking for a full window.
		return t.cfg.Window, nil
	}
	return time.Duration(ttl) * time.Millisecond, nil
}

// RecordFailure implements auth.LoginThrottle.
func (t *ValkeyThrottle) RecordFailure(ctx context.Context, key string) error {
	count, err := t.client.Do(ctx, t.client.B().Incr().Key(t.key(key)).Build()).AsInt64()
	if err != nil {
		return err
	}
	if count == 1 {
		return t.client.Do(ctx, t.client.B().Pexpire().Key(t.key(key)).Milliseconds(t.cfg.Window.Milliseconds()).Build()).Error()
	}
	return nil
}

// Reset implements auth.LoginThrottle.
func (t *ValkeyThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Do(ctx, t.client.B().Del().Key(t.key(key)).Build()).Error()
}

func (t *ValkeyThrottle) key(login string) string {
	return t.prefix + ":" + login
}

var _ auth.LoginThrottle = (*ValkeyThrottle)(nil)
