package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/malina-auth/internal/domain/auth"
	"github.com/yanqian/malina-auth/pkg/util"
)

type window struct {
	failures  int
	expiresAt time.Time
}

// MemoryThrottle counts failed logins per key in fixed windows held in process memory.
type MemoryThrottle struct {
	mu      sync.Mutex
	cfg     auth.ThrottleConfig
	now     util.Clock
	windows map[string]window
}

// NewMemoryThrottle constructs a throttle for a single process. A nil clock means util.NowUTC.
func NewMemoryThrottle(cfg auth.ThrottleConfig, clock util.Clock) *MemoryThrottle {
	return &MemoryThrottle{cfg: cfg, now: clock.OrDefault(), windows: make(map[string]window)}
}

// Check implements auth.LoginThrottle.
func (t *MemoryThrottle) Check(_ context.Context, key string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.current(key)
	if !ok || w.failures < t.cfg.MaxFailures {
		return 0, nil
	}
	return w.expiresAt.Sub(t.now()), nil
}

// RecordFailure implements auth.LoginThrottle.
func (t *MemoryThrottle) RecordFailure(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.current(key)
	if !ok {
		w = window{expiresAt: t.now().Add(t.cfg.Window)}
	}
	w.failures++
	t.windows[key] = w
	return nil
}

// Reset implements auth.LoginThrottle.
func (t *MemoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, key)
	return nil
}

func (t *MemoryThrottle) current(key string) (window, bool) {
	w, ok := t.windows[key]
	if !ok {
		return window{}, false
	}
	if !t.now().Before(w.expiresAt) {
		delete(t.windows, key)
		return window{}, false
	}
	return w, true
}

var _ auth.LoginThrottle = (*MemoryThrottle)(nil)
