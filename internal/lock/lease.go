package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// leaseBackend stores a lease key owned by a token.
type leaseBackend interface {
	acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// extend resets the TTL only while key still holds token.
	extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// release deletes key only while it still holds token.
	release(ctx context.Context, key, token string) error
}

// Lease is a TTL lease renewed every ttl/3 while held. A renewal that finds
// the key owned by someone else, or no successful renewal within one TTL,
// counts as losing the lease.
type Lease struct {
	backend leaseBackend
	key     string
	ttl     time.Duration
	token   string
	logger  *zap.Logger

	mu        sync.Mutex
	held      bool
	renewedAt time.Time
	stop      chan struct{}
	done      chan struct{}
}

func newLease(backend leaseBackend, key string, ttl time.Duration, logger *zap.Logger) *Lease {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lease{
		backend: backend,
		key:     key,
		ttl:     ttl,
		token:   uuid.New().String(),
		logger:  logger,
	}
}

// Owner returns the token identifying this holder.
func (l *Lease) Owner() string {
	return l.token
}

func (l *Lease) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.backend.acquire(ctx, l.key, l.token, l.ttl)
	if err != nil || !ok {
		return false, err
	}

	l.mu.Lock()
	l.held = true
	l.renewedAt = time.Now()
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	l.mu.Unlock()

	go l.renew(stop, done)
	return true, nil
}

func (l *Lease) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && time.Since(l.renewedAt) < l.ttl
}

func (l *Lease) Unlock(ctx context.Context) error {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.held = false
	l.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return l.backend.release(ctx, l.key, l.token)
}

func (l *Lease) renew(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		ok, err := l.backend.extend(ctx, l.key, l.token, l.ttl)
		cancel()

		switch {
		case err != nil:
			// Still ours until the TTL runs out; Held reports the expiry.
			l.logger.Warn("lease renewal failed", zap.String("key", l.key), zap.Error(err))
		case !ok:
			l.logger.Warn("lease lost", zap.String("key", l.key))
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
			return
		default:
			l.mu.Lock()
			l.renewedAt = time.Now()
			l.mu.Unlock()
		}
	}
}
