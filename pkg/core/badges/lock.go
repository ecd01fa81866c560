package badges

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type lockKey struct{}

// BadgeLock serializes every operation that assigns or renumbers badges.
//
// The lock is reentrant per context: Acquire returns a derived context that marks
// the lock as held, and nested Acquire calls made with that context do not block.
// Construct one per process and share it; never copy it.
type BadgeLock struct {
	sem     chan struct{}
	timeout time.Duration
	logger  *zap.Logger
}

// NewBadgeLock creates a lock. A zero timeout waits until the context is done.
func NewBadgeLock(timeout time.Duration, logger *zap.Logger) *BadgeLock {
	return &BadgeLock{
		sem:     make(chan struct{}, 1),
		timeout: timeout,
		logger:  logger,
	}
}

// ReleaseFunc gives the lock back. Calling it more than once is harmless.
type ReleaseFunc func()

// Acquire blocks until the lock is held or the wait is abandoned
func (l *BadgeLock) Acquire(ctx context.Context) (context.Context, ReleaseFunc, error) {
	if held, _ := ctx.Value(lockKey{}).(*BadgeLock); held == l {
		return ctx, func() {}, nil
	}

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	select {
	case l.sem <- struct{}{}:
	case <-waitCtx.Done():
		// The caller's own deadline or cancellation wins over the lock timeout
		if err := ctx.Err(); err != nil {
			return ctx, nil, err
		}
		return ctx, nil, ErrLockTimeout
	}

	var once sync.Once
	release := func() {
		once.Do(l.release)
	}
	return context.WithValue(ctx, lockKey{}, l), release, nil
}

// Held reports whether ctx was derived from a successful Acquire on this lock
func (l *BadgeLock) Held(ctx context.Context) bool {
	held, _ := ctx.Value(lockKey{}).(*BadgeLock)
	return held == l
}

func (l *BadgeLock) release() {
	select {
	case <-l.sem:
	default:
		l.logger.Error("Badge lock released while not held")
	}
}
