// Package timeout guards a stream against a vendor that stops sending frames
// without closing the connection.
package timeout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"go.uber.org/zap"
)

// ErrStreamIdle is the cause reported when the idle window elapses
var ErrStreamIdle = errors.New("stream idle timeout")

// IdleTimer cancels its context when Reset is not called within the idle
// window. One IdleTimer belongs to one stream.
type IdleTimer struct {
	ctx     context.Context
	cancel  context.CancelFunc
	perIdle time.Duration
	timer   *time.Timer

	mu            sync.Mutex
	fired         bool
	stopped       bool
	idleStartTime time.Time
	resetCount    int64
}

// NewIdleTimer derives a context from parentCtx that is cancelled after
// perIdle without a Reset. The caller must call Stop (or the returned cancel)
// once the stream ends.
func NewIdleTimer(parentCtx context.Context, perIdle time.Duration) (context.Context, context.CancelFunc, *IdleTimer) {
	ctx, cancel := context.WithCancel(parentCtx)

	it := &IdleTimer{
		ctx:           ctx,
		cancel:        cancel,
		perIdle:       perIdle,
		idleStartTime: time.Now(),
	}
	it.timer = time.NewTimer(perIdle)
	go it.watch()

	logger.Debug("IdleTimer created",
		zap.Duration("perIdle", perIdle))

	return ctx, cancel, it
}

// watch monitors the timer and the context
func (it *IdleTimer) watch() {
	for {
		select {
		case <-it.ctx.Done():
			it.mu.Lock()
			it.timer.Stop()
			it.mu.Unlock()
			return

		case <-it.timer.C:
			if it.handleTimeout() {
				return
			}
		}
	}
}

// handleTimeout cancels the stream unless a Reset raced the expiry. It
// reports whether the watcher should exit.
func (it *IdleTimer) handleTimeout() bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.stopped {
		return true
	}

	idle := time.Since(it.idleStartTime)
	if idle < it.perIdle {
		// Reset happened after the timer fired; wait out the new window.
		it.timer.Reset(it.perIdle - idle)
		return false
	}

	it.fired = true
	logger.Warn("IdleTimer: timeout triggered",
		zap.Duration("perIdle", it.perIdle),
		zap.Duration("actualIdleDuration", idle),
		zap.Int64("resetCount", it.resetCount))

	it.cancel()
	return true
}

// Reset restarts the idle window; call it for every frame received
func (it *IdleTimer) Reset() {
	if it == nil {
		return
	}
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.stopped || it.fired {
		return
	}

	if !it.timer.Stop() {
		// Expired but not yet handled; handleTimeout re-arms from idleStartTime.
		it.idleStartTime = time.Now()
		it.resetCount++
		return
	}
	it.timer.Reset(it.perIdle)
	it.idleStartTime = time.Now()
	it.resetCount++
}

// Fired reports whether the idle window elapsed
func (it *IdleTimer) Fired() bool {
	if it == nil {
		return false
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.fired
}

// Stop disarms the timer and releases the derived context
func (it *IdleTimer) Stop() {
	if it == nil {
		return
	}
	it.mu.Lock()
	if it.stopped {
		it.mu.Unlock()
		return
	}
	it.stopped = true
	it.timer.Stop()
	resets := it.resetCount
	it.mu.Unlock()

	it.cancel()
	logger.Debug("IdleTimer stopped",
		zap.Int64("resetCount", resets))
}

// GetResetCount returns the number of times Reset was called
func (it *IdleTimer) GetResetCount() int64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.resetCount
}
