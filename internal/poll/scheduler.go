// Package poll provides the recurring-fetch primitive behind the dashboard
// and detail views: run a fetch immediately, then every fixed interval,
// until cancelled; restart the cycle when the watched key changes.
//
// The scheduler never serializes overlapping invocations and never retries
// within a tick; the fixed interval is the only resilience mechanism. Each
// invocation carries a monotonically increasing sequence number so that
// consumers can commit only the newest result and drop stale slow responses
// (see view.applyGuarded).
package poll

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// FetchFunc is one poll tick. It receives the subscription context, which
// is cancelled on teardown, and the tick's sequence number. Fetch failures
// are the callback's business to surface; they never stop the cycle.
type FetchFunc func(ctx context.Context, seq uint64)

// Scheduler creates poll subscriptions sharing one clock and logger.
type Scheduler struct {
	clock Clock
	log   *slog.Logger
}

// NewScheduler creates a scheduler. A nil clock defaults to the system
// clock.
func NewScheduler(clock Clock, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock, log: log}
}

// Subscription is one live poll cycle. It is destroyed by Cancel, which the
// owning view calls on teardown or key change.
type Subscription struct {
	Key string

	cancel context.CancelFunc
	done   chan struct{}
	seq    atomic.Uint64
}

// Subscribe starts a poll cycle: fetch runs once immediately (scheduled,
// without blocking the caller), then again every interval, measured from
// the start of the previous invocation's scheduling rather than from its
// completion. Overlapping invocations are permitted.
func (s *Scheduler) Subscribe(key string, interval time.Duration, fetch FetchFunc) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		Key:    key,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.log.Debug("poll subscription started", "key", key, "interval", interval)
	go sub.run(ctx, s.clock, interval, fetch)

	return sub
}

// Rotate cancels old, if any, and starts a subscription for the new key.
// Cancelling first guarantees no two live subscriptions for the same
// logical view ever coexist.
func (s *Scheduler) Rotate(old *Subscription, key string, interval time.Duration, fetch FetchFunc) *Subscription {
	if old != nil {
		old.Cancel()
	}
	return s.Subscribe(key, interval, fetch)
}

func (sub *Subscription) run(ctx context.Context, clock Clock, interval time.Duration, fetch FetchFunc) {
	defer close(sub.done)

	ticker := clock.Ticker(interval)
	defer ticker.Stop()

	invoke := func() {
		seq := sub.seq.Add(1)
		go fetch(ctx, seq)
	}

	invoke()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			invoke()
		}
	}
}

// Cancel stops the cycle. When it returns, no further fetch invocation will
// begin; invocations already in flight are left to settle with a cancelled
// context, and their results are discarded by the caller's sequence guard.
// Idempotent.
func (sub *Subscription) Cancel() {
	sub.cancel()
	<-sub.done
}
