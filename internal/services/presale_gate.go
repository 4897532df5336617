package services

import (
	"context"
	"sync"
	"time"

	"github.com/crownside/storefront/internal/domain"
)

// PresaleAvailable reports whether a presale item can be purchased at the
// given instant. Items without a release date are always available, and an
// item that has unlocked never locks again.
func PresaleAvailable(releaseAt *time.Time, now time.Time) bool {
	if releaseAt == nil {
		return true
	}
	return !now.Before(*releaseAt)
}

// PresaleRemaining computes the time left until the release instant, split
// into whole days, hours, minutes, and seconds. Once the release has passed
// the result is zeroed with Elapsed set.
func PresaleRemaining(releaseAt *time.Time, now time.Time) domain.Remaining {
	if releaseAt == nil {
		return domain.Remaining{Elapsed: true}
	}

	diff := releaseAt.Sub(now).Milliseconds()
	if diff <= 0 {
		return domain.Remaining{Elapsed: true}
	}

	return domain.Remaining{
		Days:    diff / (1000 * 60 * 60 * 24),
		Hours:   (diff / (1000 * 60 * 60)) % 24,
		Minutes: (diff / (1000 * 60)) % 60,
		Seconds: (diff / 1000) % 60,
	}
}

// Countdown emits the remaining time toward a release instant once per tick
// until the release elapses or Stop is called.
type Countdown struct {
	releaseAt time.Time
	interval  time.Duration
	clock     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	updates  chan domain.Remaining
}

// CountdownOption customises Countdown construction.
type CountdownOption func(*Countdown)

// WithCountdownInterval overrides the default one second tick interval.
func WithCountdownInterval(interval time.Duration) CountdownOption {
	return func(c *Countdown) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithCountdownClock injects a custom clock primarily for tests.
func WithCountdownClock(clock func() time.Time) CountdownOption {
	return func(c *Countdown) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCountdown builds a Countdown toward the release instant.
func NewCountdown(releaseAt time.Time, opts ...CountdownOption) *Countdown {
	c := &Countdown{
		releaseAt: releaseAt,
		interval:  time.Second,
		clock:     time.Now,
		stopCh:    make(chan struct{}),
		updates:   make(chan domain.Remaining, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Updates returns the channel carrying countdown ticks. The channel closes
// after the final elapsed tick or once Stop is called.
func (c *Countdown) Updates() <-chan domain.Remaining {
	return c.updates
}

// Start begins ticking. It returns immediately; ticks are delivered on the
// Updates channel until the release elapses, Stop is called, or ctx is done.
func (c *Countdown) Start(ctx context.Context) {
	go func() {
		defer close(c.updates)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		release := &c.releaseAt
		for {
			remaining := PresaleRemaining(release, c.clock())
			select {
			case c.updates <- remaining:
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
			if remaining.Elapsed {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts the countdown. It is safe to call multiple times.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
