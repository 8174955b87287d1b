// Package coalesce rate-limits how often bursty telemetry reaches an
// expensive consumer.
//
// Producers submit partial updates ("patches"). Passive patches accumulate
// and are flushed at most once per minimum render period; Immediate patches
// flush everything accumulated so far on the spot and restart the window.
// A Coalescer must only be used from its scheduler's thread.
package coalesce

import (
	"time"

	"github.com/nerrad567/dropdash/internal/eventloop"
)

// DefaultMinRenderPeriod is the minimum interval between passive flushes.
const DefaultMinRenderPeriod = 500 * time.Millisecond

// Trigger labels why the consumer was updated.
type Trigger string

const (
	TriggerImmediate Trigger = "immediate"
	TriggerPassive   Trigger = "passive"
)

// Recorder observes consumer updates.
type Recorder interface {
	IncConsumerUpdate(trigger string)
}

type noopRecorder struct{}

func (noopRecorder) IncConsumerUpdate(string) {}

// MergeFunc folds patch into acc with later values winning, returning the
// new accumulator. It must not mutate acc in place if acc may have been
// handed to the consumer.
type MergeFunc[P any] func(acc, patch P) P

// Coalescer merges patches of type P and applies them to a consumer.
type Coalescer[P any] struct {
	sched    eventloop.Scheduler
	period   time.Duration
	merge    MergeFunc[P]
	apply    func(P)
	recorder Recorder

	acc    P
	dirty  bool
	timer  eventloop.Timer
	closed bool
}

// Option configures a Coalescer.
type Option[P any] func(*Coalescer[P])

// WithMinRenderPeriod overrides DefaultMinRenderPeriod.
func WithMinRenderPeriod[P any](d time.Duration) Option[P] {
	return func(c *Coalescer[P]) {
		if d > 0 {
			c.period = d
		}
	}
}

// WithRecorder sets a metrics recorder.
func WithRecorder[P any](r Recorder) Option[P] {
	return func(c *Coalescer[P]) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New returns a Coalescer that merges with merge and delivers to apply.
func New[P any](sched eventloop.Scheduler, merge MergeFunc[P], apply func(P), opts ...Option[P]) *Coalescer[P] {
	c := &Coalescer[P]{
		sched:    sched,
		period:   DefaultMinRenderPeriod,
		merge:    merge,
		apply:    apply,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinRenderPeriod returns the configured flush period.
func (c *Coalescer[P]) MinRenderPeriod() time.Duration {
	return c.period
}

// Immediate merges patch, applies the accumulator now and cancels any
// pending flush.
func (c *Coalescer[P]) Immediate(patch P) {
	if c.closed {
		return
	}
	c.acc = c.merge(c.acc, patch)
	c.cancelTimer()
	c.flush(TriggerImmediate)
}

// Passive merges patch and schedules a flush unless one is already pending.
func (c *Coalescer[P]) Passive(patch P) {
	if c.closed {
		return
	}
	c.acc = c.merge(c.acc, patch)
	c.dirty = true
	if c.timer != nil {
		return
	}
	c.timer = c.sched.AfterFunc(c.period, func() {
		c.timer = nil
		if c.dirty {
			c.flush(TriggerPassive)
		}
	})
}

// Pending reports whether a flush is scheduled.
func (c *Coalescer[P]) Pending() bool {
	return c.timer != nil
}

// Close cancels any pending flush. Patches submitted afterwards are ignored.
func (c *Coalescer[P]) Close() {
	c.closed = true
	c.cancelTimer()
	var zero P
	c.acc = zero
	c.dirty = false
}

func (c *Coalescer[P]) flush(trigger Trigger) {
	acc := c.acc
	var zero P
	c.acc = zero
	c.dirty = false
	c.apply(acc)
	c.recorder.IncConsumerUpdate(string(trigger))
}

func (c *Coalescer[P]) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
