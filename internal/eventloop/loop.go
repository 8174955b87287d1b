package eventloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultQueueSize is the task buffer of a Loop.
const DefaultQueueSize = 1024

// Loop is a Scheduler backed by one goroutine and a clockwork.Clock.
//
// Post blocks while the queue is full, which back-pressures transport
// readers instead of dropping frames. Tasks posted after Stop are discarded.
type Loop struct {
	clock  clockwork.Clock
	tasks  chan func()
	done   chan struct{}
	logger Logger

	stopOnce sync.Once
	running  atomic.Bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used for Now and AfterFunc.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(logger Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithQueueSize sets the task buffer size.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.tasks = make(chan func(), n)
		}
	}
}

// New creates a Loop. Call Run to start processing tasks.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  clockwork.NewRealClock(),
		tasks:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetLogger replaces the loop's logger. Call before Run.
func (l *Loop) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// Run processes tasks until ctx is cancelled or Stop is called.
// It returns nil on Stop and ctx.Err() on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("eventloop: already running")
	}
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case f := <-l.tasks:
			l.run(f)
		}
	}
}

func (l *Loop) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("eventloop task panicked", "panic", r)
		}
	}()
	f()
}

// Stop ends Run. It is safe to call more than once and from any goroutine.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop is stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues f to run on the loop goroutine.
func (l *Loop) Post(f func()) {
	select {
	case <-l.done:
	case l.tasks <- f:
	}
}

// Do runs f on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		f()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	case l.tasks <- task:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	case <-finished:
		return nil
	}
}

// AfterFunc runs f on the loop once d has elapsed on the loop clock.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.inner = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if t.state.CompareAndSwap(timerPending, timerFired) {
				f()
			}
		})
	})
	return t
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	state atomic.Int32
	inner clockwork.Timer
}

func (t *loopTimer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	t.inner.Stop()
	return true
}
