// Package frames manages the lifetime of the live camera frame.
//
// Each image event becomes a new Handle. The manager publishes the new
// handle before releasing the one it replaces, so the consumer never sees
// a gap, and clears the live slot if no newer frame arrives within the
// expiry window. At most one handle is live at a time and every handle is
// released exactly once.
//
// Manager methods must be called on the scheduler thread. Current may be
// called from any goroutine.
package frames

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/dropdash/internal/eventloop"
)

// DefaultExpiry is how long a frame stays live without a successor.
const DefaultExpiry = 3000 * time.Millisecond

// Handle is an immutable published frame.
type Handle struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	CapturedAt  time.Time `json:"capturedAt,omitzero"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Size        int       `json:"size"`

	data     []byte
	released atomic.Bool
}

// Data returns the encoded frame bytes.
func (h *Handle) Data() []byte {
	return h.data
}

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	return h.released.Load()
}

// Recorder observes handle churn.
type Recorder interface {
	SetLiveFrames(n int)
	IncFramesExpired()
}

type noopRecorder struct{}

func (noopRecorder) SetLiveFrames(int)  {}
func (noopRecorder) IncFramesExpired() {}

// Manager owns the live frame slot.
type Manager struct {
	sched     eventloop.Scheduler
	expiry    time.Duration
	publish   func(*Handle)
	onRelease func(*Handle)
	recorder  Recorder

	live    *Handle
	timer   eventloop.Timer
	closed  bool
	current atomic.Pointer[Handle]
}

// Option configures a Manager.
type Option func(*Manager)

// WithExpiry overrides DefaultExpiry.
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithReleaseHook is called once for every released handle.
func WithReleaseHook(fn func(*Handle)) Option {
	return func(m *Manager) { m.onRelease = fn }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// NewManager returns a Manager that reports the live handle (nil when
// cleared) through publish.
func NewManager(sched eventloop.Scheduler, publish func(*Handle), opts ...Option) *Manager {
	m := &Manager{
		sched:     sched,
		expiry:    DefaultExpiry,
		publish:   publish,
		onRelease: func(*Handle) {},
		recorder:  noopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Publish installs data as the live frame and returns its handle.
func (m *Manager) Publish(data []byte, capturedAt time.Time) *Handle {
	if m.closed {
		return nil
	}
	now := m.sched.Now()
	h := &Handle{
		ID:          uuid.NewString(),
		ContentType: "image/jpeg",
		CapturedAt:  capturedAt,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.expiry),
		Size:        len(data),
		data:        data,
	}

	prev := m.live
	m.live = h
	m.current.Store(h)
	m.publish(h)

	if m.timer != nil {
		m.timer.Stop()
	}
	if prev != nil {
		m.release(prev)
	}
	m.recorder.SetLiveFrames(1)
	m.timer = m.sched.AfterFunc(m.expiry, func() { m.expire(h) })
	return h
}

func (m *Manager) expire(h *Handle) {
	if m.live != h {
		return
	}
	m.timer = nil
	m.live = nil
	m.current.Store(nil)
	m.publish(nil)
	m.release(h)
	m.recorder.IncFramesExpired()
	m.recorder.SetLiveFrames(0)
}

func (m *Manager) release(h *Handle) {
	if h.released.CompareAndSwap(false, true) {
		m.onRelease(h)
	}
}

// Live returns the live handle or nil.
func (m *Manager) Live() *Handle {
	return m.live
}

// Current returns the live handle or nil. Safe from any goroutine.
func (m *Manager) Current() *Handle {
	return m.current.Load()
}

// Close cancels the expiry timer and releases the live handle without
// publishing.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.live != nil {
		m.release(m.live)
		m.live = nil
		m.current.Store(nil)
	}
	m.recorder.SetLiveFrames(0)
}
