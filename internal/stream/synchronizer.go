package stream

import (
	"context"
	"time"

	"github.com/nerrad567/dropdash/internal/eventloop"
	"github.com/nerrad567/dropdash/internal/telemetry"
)

// DefaultBackoff is the fixed delay before a reconnect attempt.
const DefaultBackoff = 5000 * time.Millisecond

// Conn is one established transport connection.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the connection fails.
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens transport connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// Handler receives decoded events on the scheduler thread.
type Handler interface {
	HandleEvent(ev telemetry.Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev telemetry.Event)

func (f HandlerFunc) HandleEvent(ev telemetry.Event) { f(ev) }

// Logger is the logging interface used by the synchronizer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder observes stream activity.
type Recorder interface {
	IncEvent(kind string)
	IncDecodeError()
	IncStreamState(state string)
	IncReconnectAttempt()
}

type noopRecorder struct{}

func (noopRecorder) IncEvent(string)       {}
func (noopRecorder) IncDecodeError()       {}
func (noopRecorder) IncStreamState(string) {}
func (noopRecorder) IncReconnectAttempt()  {}

// Config holds the synchronizer's collaborators.
type Config struct {
	Scheduler eventloop.Scheduler
	Dialer    Dialer
	Codec     telemetry.Codec
	Handler   Handler
	Backoff   time.Duration
}

// Synchronizer keeps a reconnecting event stream open and feeds decoded
// events to its handler. Apart from the constructor, every method must be
// called on the scheduler thread.
type Synchronizer struct {
	sched    eventloop.Scheduler
	dialer   Dialer
	codec    telemetry.Codec
	handler  Handler
	backoff  time.Duration
	logger   Logger
	recorder Recorder
	onState  []func(State)

	state      State
	gen        uint64
	attempts   int
	conn       Conn
	cancelDial context.CancelFunc
	retry      eventloop.Timer
}

// New creates a Synchronizer in StateIdle. Call Start to connect.
func New(cfg Config) *Synchronizer {
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	handler := cfg.Handler
	if handler == nil {
		handler = HandlerFunc(func(telemetry.Event) {})
	}
	return &Synchronizer{
		sched:    cfg.Scheduler,
		dialer:   cfg.Dialer,
		codec:    cfg.Codec,
		handler:  handler,
		backoff:  backoff,
		logger:   noopLogger{},
		recorder: noopRecorder{},
	}
}

// SetLogger sets the logger.
func (s *Synchronizer) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// SetRecorder sets the metrics recorder.
func (s *Synchronizer) SetRecorder(r Recorder) {
	if r == nil {
		r = noopRecorder{}
	}
	s.recorder = r
}

// OnStateChange registers an observer for state transitions.
func (s *Synchronizer) OnStateChange(fn func(State)) {
	s.onState = append(s.onState, fn)
}

// State returns the current state.
func (s *Synchronizer) State() State {
	return s.state
}

// Attempts returns the number of connection attempts made so far.
func (s *Synchronizer) Attempts() int {
	return s.attempts
}

// Backoff returns the reconnect delay.
func (s *Synchronizer) Backoff() time.Duration {
	return s.backoff
}

// Start begins the first connection attempt.
func (s *Synchronizer) Start() error {
	switch s.state {
	case StateClosedTerminal:
		return ErrClosed
	case StateIdle:
		s.connect()
		return nil
	default:
		return ErrAlreadyStarted
	}
}

// Close stops the stream for good. It is idempotent. After it returns no
// reconnect fires and no further events reach the handler.
func (s *Synchronizer) Close() {
	if s.state == StateClosedTerminal {
		return
	}
	s.gen++
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.logger.Info("event stream closed")
	s.setState(StateClosedTerminal)
}

func (s *Synchronizer) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.recorder.IncStreamState(st.String())
	for _, fn := range s.onState {
		fn(st)
	}
}

func (s *Synchronizer) connect() {
	s.gen++
	gen := s.gen
	s.attempts++
	if s.attempts > 1 {
		s.recorder.IncReconnectAttempt()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelDial = cancel
	s.setState(StateConnecting)
	s.logger.Debug("connecting event stream", "attempt", s.attempts)

	go func() {
		conn, err := s.dialer.Dial(ctx)
		s.sched.Post(func() { s.dialed(gen, conn, err) })
	}()
}

func (s *Synchronizer) dialed(gen uint64, conn Conn, err error) {
	if gen != s.gen || s.state != StateConnecting {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if err != nil {
		s.logger.Warn("event stream dial failed", "error", err, "retry_in", s.backoff)
		s.scheduleRetry()
		return
	}

	s.conn = conn
	s.logger.Info("event stream open")
	s.setState(StateOpen)

	go s.readPump(gen, conn)
}

// readPump forwards frames to the scheduler until the connection fails.
// It is the only goroutine reading conn.
func (s *Synchronizer) readPump(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.sched.Post(func() { s.closed(gen, err) })
			return
		}
		s.sched.Post(func() { s.frame(gen, data) })
	}
}

func (s *Synchronizer) frame(gen uint64, data []byte) {
	if gen != s.gen || s.state != StateOpen {
		return
	}
	ev, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Warn("dropping undecodable frame", "error", err, "bytes", len(data))
		s.recorder.IncDecodeError()
		return
	}
	s.recorder.IncEvent(string(ev.Kind))
	s.handler.HandleEvent(ev)
}

func (s *Synchronizer) closed(gen uint64, err error) {
	if gen != s.gen || s.state != StateOpen {
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.logger.Warn("event stream lost", "error", err, "retry_in", s.backoff)
	s.scheduleRetry()
}

func (s *Synchronizer) scheduleRetry() {
	s.setState(StateClosedRetrying)
	s.retry = s.sched.AfterFunc(s.backoff, func() {
		s.retry = nil
		if s.state == StateClosedRetrying {
			s.connect()
		}
	})
}
