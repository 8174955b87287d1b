package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/dropdash/internal/coalesce"
	"github.com/nerrad567/dropdash/internal/eventloop"
	"github.com/nerrad567/dropdash/internal/frames"
	"github.com/nerrad567/dropdash/internal/layout"
	"github.com/nerrad567/dropdash/internal/rpc"
	"github.com/nerrad567/dropdash/internal/selection"
	"github.com/nerrad567/dropdash/internal/stream"
	"github.com/nerrad567/dropdash/internal/telemetry"
	"github.com/nerrad567/dropdash/internal/transform"
)

// Selection command sources.
const (
	SourceClick = "click"
	SourceKey   = "key"
	SourceAPI   = "api"
)

const (
	resultSuccess = "success"
	resultFailed  = "failed"
)

// Logger is the logging interface used by the controller and sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder observes the controller. metrics.Recorder satisfies it.
type Recorder interface {
	coalesce.Recorder
	frames.Recorder
	IncSelectionCommand(source, result string)
	ObserveRPC(method string, d time.Duration, success bool)
	IncSinkError(sink string)
}

type noopRecorder struct{}

func (noopRecorder) IncConsumerUpdate(string)               {}
func (noopRecorder) SetLiveFrames(int)                      {}
func (noopRecorder) IncFramesExpired()                      {}
func (noopRecorder) IncSelectionCommand(string, string)     {}
func (noopRecorder) ObserveRPC(string, time.Duration, bool) {}
func (noopRecorder) IncSinkError(string)                    {}

// Device is the command channel. *rpc.Client satisfies it.
type Device interface {
	SetElectrodePins(ctx context.Context, pins []layout.Pin) error
	GetParameterDefinitions(ctx context.Context) ([]rpc.ParameterDefinition, error)
	GetParameter(ctx context.Context, id uint32) (float64, error)
	SetParameter(ctx context.Context, id uint32, value float64) error
	SaveParameters(ctx context.Context) error
	CalibrateCapacitanceOffset(ctx context.Context) error
}

// Parameter is a device parameter with its current value.
type Parameter struct {
	rpc.ParameterDefinition
	Value float64 `json:"value"`
}

// Config holds the controller's collaborators. Scheduler and Layout are
// required.
type Config struct {
	Scheduler       eventloop.Scheduler
	Layout          *layout.Layout
	MaxBrush        int
	MinRenderPeriod time.Duration
	ImageExpiry     time.Duration
	Device          Device
	Recorder        Recorder
	Sinks           []Sink
	// Registration seeds the board-to-image matrix until the device sends
	// an image transform.
	Registration *transform.Matrix
}

// Controller routes telemetry into coalesced State and operator input into
// device commands.
type Controller struct {
	sched    eventloop.Scheduler
	sel      *selection.Controller
	co       *coalesce.Coalescer[Patch]
	frames   *frames.Manager
	device   Device
	sinks    []Sink
	logger   Logger
	recorder Recorder

	state       State
	revision    uint64
	subscribers []func(State)
	closed      bool

	snapshot atomic.Pointer[State]
}

// New creates a controller. It publishes nothing until the first event.
func New(cfg Config) *Controller {
	rec := cfg.Recorder
	if rec == nil {
		rec = noopRecorder{}
	}
	c := &Controller{
		sched:    cfg.Scheduler,
		sel:      selection.New(cfg.Layout, cfg.MaxBrush),
		device:   cfg.Device,
		sinks:    cfg.Sinks,
		logger:   noopLogger{},
		recorder: rec,
	}

	opts := []coalesce.Option[Patch]{coalesce.WithRecorder[Patch](rec)}
	if cfg.MinRenderPeriod > 0 {
		opts = append(opts, coalesce.WithMinRenderPeriod[Patch](cfg.MinRenderPeriod))
	}
	c.co = coalesce.New(cfg.Scheduler, Merge, c.apply, opts...)

	frameOpts := []frames.Option{frames.WithRecorder(rec)}
	if cfg.ImageExpiry > 0 {
		frameOpts = append(frameOpts, frames.WithExpiry(cfg.ImageExpiry))
	}
	c.frames = frames.NewManager(cfg.Scheduler, func(h *frames.Handle) {
		c.co.Immediate(Patch{Frame: &FrameSlot{Handle: h}})
	}, frameOpts...)

	initial := State{Registration: cfg.Registration, UpdatedAt: cfg.Scheduler.Now()}
	c.state = initial
	c.snapshot.Store(&initial)
	return c
}

// SetLogger sets the logger.
func (c *Controller) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Subscribe registers fn to receive every consumer update, on the loop
// thread.
func (c *Controller) Subscribe(fn func(State)) {
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) apply(p Patch) {
	if p.Empty() {
		return
	}
	next := c.state.Apply(p)
	next.Sequence = c.state.Sequence + 1
	next.UpdatedAt = c.sched.Now()
	c.state = next
	c.snapshot.Store(&next)
	for _, fn := range c.subscribers {
		fn(next)
	}
}

// HandleEvent implements stream.Handler.
func (c *Controller) HandleEvent(ev telemetry.Event) {
	if c.closed {
		return
	}
	switch ev.Kind {
	case telemetry.KindElectrodeState:
		active := selection.NewSet(ev.ElectrodeState.ActivePins()...)
		c.sel.UpdateActive(active)
		c.co.Immediate(Patch{Active: &active})
	case telemetry.KindImageFrame:
		c.frames.Publish(ev.ImageFrame.Data, ev.ImageFrame.Timestamp)
	case telemetry.KindImageTransform:
		p := ev.ImageTransform
		m, err := transform.FromSlice(p.Transform)
		if err != nil {
			c.logger.Warn("ignoring image transform", "error", err)
			m = nil
		}
		c.co.Passive(Patch{Registration: &Registration{
			Matrix:      m,
			ImageWidth:  p.ImageWidth,
			ImageHeight: p.ImageHeight,
		}})
	case telemetry.KindCapacitanceScan:
		c.co.Passive(Patch{Capacitance: ev.CapacitanceScan})
	case telemetry.KindRegulatorStatus:
		c.co.Passive(Patch{Regulator: ev.RegulatorStatus})
	case telemetry.KindTemperatureStatus:
		c.co.Passive(Patch{Temperature: ev.TemperatureStatus})
	case telemetry.KindDeviceInfo:
		c.co.Immediate(Patch{Device: ev.DeviceInfo})
	default:
		c.logger.Debug("unhandled telemetry kind", "kind", ev.Kind)
		return
	}
	for _, s := range c.sinks {
		s.Record(ev)
	}
}

// SetStreamState publishes a connection state change. Suitable as a
// Synchronizer.OnStateChange observer.
func (c *Controller) SetStreamState(st stream.State) {
	if c.closed {
		return
	}
	c.co.Immediate(Patch{Stream: &st})
}

// SetLayout swaps in a new board layout and bumps the revision.
func (c *Controller) SetLayout(l *layout.Layout) {
	if c.closed || l == nil {
		return
	}
	c.sel.SetLayout(l)
	c.revision++
	rev := c.revision
	c.co.Immediate(Patch{Revision: &rev})
	c.logger.Info("board layout replaced", "revision", rev, "electrodes", l.ElectrodeCount())
}

// Layout returns the current board layout.
func (c *Controller) Layout() *layout.Layout {
	return c.sel.Layout()
}

// Selection returns the selection controller.
func (c *Controller) Selection() *selection.Controller {
	return c.sel
}

// State returns the last published state. Loop thread only.
func (c *Controller) State() State {
	return c.state
}

// Snapshot returns the last published state. Safe from any goroutine.
func (c *Controller) Snapshot() State {
	return *c.snapshot.Load()
}

// Frame returns the live frame handle or nil. Safe from any goroutine.
func (c *Controller) Frame() *frames.Handle {
	return c.frames.Current()
}

// Close stops timers and releases the live frame. Later events are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.co.Close()
	c.frames.Close()
}

// SendSelection asks the device to activate exactly set. The active set
// only changes when the device reports it back.
func (c *Controller) SendSelection(ctx context.Context, source string, set selection.Set) error {
	if c.device == nil {
		c.recorder.IncSelectionCommand(source, resultFailed)
		return ErrNoDevice
	}
	err := c.observe(rpc.MethodSetElectrodePins, func() error {
		return c.device.SetElectrodePins(ctx, set.Pins())
	})
	result := resultSuccess
	if err != nil {
		result = resultFailed
	}
	c.recorder.IncSelectionCommand(source, result)
	for _, s := range c.sinks {
		if ss, ok := s.(SelectionSink); ok {
			ss.Selection(source, set)
		}
	}
	if err != nil {
		return fmt.Errorf("sending selection: %w", err)
	}
	return nil
}

// RefreshParameters reads every parameter definition and its value.
func (c *Controller) RefreshParameters(ctx context.Context) ([]Parameter, error) {
	if c.device == nil {
		return nil, ErrNoDevice
	}
	var defs []rpc.ParameterDefinition
	err := c.observe(rpc.MethodGetParameterDefinitions, func() error {
		var err error
		defs, err = c.device.GetParameterDefinitions(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading parameter definitions: %w", err)
	}

	params := make([]Parameter, 0, len(defs))
	for _, d := range defs {
		var v float64
		err := c.observe(rpc.MethodGetParameter, func() error {
			var err error
			v, err = c.device.GetParameter(ctx, d.ID)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("reading parameter %d (%s): %w", d.ID, d.Name, err)
		}
		params = append(params, Parameter{ParameterDefinition: d, Value: v})
	}
	return params, nil
}

// SetParameter writes one parameter. Values of integer parameters are
// truncated.
func (c *Controller) SetParameter(ctx context.Context, id uint32, value float64) error {
	if c.device == nil {
		return ErrNoDevice
	}
	return c.observe(rpc.MethodSetParameter, func() error {
		return c.device.SetParameter(ctx, id, value)
	})
}

// SaveParameters persists the device's parameters to flash.
func (c *Controller) SaveParameters(ctx context.Context) error {
	if c.device == nil {
		return ErrNoDevice
	}
	return c.observe(rpc.MethodSetParameter, func() error {
		return c.device.SaveParameters(ctx)
	})
}

// Calibrate runs the capacitance offset calibration.
func (c *Controller) Calibrate(ctx context.Context) error {
	if c.device == nil {
		return ErrNoDevice
	}
	return c.observe(rpc.MethodCalibrateCapacitanceOffset, func() error {
		return c.device.CalibrateCapacitanceOffset(ctx)
	})
}

func (c *Controller) observe(method string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.recorder.ObserveRPC(method, time.Since(start), err == nil)
	return err
}
