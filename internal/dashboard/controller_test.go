package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/dropdash/internal/eventloop"
	"github.com/nerrad567/dropdash/internal/layout"
	"github.com/nerrad567/dropdash/internal/rpc"
	"github.com/nerrad567/dropdash/internal/selection"
	"github.com/nerrad567/dropdash/internal/stream"
	"github.com/nerrad567/dropdash/internal/telemetry"
	"github.com/nerrad567/dropdash/internal/transform"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func squareLayout() *layout.Layout {
	return layout.New(layout.Definition{
		Grids: []layout.Grid{{
			Pitch: 1,
			Pins:  [][]*layout.Pin{layout.Row(0, 1), layout.Row(2, 3)},
		}},
	})
}

type fakeDevice struct {
	pins   [][]layout.Pin
	params map[uint32]float64
	defs   []rpc.ParameterDefinition
	saved  int
	calib  int
	err    error
}

func (d *fakeDevice) SetElectrodePins(_ context.Context, pins []layout.Pin) error {
	d.pins = append(d.pins, pins)
	return d.err
}

func (d *fakeDevice) GetParameterDefinitions(context.Context) ([]rpc.ParameterDefinition, error) {
	return d.defs, d.err
}

func (d *fakeDevice) GetParameter(_ context.Context, id uint32) (float64, error) {
	return d.params[id], d.err
}

func (d *fakeDevice) SetParameter(_ context.Context, id uint32, v float64) error {
	if d.params == nil {
		d.params = map[uint32]float64{}
	}
	d.params[id] = v
	return d.err
}

func (d *fakeDevice) SaveParameters(context.Context) error {
	d.saved++
	return d.err
}

func (d *fakeDevice) CalibrateCapacitanceOffset(context.Context) error {
	d.calib++
	return d.err
}

type fakeRecorder struct {
	noopRecorder
	updates  map[string]int
	commands map[string]int
	rpcs     map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{updates: map[string]int{}, commands: map[string]int{}, rpcs: map[string]int{}}
}

func (r *fakeRecorder) IncConsumerUpdate(trigger string) { r.updates[trigger]++ }

func (r *fakeRecorder) IncSelectionCommand(source, result string) {
	r.commands[source+"/"+result]++
}

func (r *fakeRecorder) ObserveRPC(method string, _ time.Duration, _ bool) { r.rpcs[method]++ }

type recordingSink struct {
	kinds      []telemetry.Kind
	selections []selection.Set
}

func (s *recordingSink) Record(ev telemetry.Event) { s.kinds = append(s.kinds, ev.Kind) }

func (s *recordingSink) Selection(_ string, set selection.Set) {
	s.selections = append(s.selections, set)
}

type harness struct {
	sched   *eventloop.Manual
	ctrl    *Controller
	device  *fakeDevice
	rec     *fakeRecorder
	sink    *recordingSink
	updates []update
}

type update struct {
	At    time.Duration
	State State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sched:  eventloop.NewManual(epoch),
		device: &fakeDevice{},
		rec:    newFakeRecorder(),
		sink:   &recordingSink{},
	}
	h.ctrl = New(Config{
		Scheduler: h.sched,
		Layout:    squareLayout(),
		Device:    h.device,
		Recorder:  h.rec,
		Sinks:     []Sink{h.sink},
	})
	h.ctrl.Subscribe(func(s State) {
		h.updates = append(h.updates, update{At: h.sched.Now().Sub(epoch), State: s})
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func TestElectrodeStateIsImmediate(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewElectrodeState(telemetry.ElectrodeState{
		Electrodes: []bool{false, true, false, true},
	}))

	if len(h.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.updates))
	}
	if diff := cmp.Diff([]layout.Pin{1, 3}, h.updates[0].State.Active.Pins()); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if !h.ctrl.Selection().Active().Equal(selection.NewSet(1, 3)) {
		t.Errorf("selection active = %v, want [1 3]", h.ctrl.Selection().Active().Pins())
	}
	if h.rec.updates["immediate"] != 1 {
		t.Errorf("immediate updates = %d, want 1", h.rec.updates["immediate"])
	}
}

func TestAnalogueTelemetryIsCoalesced(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewRegulatorStatus(telemetry.RegulatorStatus{Voltage: 119, TargetVoltage: 120}))
	h.sched.Advance(100 * time.Millisecond)
	h.ctrl.HandleEvent(telemetry.NewTemperatureStatus(telemetry.TemperatureStatus{Temperatures: []float64{25}}))
	h.sched.Advance(time.Second)

	if len(h.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.updates))
	}
	got := h.updates[0]
	if got.At != 500*time.Millisecond {
		t.Errorf("update at %v, want 500ms", got.At)
	}
	if got.State.Voltage != 119 || got.State.TargetVoltage != 120 {
		t.Errorf("voltage = %v/%v, want 119/120", got.State.Voltage, got.State.TargetVoltage)
	}
	if diff := cmp.Diff([]float64{25}, got.State.Temperatures); diff != "" {
		t.Errorf("temperatures mismatch (-want +got):\n%s", diff)
	}
}

func TestImmediateFlushesPendingPassive(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewRegulatorStatus(telemetry.RegulatorStatus{Voltage: 50}))
	h.sched.Advance(100 * time.Millisecond)
	h.ctrl.HandleEvent(telemetry.NewCapacitanceScan(telemetry.CapacitanceScan{
		Measurements: []telemetry.CapacitanceMeasurement{{Capacitance: 1.5}},
	}))
	h.sched.Advance(100 * time.Millisecond)
	h.ctrl.HandleEvent(telemetry.NewDeviceInfo(telemetry.DeviceInfo{Connected: true, SerialNumber: "A1"}))
	h.sched.Advance(time.Second)

	if len(h.updates) != 1 {
		t.Fatalf("updates = %d, want 1 (timer must be cancelled)", len(h.updates))
	}
	got := h.updates[0]
	if got.At != 200*time.Millisecond {
		t.Errorf("update at %v, want 200ms", got.At)
	}
	if got.State.Voltage != 50 || len(got.State.Capacitance) != 1 || got.State.Device == nil {
		t.Errorf("state = %+v, want voltage, capacitance and device merged", got.State)
	}
}

func TestImageTransformReplacesRegistration(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewImageTransform(telemetry.ImageTransform{
		Transform:   []float64{2, 0, 0, 0, 2, 0, 0, 0, 1},
		ImageWidth:  640,
		ImageHeight: 480,
	}))
	h.sched.Advance(500 * time.Millisecond)

	s := h.ctrl.Snapshot()
	if s.Registration == nil || s.Registration[0][0] != 2 {
		t.Fatalf("registration = %v, want scale 2", s.Registration)
	}
	if s.ImageWidth != 640 || s.ImageHeight != 480 {
		t.Errorf("image size = %dx%d, want 640x480", s.ImageWidth, s.ImageHeight)
	}

	h.ctrl.HandleEvent(telemetry.NewImageTransform(telemetry.ImageTransform{}))
	h.sched.Advance(500 * time.Millisecond)
	if s := h.ctrl.Snapshot(); s.Registration != nil {
		t.Errorf("registration = %v after empty transform, want nil", s.Registration)
	}
}

func TestBoardRegistrationSeedsState(t *testing.T) {
	board := transform.Matrix{{3, 0, 5}, {0, 3, 7}, {0, 0, 1}}
	sched := eventloop.NewManual(epoch)
	ctrl := New(Config{
		Scheduler:    sched,
		Layout:       squareLayout(),
		Registration: &board,
	})
	t.Cleanup(ctrl.Close)

	if s := ctrl.Snapshot(); s.Registration == nil || *s.Registration != board {
		t.Fatalf("initial registration = %v, want board matrix", s.Registration)
	}

	ctrl.HandleEvent(telemetry.NewImageTransform(telemetry.ImageTransform{
		Transform:   []float64{2, 0, 0, 0, 2, 0, 0, 0, 1},
		ImageWidth:  640,
		ImageHeight: 480,
	}))
	sched.Advance(500 * time.Millisecond)
	if s := ctrl.Snapshot(); s.Registration == nil || s.Registration[0][0] != 2 {
		t.Errorf("registration = %v, want device transform", s.Registration)
	}
}

func TestFrameLifecycle(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewImageFrame(telemetry.ImageFrame{Data: []byte{0xff, 0xd8}}))
	if len(h.updates) != 1 || h.updates[0].State.Frame == nil {
		t.Fatalf("updates = %+v, want one with a frame", h.updates)
	}
	h1 := h.updates[0].State.Frame
	if h.ctrl.Frame() != h1 {
		t.Error("Frame() does not return the live handle")
	}

	h.sched.Advance(3000 * time.Millisecond)
	if len(h.updates) != 2 || h.updates[1].State.Frame != nil {
		t.Fatalf("updates = %d, want frame cleared at 3000ms", len(h.updates))
	}
	if h.updates[1].At != 3000*time.Millisecond {
		t.Errorf("cleared at %v, want 3s", h.updates[1].At)
	}
	if !h1.Released() {
		t.Error("expired handle not released")
	}
	if h.ctrl.Frame() != nil {
		t.Error("Frame() not nil after expiry")
	}
}

func TestStreamStateAndLayout(t *testing.T) {
	h := newHarness(t)

	h.ctrl.SetStreamState(stream.StateOpen)
	h.ctrl.SetLayout(squareLayout())

	s := h.ctrl.Snapshot()
	if s.Stream != stream.StateOpen {
		t.Errorf("stream = %v, want open", s.Stream)
	}
	if s.Revision != 1 {
		t.Errorf("revision = %d, want 1", s.Revision)
	}
	if s.Sequence != 2 {
		t.Errorf("sequence = %d, want 2", s.Sequence)
	}
}

func TestSinksReceiveEveryEvent(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewElectrodeState(telemetry.ElectrodeState{}))
	h.ctrl.HandleEvent(telemetry.NewRegulatorStatus(telemetry.RegulatorStatus{}))
	h.ctrl.HandleEvent(telemetry.NewImageFrame(telemetry.ImageFrame{Data: []byte{1}}))

	want := []telemetry.Kind{
		telemetry.KindElectrodeState,
		telemetry.KindRegulatorStatus,
		telemetry.KindImageFrame,
	}
	if diff := cmp.Diff(want, h.sink.kinds); diff != "" {
		t.Errorf("sink kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseIgnoresLaterEvents(t *testing.T) {
	h := newHarness(t)

	h.ctrl.HandleEvent(telemetry.NewImageFrame(telemetry.ImageFrame{Data: []byte{1}}))
	frame := h.ctrl.Frame()
	h.ctrl.Close()
	h.ctrl.HandleEvent(telemetry.NewDeviceInfo(telemetry.DeviceInfo{}))
	h.sched.Advance(time.Minute)

	if len(h.updates) != 1 {
		t.Errorf("updates = %d after Close, want 1", len(h.updates))
	}
	if !frame.Released() {
		t.Error("live frame not released by Close")
	}
}

func TestSendSelection(t *testing.T) {
	h := newHarness(t)

	set := h.ctrl.Selection().Click(0, selection.Modifiers{})
	if err := h.ctrl.SendSelection(context.Background(), SourceClick, set); err != nil {
		t.Fatalf("SendSelection() error = %v", err)
	}

	if diff := cmp.Diff([][]layout.Pin{{0}}, h.device.pins); diff != "" {
		t.Errorf("device pins mismatch (-want +got):\n%s", diff)
	}
	if h.rec.commands["click/success"] != 1 {
		t.Errorf("commands = %v, want click/success", h.rec.commands)
	}
	if h.rec.rpcs[rpc.MethodSetElectrodePins] != 1 {
		t.Errorf("rpc observations = %v", h.rec.rpcs)
	}
	if len(h.sink.selections) != 1 {
		t.Errorf("relayed selections = %d, want 1", len(h.sink.selections))
	}
	if !h.ctrl.Snapshot().Active.Empty() {
		t.Error("active set changed before device confirmation")
	}
}

func TestSendSelectionFailure(t *testing.T) {
	h := newHarness(t)
	h.device.err = errors.New("boom")

	err := h.ctrl.SendSelection(context.Background(), SourceKey, selection.NewSet())
	if err == nil || !errors.Is(err, h.device.err) {
		t.Fatalf("SendSelection() error = %v, want wrapped device error", err)
	}
	if h.rec.commands["key/failed"] != 1 {
		t.Errorf("commands = %v, want key/failed", h.rec.commands)
	}
}

func TestCommandsWithoutDevice(t *testing.T) {
	c := New(Config{Scheduler: eventloop.NewManual(epoch), Layout: squareLayout()})
	ctx := context.Background()

	checks := map[string]error{
		"SendSelection": c.SendSelection(ctx, SourceAPI, selection.NewSet(1)),
		"SetParameter":  c.SetParameter(ctx, 1, 2),
		"Save":          c.SaveParameters(ctx),
		"Calibrate":     c.Calibrate(ctx),
	}
	_, err := c.RefreshParameters(ctx)
	checks["RefreshParameters"] = err

	for name, err := range checks {
		if !errors.Is(err, ErrNoDevice) {
			t.Errorf("%s() error = %v, want ErrNoDevice", name, err)
		}
	}
}

func TestParameters(t *testing.T) {
	h := newHarness(t)
	h.device.defs = []rpc.ParameterDefinition{
		{ID: 1, Name: "voltage", Type: "float"},
		{ID: 2, Name: "frequency", Type: "int"},
	}
	h.device.params = map[uint32]float64{1: 120, 2: 500}
	ctx := context.Background()

	params, err := h.ctrl.RefreshParameters(ctx)
	if err != nil {
		t.Fatalf("RefreshParameters() error = %v", err)
	}
	want := []Parameter{
		{ParameterDefinition: h.device.defs[0], Value: 120},
		{ParameterDefinition: h.device.defs[1], Value: 500},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	if err := h.ctrl.SetParameter(ctx, 1, 100); err != nil {
		t.Fatalf("SetParameter() error = %v", err)
	}
	if h.device.params[1] != 100 {
		t.Errorf("param 1 = %v, want 100", h.device.params[1])
	}
	if err := h.ctrl.SaveParameters(ctx); err != nil || h.device.saved != 1 {
		t.Errorf("SaveParameters() error = %v, saved = %d", err, h.device.saved)
	}
	if err := h.ctrl.Calibrate(ctx); err != nil || h.device.calib != 1 {
		t.Errorf("Calibrate() error = %v, calib = %d", err, h.device.calib)
	}
}
