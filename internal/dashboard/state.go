package dashboard

import (
	"time"

	"github.com/nerrad567/dropdash/internal/frames"
	"github.com/nerrad567/dropdash/internal/selection"
	"github.com/nerrad567/dropdash/internal/stream"
	"github.com/nerrad567/dropdash/internal/telemetry"
	"github.com/nerrad567/dropdash/internal/transform"
)

// State is an immutable snapshot of everything the renderer draws.
type State struct {
	// Revision increases whenever the board layout is replaced.
	Revision uint64 `json:"revision"`

	Active selection.Set   `json:"active"`
	Frame  *frames.Handle `json:"frame,omitempty"`

	// Registration maps board coordinates onto the camera image. Nil means
	// the default fit applies.
	Registration *transform.Matrix `json:"registration,omitempty"`
	ImageWidth   int               `json:"imageWidth,omitempty"`
	ImageHeight  int               `json:"imageHeight,omitempty"`

	Capacitance   []telemetry.CapacitanceMeasurement `json:"capacitance,omitempty"`
	Voltage       float64                            `json:"voltage"`
	TargetVoltage float64                            `json:"targetVoltage"`
	Temperatures  []float64                          `json:"temperatures,omitempty"`
	DutyCycles    []float64                          `json:"dutyCycles,omitempty"`

	Device *telemetry.DeviceInfo `json:"device,omitempty"`
	Stream stream.State          `json:"stream"`

	// Sequence counts consumer updates.
	Sequence  uint64    `json:"sequence"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FrameSlot replaces the frame. A nil Handle clears it.
type FrameSlot struct {
	Handle *frames.Handle
}

// Registration replaces the camera registration and image size together.
type Registration struct {
	Matrix      *transform.Matrix
	ImageWidth  int
	ImageHeight int
}

// Patch is a partial State update. Nil fields are left untouched.
type Patch struct {
	Revision     *uint64
	Active       *selection.Set
	Frame        *FrameSlot
	Registration *Registration
	Capacitance  *telemetry.CapacitanceScan
	Regulator    *telemetry.RegulatorStatus
	Temperature  *telemetry.TemperatureStatus
	Device       *telemetry.DeviceInfo
	Stream       *stream.State
}

// Empty reports whether p sets no field.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Merge combines two patches; fields set in patch win. Nested values are
// replaced, never merged.
func Merge(acc, patch Patch) Patch {
	if patch.Revision != nil {
		acc.Revision = patch.Revision
	}
	if patch.Active != nil {
		acc.Active = patch.Active
	}
	if patch.Frame != nil {
		acc.Frame = patch.Frame
	}
	if patch.Registration != nil {
		acc.Registration = patch.Registration
	}
	if patch.Capacitance != nil {
		acc.Capacitance = patch.Capacitance
	}
	if patch.Regulator != nil {
		acc.Regulator = patch.Regulator
	}
	if patch.Temperature != nil {
		acc.Temperature = patch.Temperature
	}
	if patch.Device != nil {
		acc.Device = patch.Device
	}
	if patch.Stream != nil {
		acc.Stream = patch.Stream
	}
	return acc
}

// Apply returns a copy of s with p applied.
func (s State) Apply(p Patch) State {
	if p.Revision != nil {
		s.Revision = *p.Revision
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.Frame != nil {
		s.Frame = p.Frame.Handle
	}
	if p.Registration != nil {
		s.Registration = p.Registration.Matrix
		s.ImageWidth = p.Registration.ImageWidth
		s.ImageHeight = p.Registration.ImageHeight
	}
	if p.Capacitance != nil {
		s.Capacitance = p.Capacitance.Measurements
	}
	if p.Regulator != nil {
		s.Voltage = p.Regulator.Voltage
		s.TargetVoltage = p.Regulator.TargetVoltage
	}
	if p.Temperature != nil {
		s.Temperatures = p.Temperature.Temperatures
		s.DutyCycles = p.Temperature.DutyCycles
	}
	if p.Device != nil {
		s.Device = p.Device
	}
	if p.Stream != nil {
		s.Stream = *p.Stream
	}
	return s
}
