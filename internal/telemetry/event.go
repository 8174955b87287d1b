package telemetry

import (
	"fmt"
	"time"

	"github.com/nerrad567/dropdash/internal/layout"
)

// Kind discriminates the Event union.
type Kind string

const (
	KindElectrodeState    Kind = "electrode-state"
	KindImageFrame        Kind = "image-frame"
	KindImageTransform    Kind = "image-transform"
	KindCapacitanceScan   Kind = "capacitance-scan"
	KindRegulatorStatus   Kind = "regulator-status"
	KindTemperatureStatus Kind = "temperature-status"
	KindDeviceInfo        Kind = "device-info"
)

// Kinds lists every supported kind.
var Kinds = []Kind{
	KindElectrodeState,
	KindImageFrame,
	KindImageTransform,
	KindCapacitanceScan,
	KindRegulatorStatus,
	KindTemperatureStatus,
	KindDeviceInfo,
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ElectrodeState carries the activation flag of every pin, indexed by pin.
type ElectrodeState struct {
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Electrodes []bool    `json:"electrodes"`
}

// ActivePins returns the activated pins in ascending order.
func (s ElectrodeState) ActivePins() []layout.Pin {
	var pins []layout.Pin
	for i, on := range s.Electrodes {
		if on {
			pins = append(pins, layout.Pin(i))
		}
	}
	return pins
}

// ImageFrame is an encoded camera frame (JPEG).
type ImageFrame struct {
	Timestamp time.Time `json:"timestamp,omitzero"`
	Data      []byte    `json:"data"`
}

// ImageTransform is the camera registration: a row-major 3x3 board to image
// transform, or no values when registration is not available.
type ImageTransform struct {
	Timestamp   time.Time `json:"timestamp,omitzero"`
	Transform   []float64 `json:"transform"`
	ImageWidth  int       `json:"imageWidth"`
	ImageHeight int       `json:"imageHeight"`
}

// CapacitanceMeasurement is one electrode's scan result.
type CapacitanceMeasurement struct {
	Capacitance float64 `json:"capacitance"`
	Raw         float64 `json:"raw"`
	DropPresent bool    `json:"dropPresent"`
}

// CapacitanceScan is a bulk scan, indexed by pin.
type CapacitanceScan struct {
	Timestamp    time.Time                `json:"timestamp,omitzero"`
	Measurements []CapacitanceMeasurement `json:"measurements"`
}

// RegulatorStatus reports the high-voltage regulator.
type RegulatorStatus struct {
	Timestamp     time.Time `json:"timestamp,omitzero"`
	Voltage       float64   `json:"voltage"`
	TargetVoltage float64   `json:"targetVoltage"`
}

// TemperatureStatus reports the heater channels.
type TemperatureStatus struct {
	Timestamp    time.Time `json:"timestamp,omitzero"`
	Temperatures []float64 `json:"temperatures"`
	DutyCycles   []float64 `json:"dutyCycles,omitempty"`
}

// DeviceInfo describes the attached device.
type DeviceInfo struct {
	Connected       bool   `json:"connected"`
	SerialNumber    string `json:"serialNumber"`
	SoftwareVersion string `json:"softwareVersion"`
}

// Event is one decoded telemetry frame. Exactly one payload is set, the one
// selected by Kind.
type Event struct {
	Kind Kind `json:"kind"`

	ElectrodeState    *ElectrodeState    `json:"electrodeState,omitempty"`
	ImageFrame        *ImageFrame        `json:"imageFrame,omitempty"`
	ImageTransform    *ImageTransform    `json:"imageTransform,omitempty"`
	CapacitanceScan   *CapacitanceScan   `json:"capacitanceScan,omitempty"`
	RegulatorStatus   *RegulatorStatus   `json:"regulatorStatus,omitempty"`
	TemperatureStatus *TemperatureStatus `json:"temperatureStatus,omitempty"`
	DeviceInfo        *DeviceInfo        `json:"deviceInfo,omitempty"`
}

// Validate checks that exactly the payload named by Kind is set.
func (e Event) Validate() error {
	set := map[Kind]bool{
		KindElectrodeState:    e.ElectrodeState != nil,
		KindImageFrame:        e.ImageFrame != nil,
		KindImageTransform:    e.ImageTransform != nil,
		KindCapacitanceScan:   e.CapacitanceScan != nil,
		KindRegulatorStatus:   e.RegulatorStatus != nil,
		KindTemperatureStatus: e.TemperatureStatus != nil,
		KindDeviceInfo:        e.DeviceInfo != nil,
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, e.Kind)
	}
	for k, ok := range set {
		if ok != (k == e.Kind) {
			return fmt.Errorf("%w: kind %s with %s payload set=%v", ErrInvalidEvent, e.Kind, k, ok)
		}
	}
	return nil
}

// Constructors for each variant.

func NewElectrodeState(p ElectrodeState) Event {
	return Event{Kind: KindElectrodeState, ElectrodeState: &p}
}

func NewImageFrame(p ImageFrame) Event {
	return Event{Kind: KindImageFrame, ImageFrame: &p}
}

func NewImageTransform(p ImageTransform) Event {
	return Event{Kind: KindImageTransform, ImageTransform: &p}
}

func NewCapacitanceScan(p CapacitanceScan) Event {
	return Event{Kind: KindCapacitanceScan, CapacitanceScan: &p}
}

func NewRegulatorStatus(p RegulatorStatus) Event {
	return Event{Kind: KindRegulatorStatus, RegulatorStatus: &p}
}

func NewTemperatureStatus(p TemperatureStatus) Event {
	return Event{Kind: KindTemperatureStatus, TemperatureStatus: &p}
}

func NewDeviceInfo(p DeviceInfo) Event {
	return Event{Kind: KindDeviceInfo, DeviceInfo: &p}
}
