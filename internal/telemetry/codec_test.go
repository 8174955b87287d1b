package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nerrad567/dropdash/internal/layout"
)

var ts = time.Date(2024, 3, 9, 12, 0, 1, 500, time.UTC)

func sampleEvents() []Event {
	return []Event{
		NewElectrodeState(ElectrodeState{Timestamp: ts, Electrodes: []bool{false, true, false, true}}),
		NewImageFrame(ImageFrame{Timestamp: ts, Data: []byte{0xff, 0xd8, 0xff}}),
		NewImageTransform(ImageTransform{
			Timestamp:   ts,
			Transform:   []float64{1, 0, 0.5, 0, 1, -2.25, 0, 0, 1},
			ImageWidth:  640,
			ImageHeight: 480,
		}),
		NewCapacitanceScan(CapacitanceScan{Timestamp: ts, Measurements: []CapacitanceMeasurement{
			{Capacitance: 1.5, Raw: 1200, DropPresent: true},
			{Capacitance: 0.25, Raw: 30},
		}}),
		NewRegulatorStatus(RegulatorStatus{Timestamp: ts, Voltage: 99.5, TargetVoltage: 100}),
		NewTemperatureStatus(TemperatureStatus{Timestamp: ts, Temperatures: []float64{25.5, 37}, DutyCycles: []float64{0.5, 0}}),
		NewDeviceInfo(DeviceInfo{Connected: true, SerialNumber: "PD-0042", SoftwareVersion: "1.4.0"}),
	}
}

func TestProtoCodecEveryKind(t *testing.T) {
	var c ProtoCodec
	for _, want := range sampleEvents() {
		t.Run(string(want.Kind), func(t *testing.T) {
			frame, err := c.Encode(want)
			if err != nil {
				t.Fatalf("Encode error = %v", err)
			}
			got, err := c.Decode(frame)
			if err != nil {
				t.Fatalf("Decode error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProtoCodecUnpackedRepeatedFields(t *testing.T) {
	// Older encoders emit one tag per repeated element.
	var body []byte
	for _, on := range []bool{true, false, true} {
		body = appendBool(body, 2, on)
	}
	frame := protowire.AppendTag(nil, fieldElectrodeState, protowire.BytesType)
	frame = protowire.AppendBytes(frame, body)

	ev, err := ProtoCodec{}.Decode(frame)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if diff := cmp.Diff([]layout.Pin{0, 2}, ev.ElectrodeState.ActivePins()); diff != "" {
		t.Errorf("ActivePins mismatch (-want +got):\n%s", diff)
	}
}

func TestProtoCodecDecodeFailures(t *testing.T) {
	settings := protowire.AppendTag(nil, fieldSettings, protowire.BytesType)
	settings = protowire.AppendBytes(settings, nil)

	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty frame", nil, ErrDecode},
		{"truncated tag", []byte{0x12, 0x05, 0x01}, ErrDecode},
		{"garbage", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, ErrDecode},
		{"settings event", settings, ErrUnsupportedKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (ProtoCodec{}).Decode(tt.frame); !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJSONCodecEveryKind(t *testing.T) {
	var c JSONCodec
	for _, want := range sampleEvents() {
		frame, err := c.Encode(want)
		if err != nil {
			t.Fatalf("%s: Encode error = %v", want.Kind, err)
		}
		got, err := c.Decode(frame)
		if err != nil {
			t.Fatalf("%s: Decode error = %v", want.Kind, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", want.Kind, diff)
		}
	}
}

func TestJSONCodecRejectsMismatchedPayload(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `{`, ErrDecode},
		{"unknown kind", `{"kind":"weather"}`, ErrUnsupportedKind},
		{"missing payload", `{"kind":"device-info"}`, ErrInvalidEvent},
		{"wrong payload", `{"kind":"device-info","regulatorStatus":{"voltage":1}}`, ErrInvalidEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (JSONCodec{}).Decode([]byte(tt.frame)); !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateTwoPayloads(t *testing.T) {
	ev := NewDeviceInfo(DeviceInfo{})
	ev.ImageFrame = &ImageFrame{}
	if err := ev.Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Validate error = %v, want ErrInvalidEvent", err)
	}
}
