package telemetry

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the device's PurpleDropEvent oneof.
const (
	fieldElectrodeLayout    protowire.Number = 1
	fieldElectrodeState     protowire.Number = 2
	fieldImage              protowire.Number = 3
	fieldImageTransform     protowire.Number = 4
	fieldSettings           protowire.Number = 5
	fieldScanCapacitance    protowire.Number = 6
	fieldActiveCapacitance  protowire.Number = 7
	fieldHvRegulator        protowire.Number = 8
	fieldTemperatureControl protowire.Number = 9
	fieldDeviceInfo         protowire.Number = 10
)

// ProtoCodec decodes and encodes the device's protobuf event frames.
// Unknown fields are skipped.
type ProtoCodec struct{}

// Decode parses one PurpleDropEvent frame.
func (ProtoCodec) Decode(frame []byte) (Event, error) {
	var (
		ev    Event
		found bool
		other protowire.Number
	)
	err := eachField(frame, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		var err error
		switch f.num {
		case fieldElectrodeState:
			var p ElectrodeState
			p, err = decodeElectrodeState(f.bytes)
			ev = NewElectrodeState(p)
		case fieldImage:
			var p ImageFrame
			p, err = decodeImage(f.bytes)
			ev = NewImageFrame(p)
		case fieldImageTransform:
			var p ImageTransform
			p, err = decodeImageTransform(f.bytes)
			ev = NewImageTransform(p)
		case fieldScanCapacitance:
			var p CapacitanceScan
			p, err = decodeScanCapacitance(f.bytes)
			ev = NewCapacitanceScan(p)
		case fieldHvRegulator:
			var p RegulatorStatus
			p, err = decodeHvRegulator(f.bytes)
			ev = NewRegulatorStatus(p)
		case fieldTemperatureControl:
			var p TemperatureStatus
			p, err = decodeTemperatureControl(f.bytes)
			ev = NewTemperatureStatus(p)
		case fieldDeviceInfo:
			var p DeviceInfo
			p, err = decodeDeviceInfo(f.bytes)
			ev = NewDeviceInfo(p)
		case fieldElectrodeLayout, fieldSettings, fieldActiveCapacitance:
			other = f.num
			return nil
		default:
			return nil
		}
		// A oneof keeps the last member seen on the wire.
		found = true
		other = 0
		return err
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if other != 0 {
		return Event{}, fmt.Errorf("%w: field %d", ErrUnsupportedKind, other)
	}
	if !found {
		return Event{}, fmt.Errorf("%w: empty event", ErrDecode)
	}
	return ev, nil
}

// Encode renders ev as a PurpleDropEvent frame.
func (ProtoCodec) Encode(ev Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	var num protowire.Number
	var body []byte
	switch ev.Kind {
	case KindElectrodeState:
		num, body = fieldElectrodeState, encodeElectrodeState(*ev.ElectrodeState)
	case KindImageFrame:
		num, body = fieldImage, encodeImage(*ev.ImageFrame)
	case KindImageTransform:
		num, body = fieldImageTransform, encodeImageTransform(*ev.ImageTransform)
	case KindCapacitanceScan:
		num, body = fieldScanCapacitance, encodeScanCapacitance(*ev.CapacitanceScan)
	case KindRegulatorStatus:
		num, body = fieldHvRegulator, encodeHvRegulator(*ev.RegulatorStatus)
	case KindTemperatureStatus:
		num, body = fieldTemperatureControl, encodeTemperatureControl(*ev.TemperatureStatus)
	case KindDeviceInfo:
		num, body = fieldDeviceInfo, encodeDeviceInfo(*ev.DeviceInfo)
	}

	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, body), nil
}

type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed32 uint32
	bytes   []byte
}

func eachField(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) float() float64 {
	return float64(math.Float32frombits(f.fixed32))
}

func (f field) bool() bool {
	return protowire.DecodeBool(f.varint)
}

// floats appends a repeated float field in either packed or unpacked form.
func (f field) floats(dst []float64) ([]float64, error) {
	switch f.typ {
	case protowire.Fixed32Type:
		return append(dst, f.float()), nil
	case protowire.BytesType:
		b := f.bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			dst = append(dst, float64(math.Float32frombits(v)))
			b = b[n:]
		}
		return dst, nil
	}
	return dst, nil
}

// bools appends a repeated bool field in either packed or unpacked form.
func (f field) bools(dst []bool) ([]bool, error) {
	switch f.typ {
	case protowire.VarintType:
		return append(dst, f.bool()), nil
	case protowire.BytesType:
		b := f.bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			dst = append(dst, protowire.DecodeBool(v))
			b = b[n:]
		}
		return dst, nil
	}
	return dst, nil
}

func decodeTimestamp(b []byte) (time.Time, error) {
	var sec, nsec int64
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			sec = int64(f.varint)
		case 2:
			nsec = int64(int32(f.varint))
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if sec == 0 && nsec == 0 {
		return time.Time{}, nil
	}
	return time.Unix(sec, nsec).UTC(), nil
}

func decodeElectrodeState(b []byte) (ElectrodeState, error) {
	var p ElectrodeState
	err := eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.Timestamp, err = decodeTimestamp(f.bytes)
		case 2:
			p.Electrodes, err = f.bools(p.Electrodes)
		}
		return err
	})
	return p, err
}

func decodeImage(b []byte) (ImageFrame, error) {
	var p ImageFrame
	err := eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.Timestamp, err = decodeTimestamp(f.bytes)
		case 2:
			p.Data = append([]byte(nil), f.bytes...)
		}
		return err
	})
	return p, err
}

func decodeImageTransform(b []byte) (ImageTransform, error) {
	var p ImageTransform
	err := eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.Timestamp, err = decodeTimestamp(f.bytes)
		case 2:
			p.Transform, err = f.floats(p.Transform)
		case 4:
			p.ImageWidth = int(int32(f.varint))
		case 5:
			p.ImageHeight = int(int32(f.varint))
		}
		return err
	})
	return p, err
}

func decodeScanCapacitance(b []byte) (CapacitanceScan, error) {
	var p CapacitanceScan
	err := eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.Timestamp, err = decodeTimestamp(f.bytes)
		case 2:
			var m CapacitanceMeasurement
			m, err = decodeMeasurement(f.bytes)
			p.Measurements = append(p.Measurements, m)
		}
		return err
	})
	return p, err
}

func decodeMeasurement(b []byte) (CapacitanceMeasurement, error) {
	var m CapacitanceMeasurement
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			m.Capacitance = f.float()
		case 2:
			m.DropPresent = f.bool()
		case 3:
			m.Raw = f.float()
		}
		return nil
	})
	return m, err
}

func decodeHvRegulator(b []byte) (RegulatorStatus, error) {
	var p RegulatorStatus
	err := eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.Voltage = f.float()
		case 2:
			p.TargetVoltage = f.float()
		case 3:
			p.Timestamp, err = decodeTimestamp(f.bytes)
		}
		return err
	})
	return p, err
}

func decodeTemperatureControl(b []byte) (TemperatureStatus, error) {
	var p TemperatureStatus
	err := eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.Temperatures, err = f.floats(p.Temperatures)
		case 2:
			p.DutyCycles, err = f.floats(p.DutyCycles)
		case 3:
			p.Timestamp, err = decodeTimestamp(f.bytes)
		}
		return err
	})
	return p, err
}

func decodeDeviceInfo(b []byte) (DeviceInfo, error) {
	var p DeviceInfo
	err := eachField(b, func(f field) error {
		switch f.num {
		case 1:
			p.Connected = f.bool()
		case 2:
			p.SerialNumber = string(f.bytes)
		case 3:
			p.SoftwareVersion = string(f.bytes)
		}
		return nil
	})
	return p, err
}

func appendTimestamp(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	var ts []byte
	ts = protowire.AppendTag(ts, 1, protowire.VarintType)
	ts = protowire.AppendVarint(ts, uint64(t.Unix()))
	if ns := t.Nanosecond(); ns != 0 {
		ts = protowire.AppendTag(ts, 2, protowire.VarintType)
		ts = protowire.AppendVarint(ts, uint64(ns))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, ts)
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(float32(v)))
}

func appendPackedFloats(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math.Float32bits(float32(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func encodeElectrodeState(p ElectrodeState) []byte {
	b := appendTimestamp(nil, 1, p.Timestamp)
	if len(p.Electrodes) > 0 {
		packed := make([]byte, 0, len(p.Electrodes))
		for _, on := range p.Electrodes {
			packed = protowire.AppendVarint(packed, protowire.EncodeBool(on))
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func encodeImage(p ImageFrame) []byte {
	b := appendTimestamp(nil, 1, p.Timestamp)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	return protowire.AppendBytes(b, p.Data)
}

func encodeImageTransform(p ImageTransform) []byte {
	b := appendTimestamp(nil, 1, p.Timestamp)
	b = appendPackedFloats(b, 2, p.Transform)
	b = appendVarint(b, 4, uint64(p.ImageWidth))
	return appendVarint(b, 5, uint64(p.ImageHeight))
}

func encodeScanCapacitance(p CapacitanceScan) []byte {
	b := appendTimestamp(nil, 1, p.Timestamp)
	for _, m := range p.Measurements {
		var mb []byte
		mb = appendFloat(mb, 1, m.Capacitance)
		mb = appendBool(mb, 2, m.DropPresent)
		mb = appendFloat(mb, 3, m.Raw)
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, mb)
	}
	return b
}

func encodeHvRegulator(p RegulatorStatus) []byte {
	b := appendFloat(nil, 1, p.Voltage)
	b = appendFloat(b, 2, p.TargetVoltage)
	return appendTimestamp(b, 3, p.Timestamp)
}

func encodeTemperatureControl(p TemperatureStatus) []byte {
	b := appendPackedFloats(nil, 1, p.Temperatures)
	b = appendPackedFloats(b, 2, p.DutyCycles)
	return appendTimestamp(b, 3, p.Timestamp)
}

func encodeDeviceInfo(p DeviceInfo) []byte {
	b := appendBool(nil, 1, p.Connected)
	b = appendString(b, 2, p.SerialNumber)
	return appendString(b, 3, p.SoftwareVersion)
}
