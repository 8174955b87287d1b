package dashboard

import (
	"context"
	"time"

	"github.com/nerrad567/dropdash/internal/infrastructure/influxdb"
	"github.com/nerrad567/dropdash/internal/infrastructure/mqtt"
	"github.com/nerrad567/dropdash/internal/selection"
	"github.com/nerrad567/dropdash/internal/telemetry"
)

// Sink names used in metrics and logs.
const (
	SinkMQTT     = "mqtt"
	SinkInfluxDB = "influxdb"
)

// DefaultRelayQueue bounds the relay backlog.
const DefaultRelayQueue = 256

// Sink receives every decoded event on the loop thread. Implementations
// must not block.
type Sink interface {
	Record(ev telemetry.Event)
}

// SelectionSink is a Sink that also wants operator selection requests.
type SelectionSink interface {
	Selection(source string, set selection.Set)
}

// Publisher is the part of mqtt.Client the relay needs.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type relayMessage struct {
	topic    string
	payload  any
	retained bool
}

// Relay forwards telemetry and selection requests to MQTT. Record and
// Selection enqueue; Run publishes. A full queue drops the message.
type Relay struct {
	pub    Publisher
	topics mqtt.Topics
	queue  chan relayMessage
	onDrop func(err error)
	logger Logger
}

// NewRelay creates a relay with a queue of size messages.
func NewRelay(pub Publisher, topics mqtt.Topics, size int) *Relay {
	if size <= 0 {
		size = DefaultRelayQueue
	}
	return &Relay{
		pub:    pub,
		topics: topics,
		queue:  make(chan relayMessage, size),
		onDrop: func(error) {},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger.
func (r *Relay) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// OnError registers a callback for dropped or failed publishes.
func (r *Relay) OnError(fn func(err error)) {
	r.onDrop = fn
}

// Record queues ev. Image frames are not relayed, only their metadata.
func (r *Relay) Record(ev telemetry.Event) {
	var payload any
	switch ev.Kind {
	case telemetry.KindImageFrame:
		payload = struct {
			Timestamp time.Time `json:"timestamp,omitzero"`
			Size      int       `json:"size"`
		}{ev.ImageFrame.Timestamp, len(ev.ImageFrame.Data)}
	default:
		payload = ev
	}
	r.enqueue(relayMessage{
		topic:    r.topics.Telemetry(string(ev.Kind)),
		payload:  payload,
		retained: ev.Kind == telemetry.KindDeviceInfo,
	})
}

// Selection queues an activation request issued by the operator.
func (r *Relay) Selection(source string, set selection.Set) {
	r.enqueue(relayMessage{
		topic: r.topics.Selection(),
		payload: struct {
			Source string        `json:"source"`
			Pins   selection.Set `json:"pins"`
		}{source, set},
	})
}

func (r *Relay) enqueue(m relayMessage) {
	select {
	case r.queue <- m:
	default:
		r.onDrop(errRelayFull)
	}
}

// Run publishes queued messages until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-r.queue:
			if err := r.pub.PublishJSON(m.topic, m.payload, m.retained); err != nil {
				r.logger.Warn("relay publish failed", "topic", m.topic, "error", err)
				r.onDrop(err)
			}
		}
	}
}

// HistoryWriter is the part of influxdb.Client the history sink needs.
type HistoryWriter interface {
	WriteCapacitance(ts time.Time, samples []influxdb.CapacitanceSample)
	WriteRegulator(ts time.Time, voltage, target float64)
	WriteTemperature(ts time.Time, temps, dutyCycles []float64)
	WriteActiveElectrodes(ts time.Time, active int)
}

// History writes analogue telemetry to a time-series database.
type History struct {
	w HistoryWriter
}

// NewHistory wraps w.
func NewHistory(w HistoryWriter) *History {
	return &History{w: w}
}

// Record writes the measurements carried by ev. Frames, transforms and
// device info have no history.
func (h *History) Record(ev telemetry.Event) {
	switch ev.Kind {
	case telemetry.KindElectrodeState:
		p := ev.ElectrodeState
		h.w.WriteActiveElectrodes(p.Timestamp, len(p.ActivePins()))
	case telemetry.KindCapacitanceScan:
		p := ev.CapacitanceScan
		samples := make([]influxdb.CapacitanceSample, len(p.Measurements))
		for i, m := range p.Measurements {
			samples[i] = influxdb.CapacitanceSample{
				Pin:         i,
				Capacitance: m.Capacitance,
				Raw:         m.Raw,
				DropPresent: m.DropPresent,
			}
		}
		h.w.WriteCapacitance(p.Timestamp, samples)
	case telemetry.KindRegulatorStatus:
		p := ev.RegulatorStatus
		h.w.WriteRegulator(p.Timestamp, p.Voltage, p.TargetVoltage)
	case telemetry.KindTemperatureStatus:
		p := ev.TemperatureStatus
		h.w.WriteTemperature(p.Timestamp, p.Temperatures, p.DutyCycles)
	case telemetry.KindImageFrame, telemetry.KindImageTransform, telemetry.KindDeviceInfo:
	}
}
