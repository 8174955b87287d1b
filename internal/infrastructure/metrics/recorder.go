package metrics

import "time"

// Result labels for command outcomes.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Recorder defines every observability hook used by the dashboard core.
type Recorder interface {
	// Telemetry stream.
	IncEvent(kind string)
	IncDecodeError()
	IncStreamState(state string)
	IncReconnectAttempt()

	// Consumer updates by trigger: immediate or passive.
	IncConsumerUpdate(trigger string)

	// Frame handles.
	SetLiveFrames(n int)
	IncFramesExpired()

	// Device commands.
	IncSelectionCommand(source, result string)
	ObserveRPC(method string, d time.Duration, success bool)

	// Telemetry sinks (mqtt, influxdb).
	IncSinkError(sink string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncEvent(string)                        {}
func (NoopRecorder) IncDecodeError()                        {}
func (NoopRecorder) IncStreamState(string)                  {}
func (NoopRecorder) IncReconnectAttempt()                   {}
func (NoopRecorder) IncConsumerUpdate(string)               {}
func (NoopRecorder) SetLiveFrames(int)                      {}
func (NoopRecorder) IncFramesExpired()                      {}
func (NoopRecorder) IncSelectionCommand(string, string)     {}
func (NoopRecorder) ObserveRPC(string, time.Duration, bool) {}
func (NoopRecorder) IncSinkError(string)                    {}
