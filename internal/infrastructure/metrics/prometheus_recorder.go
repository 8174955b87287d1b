package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dropdash"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	reg               *prom.Registry
	events            *prom.CounterVec
	decodeErrors      prom.Counter
	streamStates      *prom.CounterVec
	reconnects        prom.Counter
	consumerUpdates   *prom.CounterVec
	liveFrames        prom.Gauge
	framesExpired     prom.Counter
	selectionCommands *prom.CounterVec
	rpcDuration       *prom.HistogramVec
	sinkErrors        *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.events = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_events_total",
			Help:      "Telemetry events dispatched by kind",
		}, []string{"kind"})
		pr.decodeErrors = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_decode_errors_total",
			Help:      "Telemetry frames dropped because they could not be decoded",
		})
		pr.streamStates = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stream_state_transitions_total",
			Help:      "Event stream state transitions by target state",
		}, []string{"state"})
		pr.reconnects = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnect_attempts_total",
			Help:      "Event stream reconnect attempts after backoff",
		})
		pr.consumerUpdates = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_updates_total",
			Help:      "State updates applied to the renderer by trigger",
		}, []string{"trigger"})
		pr.liveFrames = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_live",
			Help:      "Camera frame handles currently held",
		})
		pr.framesExpired = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "frames_expired_total",
			Help:      "Camera frames cleared because no newer frame arrived in time",
		})
		pr.selectionCommands = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "selection_commands_total",
			Help:      "Electrode activation requests by source and result",
		}, []string{"source", "result"})
		pr.rpcDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Device RPC call duration",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "result"})
		pr.sinkErrors = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Telemetry sink write failures",
		}, []string{"sink"})
		reg.MustRegister(pr.events, pr.decodeErrors, pr.streamStates, pr.reconnects,
			pr.consumerUpdates, pr.liveFrames, pr.framesExpired, pr.selectionCommands,
			pr.rpcDuration, pr.sinkErrors)
	})
	return pr
}

// Handler serves the recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return HTTPHandler(p.reg)
}

// HTTPHandler returns an http.Handler that serves reg in the Prometheus
// exposition format.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) IncEvent(kind string) {
	if p == nil || p.events == nil {
		return
	}
	p.events.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncDecodeError() {
	if p == nil || p.decodeErrors == nil {
		return
	}
	p.decodeErrors.Inc()
}

func (p *PrometheusRecorder) IncStreamState(state string) {
	if p == nil || p.streamStates == nil {
		return
	}
	p.streamStates.WithLabelValues(state).Inc()
}

func (p *PrometheusRecorder) IncReconnectAttempt() {
	if p == nil || p.reconnects == nil {
		return
	}
	p.reconnects.Inc()
}

func (p *PrometheusRecorder) IncConsumerUpdate(trigger string) {
	if p == nil || p.consumerUpdates == nil {
		return
	}
	p.consumerUpdates.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) SetLiveFrames(n int) {
	if p == nil || p.liveFrames == nil {
		return
	}
	p.liveFrames.Set(float64(n))
}

func (p *PrometheusRecorder) IncFramesExpired() {
	if p == nil || p.framesExpired == nil {
		return
	}
	p.framesExpired.Inc()
}

func (p *PrometheusRecorder) IncSelectionCommand(source, result string) {
	if p == nil || p.selectionCommands == nil {
		return
	}
	p.selectionCommands.WithLabelValues(source, result).Inc()
}

func (p *PrometheusRecorder) ObserveRPC(method string, d time.Duration, success bool) {
	if p == nil || p.rpcDuration == nil {
		return
	}
	res := ResultFailed
	if success {
		res = ResultSuccess
	}
	p.rpcDuration.WithLabelValues(method, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSinkError(sink string) {
	if p == nil || p.sinkErrors == nil {
		return
	}
	p.sinkErrors.WithLabelValues(sink).Inc()
}
