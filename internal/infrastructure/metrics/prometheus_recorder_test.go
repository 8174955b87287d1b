package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/dropdash/internal/coalesce"
	"github.com/nerrad567/dropdash/internal/frames"
	"github.com/nerrad567/dropdash/internal/stream"
)

// The recorder must satisfy every component's narrow interface.
var (
	_ stream.Recorder   = (*PrometheusRecorder)(nil)
	_ coalesce.Recorder = (*PrometheusRecorder)(nil)
	_ frames.Recorder   = (*PrometheusRecorder)(nil)
	_ Recorder          = NoopRecorder{}
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncEvent("electrode-state")
	pr.IncEvent("electrode-state")
	pr.IncDecodeError()
	pr.IncStreamState("open")
	pr.IncReconnectAttempt()
	pr.IncConsumerUpdate("passive")
	pr.SetLiveFrames(1)
	pr.IncFramesExpired()
	pr.IncSelectionCommand("click", ResultSuccess)
	pr.ObserveRPC("set_electrode_pins", 20*time.Millisecond, true)
	pr.IncSinkError("mqtt")

	if got := testutil.ToFloat64(pr.events.WithLabelValues("electrode-state")); got != 2 {
		t.Errorf("events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pr.liveFrames); got != 1 {
		t.Errorf("live frames = %v, want 1", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 10 {
		t.Errorf("gathered %d families, want 10", len(mfs))
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncEvent("x")
	pr.SetLiveFrames(3)
	pr.ObserveRPC("x", time.Second, false)
}

func TestHandlerServesMetrics(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncReconnectAttempt()

	rec := httptest.NewRecorder()
	pr.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "dropdash_stream_reconnect_attempts_total 1") {
		t.Errorf("metrics output missing reconnect counter:\n%s", body)
	}
}
