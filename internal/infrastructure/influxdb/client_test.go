package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/dropdash/internal/infrastructure/config"
)

// fakeInflux serves /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu    sync.Mutex
	lines []string
	fail  bool
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		if f.fail {
			http.Error(w, `{"code":"invalid","message":"bucket not found"}`, http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if l != "" {
				f.lines = append(f.lines, l)
			}
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func connect(t *testing.T, f *fakeInflux) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     srv.URL,
		Token:   "t",
		Org:     "lab",
		Bucket:  "telemetry",
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnect_Disabled(t *testing.T) {
	if _, err := Connect(config.InfluxDBConfig{Enabled: false}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Connect(config.InfluxDBConfig{Enabled: true, URL: url})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteTelemetry(t *testing.T) {
	f := &fakeInflux{}
	c := connect(t, f)
	ts := time.Unix(1700000000, 0)

	c.WriteCapacitance(ts, []CapacitanceSample{
		{Pin: 3, Capacitance: 1.5, Raw: 200, DropPresent: true},
	})
	c.WriteRegulator(ts, 119.5, 120)
	c.WriteTemperature(ts, []float64{25.5, 30}, []float64{0.5})
	c.WriteActiveElectrodes(ts, 4)
	c.Flush()

	got := strings.Join(f.written(), "\n")
	for _, want := range []string{
		"capacitance,pin=3 capacitance=1.5,drop_present=true,raw=200 1700000000000000000",
		"regulator target_voltage=120,voltage=119.5 1700000000000000000",
		"temperature,channel=0 celsius=25.5,duty_cycle=0.5 1700000000000000000",
		"temperature,channel=1 celsius=30 1700000000000000000",
		"electrodes active=4i 1700000000000000000",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing line %q in:\n%s", want, got)
		}
	}

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	f := &fakeInflux{fail: true}
	c := connect(t, f)

	errs := make(chan error, 1)
	c.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	c.WriteRegulator(time.Now(), 1, 1)
	c.Flush()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error not reported")
	}
}

func TestClose(t *testing.T) {
	c := connect(t, &fakeInflux{})
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
	// Writes and flushes after Close are ignored.
	c.WriteRegulator(time.Now(), 1, 1)
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}
