package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/dropdash/internal/layout"
)

type captured struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// device answers every request with reply and records what it received.
func device(t *testing.T, reply func(req captured) any) (*Client, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req captured
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		got = append(got, req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply(req))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/rpc", srv.Client()), &got
}

func result(req captured, v any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": v}
}

func TestSetElectrodePinsWrapsPinList(t *testing.T) {
	c, got := device(t, func(req captured) any { return result(req, nil) })

	if err := c.SetElectrodePins(context.Background(), []layout.Pin{0, 1, 2, 3}); err != nil {
		t.Fatalf("SetElectrodePins() error = %v", err)
	}
	if err := c.SetElectrodePins(context.Background(), nil); err != nil {
		t.Fatalf("SetElectrodePins(nil) error = %v", err)
	}

	reqs := *got
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].JSONRPC != "2.0" || reqs[0].Method != MethodSetElectrodePins {
		t.Errorf("request = %+v", reqs[0])
	}
	if reqs[0].ID == "" || reqs[0].ID == reqs[1].ID {
		t.Errorf("request IDs not unique: %q %q", reqs[0].ID, reqs[1].ID)
	}
	if s := string(reqs[0].Params[0]); s != "[0,1,2,3]" {
		t.Errorf("params[0] = %s, want [0,1,2,3]", s)
	}
	if s := string(reqs[1].Params[0]); s != "[]" {
		t.Errorf("empty params[0] = %s, want []", s)
	}
}

func TestParameters(t *testing.T) {
	c, got := device(t, func(req captured) any {
		switch req.Method {
		case MethodGetParameterDefinitions:
			return result(req, map[string]any{"parameters": []map[string]any{
				{"id": 10, "name": "HV target", "description": "volts", "type": "float"},
				{"id": 11, "name": "Scan period", "description": "ms", "type": "int"},
			}})
		case MethodGetParameter:
			return result(req, 120.5)
		default:
			return result(req, nil)
		}
	})
	ctx := context.Background()

	defs, err := c.GetParameterDefinitions(ctx)
	if err != nil {
		t.Fatalf("GetParameterDefinitions() error = %v", err)
	}
	want := []ParameterDefinition{
		{ID: 10, Name: "HV target", Description: "volts", Type: "float"},
		{ID: 11, Name: "Scan period", Description: "ms", Type: "int"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("definitions mismatch (-want +got):\n%s", diff)
	}
	if !defs[0].IsFloat() || defs[1].IsFloat() {
		t.Error("IsFloat wrong")
	}

	v, err := c.GetParameter(ctx, 10)
	if err != nil || v != 120.5 {
		t.Errorf("GetParameter() = %v, %v; want 120.5", v, err)
	}
	if err := c.SetParameter(ctx, 10, 100); err != nil {
		t.Fatalf("SetParameter() error = %v", err)
	}
	if err := c.SaveParameters(ctx); err != nil {
		t.Fatalf("SaveParameters() error = %v", err)
	}

	last := (*got)[len(*got)-1]
	if last.Method != MethodSetParameter || string(last.Params[0]) != "4294967295" || string(last.Params[1]) != "1" {
		t.Errorf("save request = %s %s", last.Method, last.Params)
	}
}

func TestGetDeviceInfo(t *testing.T) {
	c, _ := device(t, func(req captured) any {
		return result(req, map[string]any{"connected": true, "serial_number": "PD-7", "software_version": "1.2"})
	})

	info, err := c.GetDeviceInfo(context.Background())
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v", err)
	}
	if diff := cmp.Diff(DeviceInfo{Connected: true, SerialNumber: "PD-7", SoftwareVersion: "1.2"}, info); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoteError(t *testing.T) {
	c, _ := device(t, func(req captured) any {
		return map[string]any{"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{"code": -32000, "message": "No response from purpledrop"}}
	})

	err := c.CalibrateCapacitanceOffset(context.Background())
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remote.Code != -32000 || remote.Method != MethodCalibrateCapacitanceOffset {
		t.Errorf("remote = %+v", remote)
	}
}

func TestHTTPFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/garbage":
			_, _ = w.Write([]byte("<html>"))
		default:
			http.Error(w, "device offline", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	if err := NewClient(srv.URL+"/rpc", nil).Call(ctx, "x", nil, nil); !errors.Is(err, ErrStatus) {
		t.Errorf("503 error = %v, want ErrStatus", err)
	}
	if err := NewClient(srv.URL+"/garbage", nil).Call(ctx, "x", nil, nil); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("garbage error = %v, want ErrMalformedResponse", err)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	if err := NewClient(url, nil).Call(ctx, "x", nil, nil); !errors.Is(err, ErrTransport) {
		t.Errorf("closed server error = %v, want ErrTransport", err)
	}
}
