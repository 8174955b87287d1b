package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := run(ctx, []string{"--config", "/nonexistent/path/config.yaml"}, &out)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config failure", err)
	}
}

// TestRun_UnknownCommand verifies argument errors are returned, not fatal.
func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"frobnicate"}, &out); err == nil {
		t.Fatal("run() should fail with an unknown command")
	}
}

func TestBoardCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	doc := `{"layout": {"grid": [[0, 1], [2, 3]]}, "registration": [2, 0, 10, 0, 2, 20, 0, 0, 1]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"board", path}, &out); err != nil {
		t.Fatalf("board error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"electrodes: 4",
		"grids: 1",
		"extent: x=[0, 2] y=[0, 2]",
		"registration:",
		"PIN",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if lines := strings.Count(got, "\n"); lines != 9 {
		t.Errorf("output has %d lines, want 9:\n%s", lines, got)
	}
}

func TestBoardCommand_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	if err := os.WriteFile(path, []byte(`{"layout": `), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"board", path}, &out); err == nil {
		t.Fatal("board should fail on a truncated document")
	}
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DROPDASH_DATABASE_PATH", filepath.Join(t.TempDir(), "dropdash.db"))
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, []string{"migrate", "--status"}, &out); err != nil {
		t.Fatalf("migrate --status error = %v", err)
	}
	if !strings.Contains(out.String(), "pending  0001") {
		t.Errorf("status output = %q, want pending 0001", out.String())
	}

	out.Reset()
	if err := run(ctx, []string{"migrate"}, &out); err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if !strings.Contains(out.String(), "applied  0001") {
		t.Errorf("migrate output = %q, want applied 0001", out.String())
	}

	out.Reset()
	if err := run(ctx, []string{"migrate", "--down"}, &out); err != nil {
		t.Fatalf("migrate --down error = %v", err)
	}
	if !strings.Contains(out.String(), "pending  0001") {
		t.Errorf("down output = %q, want pending 0001", out.String())
	}
}

func TestBoardCommand_FiducialReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	doc := `{
  "layout": {"grid": [[0, 1], [2, 3]], "extra": []},
  "registration": {
    "fiducials": [{"corners": [[0, 0], [1, 0], [1, 1], [0, 1]], "label": "A"}],
    "electrodes": [{"grid": [0, 0], "image": [10, 10]}]
  }
}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"board", path}, &out); err != nil {
		t.Fatalf("board error = %v", err)
	}
	if !strings.Contains(out.String(), "reference: 1 fiducials, 1 control points") {
		t.Errorf("output missing reference summary:\n%s", out.String())
	}
	if strings.Contains(out.String(), "registration:") {
		t.Errorf("fiducial reference printed as a matrix:\n%s", out.String())
	}
}
