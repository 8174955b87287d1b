package coalesce

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/dropdash/internal/eventloop"
)

type fields map[string]int

func mergeFields(acc, patch fields) fields {
	out := make(fields, len(acc)+len(patch))
	for k, v := range acc {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

type update struct {
	At     time.Duration
	Fields fields
}

type countingRecorder map[string]int

func (r countingRecorder) IncConsumerUpdate(trigger string) { r[trigger]++ }

func newHarness(t *testing.T) (*eventloop.Manual, *Coalescer[fields], *[]update, countingRecorder) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := eventloop.NewManual(start)
	var got []update
	rec := countingRecorder{}
	c := New(m, mergeFields, func(f fields) {
		got = append(got, update{At: m.Now().Sub(start), Fields: f})
	}, WithRecorder[fields](rec))
	return m, c, &got, rec
}

func TestPassiveCoalescesWithinWindow(t *testing.T) {
	m, c, got, rec := newHarness(t)

	c.Passive(fields{"a": 1})
	m.Advance(100 * time.Millisecond)
	c.Passive(fields{"b": 2})
	m.Advance(1000 * time.Millisecond)

	want := []update{{At: 500 * time.Millisecond, Fields: fields{"a": 1, "b": 2}}}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
	if rec["passive"] != 1 {
		t.Errorf("passive updates recorded = %d, want 1", rec["passive"])
	}
}

func TestImmediateFlushesAndCancelsTimer(t *testing.T) {
	m, c, got, rec := newHarness(t)

	c.Passive(fields{"a": 1})
	m.Advance(100 * time.Millisecond)
	c.Passive(fields{"b": 2})
	m.Advance(100 * time.Millisecond)
	c.Immediate(fields{"c": 3})

	if c.Pending() {
		t.Error("flush still pending after Immediate")
	}
	m.Advance(2 * time.Second)

	want := []update{{At: 200 * time.Millisecond, Fields: fields{"a": 1, "b": 2, "c": 3}}}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
	if rec["immediate"] != 1 || rec["passive"] != 0 {
		t.Errorf("recorded = %v, want one immediate", rec)
	}
}

func TestLaterPatchWins(t *testing.T) {
	m, c, got, _ := newHarness(t)

	c.Passive(fields{"a": 1, "b": 1})
	c.Passive(fields{"a": 2})
	m.Advance(500 * time.Millisecond)

	if diff := cmp.Diff(fields{"a": 2, "b": 1}, (*got)[0].Fields); diff != "" {
		t.Errorf("merged fields mismatch (-want +got):\n%s", diff)
	}
}

func TestPassiveUpdatesRespectMinPeriod(t *testing.T) {
	m, c, got, _ := newHarness(t)

	// A burst of 500 events/s for two seconds.
	for i := 0; i < 1000; i++ {
		c.Passive(fields{"n": i})
		m.Advance(2 * time.Millisecond)
	}
	m.Advance(time.Second)

	if len(*got) < 3 {
		t.Fatalf("got %d updates, want at least 3", len(*got))
	}
	for i := 1; i < len(*got); i++ {
		gap := (*got)[i].At - (*got)[i-1].At
		if gap < c.MinRenderPeriod() {
			t.Errorf("updates %d and %d are %v apart, want >= %v", i-1, i, gap, c.MinRenderPeriod())
		}
	}
	if last := (*got)[len(*got)-1].Fields["n"]; last != 999 {
		t.Errorf("last update n = %d, want 999", last)
	}
}

func TestImmediateResetsWindow(t *testing.T) {
	m, c, got, _ := newHarness(t)

	c.Immediate(fields{"x": 1})
	m.Advance(50 * time.Millisecond)
	c.Passive(fields{"y": 1})
	m.Advance(time.Second)

	want := []update{
		{At: 0, Fields: fields{"x": 1}},
		{At: 550 * time.Millisecond, Fields: fields{"y": 1}},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseCancelsPendingFlush(t *testing.T) {
	m, c, got, _ := newHarness(t)

	c.Passive(fields{"a": 1})
	c.Close()
	c.Immediate(fields{"b": 1})
	c.Passive(fields{"c": 1})
	m.Advance(time.Second)

	if len(*got) != 0 {
		t.Errorf("got %d updates after Close, want 0", len(*got))
	}
	if m.Pending() != 0 {
		t.Errorf("Pending timers = %d, want 0", m.Pending())
	}
}

func TestWithMinRenderPeriod(t *testing.T) {
	m := eventloop.NewManual(time.Time{})
	var n int
	c := New(m, mergeFields, func(fields) { n++ }, WithMinRenderPeriod[fields](50*time.Millisecond))

	c.Passive(fields{"a": 1})
	m.Advance(49 * time.Millisecond)
	if n != 0 {
		t.Fatalf("flushed early")
	}
	m.Advance(time.Millisecond)
	if n != 1 {
		t.Errorf("flushes = %d, want 1", n)
	}
}
