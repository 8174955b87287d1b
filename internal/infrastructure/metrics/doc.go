// Package metrics records dashboard core health counters.
//
// Components depend on narrow recorder interfaces declared in their own
// packages. Recorder here is the union of those interfaces, so a single
// PrometheusRecorder can be handed to every component, and NoopRecorder is
// the default when metrics are disabled.
//
//	stream.Synchronizer ──┐
//	coalesce.Coalescer ───┤
//	frames.Manager ───────┼──► Recorder ──► PrometheusRecorder ──► /metrics
//	dashboard.Controller ─┘
package metrics
