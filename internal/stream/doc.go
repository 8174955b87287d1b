// Package stream maintains the device event stream.
//
// A Synchronizer owns one transport connection at a time and moves through
//
//	Connecting ──▶ Open ──▶ ClosedRetrying ──(backoff)──▶ Connecting
//	     │           │
//	     └───────────┴──────▶ ClosedTerminal   (Close only)
//
// Inbound frames are decoded with a telemetry.Codec and dispatched, in
// arrival order, to a single Handler. Frames that fail to decode are
// logged and dropped; the connection stays up. An unrequested close or
// dial failure schedules a reconnect after a fixed backoff. Close is the
// only way into ClosedTerminal: it cancels the pending reconnect, aborts
// an in-flight dial and closes the live connection.
//
// All state lives on the eventloop.Scheduler thread. Dialing and reading
// happen on helper goroutines that only hand results back through Post.
// Every connection attempt carries a generation number, so results from
// an attempt that has since been abandoned are discarded.
package stream
