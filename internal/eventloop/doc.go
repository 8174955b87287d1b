// Package eventloop provides the single logical thread that every
// dropdash core component runs on.
//
// All state transitions of the stream synchronizer, the coalescer, the
// frame manager and the selection controller happen inside tasks run by a
// Scheduler. Tasks run one at a time and to completion, so components hold
// no locks of their own. The only ways work enters the loop are:
//
//   - Post: a transport goroutine hands over an inbound frame, or an HTTP
//     handler hands over an operator action.
//   - AfterFunc: a reconnect, flush or expiry timer fires. The callback is
//     posted back onto the loop rather than run on the timer goroutine.
//
// A Timer that is stopped before its task runs never runs, even when the
// underlying clock timer has already fired.
//
// Loop is the production implementation, driven by a clockwork.Clock.
// Manual is a deterministic virtual-time scheduler for tests.
package eventloop
