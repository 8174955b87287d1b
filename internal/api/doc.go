// Package api implements the HTTP REST API and WebSocket server for the
// dashboard.
//
// This package provides:
//   - REST endpoints for the dashboard state, board layout, camera frame,
//     electrode selection, device parameters and the stored UI arrangement
//   - WebSocket hub that pushes every coalesced state update to renderers
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus exposition on /metrics
//
// # Architecture
//
// Renderers read the state and draw the board; operator input comes back as
// selection requests. Handlers that touch the dashboard core hop onto the
// event loop with Executor.Do, then issue device commands from the request
// goroutine so the loop never waits on the network.
//
// # Graceful Degradation
//
// The server operates without a device command channel or a database:
// reads and WebSocket connections work, commands answer 503.
package api
