// Package panel serves the browser renderer for the dashboard.
//
// The renderer is a single page embedded into the binary with go:embed. It
// draws the board from GET /api/v1/layout, listens for "state" events on
// /api/v1/ws, and sends operator clicks and key presses to the selection
// endpoints. It holds no state of its own beyond the last snapshot.
//
// Unknown paths fall back to index.html. Assets are served with no-cache
// headers so a rebuilt binary is picked up on reload.
package panel
