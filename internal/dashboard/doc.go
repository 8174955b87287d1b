// Package dashboard is the operator-facing core: it turns the telemetry
// stream into coalesced State snapshots for the renderer and turns operator
// input into electrode commands for the device.
//
// # Architecture
//
//	stream.Synchronizer ──► Controller.HandleEvent
//	                           │
//	         ┌─────────────────┼──────────────────────┐
//	         ▼                 ▼                      ▼
//	  coalesce.Coalescer   frames.Manager      Relay (MQTT), History (InfluxDB)
//	         │                 │
//	         └──► State ◄──────┘
//	                │
//	                ▼
//	          subscribers (websocket hub)
//
// Electrode state and device info reach the renderer immediately; analogue
// readings are batched to at most one update per render period. Camera
// frames are published immediately and expire when no successor arrives.
//
// # Threading
//
// The Controller belongs to one event loop. HandleEvent, SetLayout, the
// selection methods and Subscribe must run on it. Snapshot, Frame and the
// device command methods are safe from any goroutine; device commands block
// on the network and must not run on the loop.
package dashboard
