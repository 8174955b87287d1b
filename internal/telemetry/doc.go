// Package telemetry defines the closed set of device telemetry events and
// the codecs that turn raw event-stream frames into them.
//
// Event is a tagged union: Kind says which single payload pointer is set.
// Consumers switch on Kind exhaustively rather than probing payloads.
//
// Two codecs are provided. ProtoCodec reads the device's native protobuf
// framing (a PurpleDropEvent message whose oneof carries the payload).
// JSONCodec reads {"kind": ..., "<payload>": {...}} objects and is used by
// tooling and the websocket fan-out.
package telemetry
