// Package canvas defines the graph snapshot a workflow run operates on:
// nodes with a type tag and a type-specific payload, and directed edges.
//
// Node payloads are a closed set of structs implementing Payload. JSON
// decoding picks the variant from the node's "type" field, so every consumer
// switches over concrete payload types instead of probing untyped maps.
package canvas
