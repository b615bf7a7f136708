// Package relay turns a chat request into a plain-text response stream
// sourced from an upstream model server's NDJSON protocol.
//
// A relay request moves through AwaitingConnection, Streaming and then
// Complete or Failed. Failed is reached only when the upstream cannot be
// reached or rejects the request; once bytes are flowing, read errors end
// the stream as Complete.
//
// Upstream chunks are reassembled into lines by a LineAssembler, each line
// is decoded as one frame, and the frame's content fragment is written to
// the client immediately. Malformed lines are skipped.
package relay
