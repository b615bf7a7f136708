// Package transport defines the handler interfaces and middleware chain for
// the chatrelay HTTP layer.
//
// The transport layer bridges browser clients and the relay, chat and
// search services. It decodes incoming requests into the types defined in
// pkg/api, dispatches them, and writes either a plain-text token stream or
// a JSON document back to the client.
//
// # Handler Interfaces
//
//   - ChatStreamer relays a chat request to the model server and writes
//     content fragments as they arrive.
//   - ChatService manages persisted conversation threads.
//   - SearchService answers free-text knowledge lookups.
//   - HealthChecker reports whether the backing store is usable.
//
// The ResponseWriter interface is what a ChatStreamer writes to. It
// abstracts the plain-text stream so that handlers flush fragments without
// knowing about net/http.
//
// # Middleware
//
// The middleware chain wraps ChatStreamer with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
package transport
