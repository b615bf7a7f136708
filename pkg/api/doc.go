// Package api defines the wire types shared by the chatrelay packages.
//
// The types mirror the JSON exchanged with the browser front end: chat
// requests carrying an ordered conversation, persisted chats and messages,
// and the structured error envelope returned by the JSON endpoints.
//
// Core types:
//   - [ChatMessage]: a single role/content pair in conversation order
//   - [ChatRequest]: inbound request for the streaming relay route
//   - [Chat] and [StoredMessage]: persisted conversation records
//   - [APIError]: structured error with type, code, param, and message
//
// The package performs no I/O.
package api
