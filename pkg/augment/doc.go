// Package augment provides best-effort context lookups that enrich a chat
// conversation with short reference snippets before it is sent upstream.
//
// Backends implement Searcher. SearchAugmenter turns any Searcher into an
// Augmenter whose Lookup never fails: errors and empty results both yield
// the empty string, and the caller proceeds without extra context.
package augment
