// Package gateway is the boundary to the authoritative ledger that stores
// lots and enforces the commit/reveal rules.
//
// The core only ever talks to the Gateway interface. Two implementations
// ship here: an HTTP JSON client for a real ledger endpoint, and an
// in-memory chain that enforces the same authoritative rules for tests and
// the demo scenario. Rejections by the ledger (RejectedError) are state,
// never retried automatically; transport failures (TransportError) are
// transient and may be retried by the caller.
package gateway
