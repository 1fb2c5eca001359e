// Package auction defines the lot data model and the auction lifecycle for
// the sealed-bid lot protocol.
//
// A Lot is a read-only projection of the authoritative ledger's state; this
// package parses the gateway's loosely typed wire form into the strict
// record, classifies a lot against the sampled clock, and gates the
// commit/reveal/finalize operations on the resulting state. It also carries
// the bidder identity type (normalized field values) and the configured
// privileged-identity policy for owner-gated operations.
package auction
