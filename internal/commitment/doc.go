// Package commitment implements the bid commitment scheme for the sealed-bid
// lot auction protocol.
//
// A commitment binds a bidder's secret, bid amount, lot id and identity into
// a single field element using the MiMC algebraic hash over the bw6-761
// scalar field. The same hash is recomputed in-circuit by the winning-bid
// proof (circuit.go), so the native and in-circuit digests must never
// diverge.
//
// The canonical binding scheme is
//
//	commitment = MiMC(secret, amountLow, amountHigh, lotID, bidder)
//
// where amountLow/amountHigh are the 128-bit limbs of the amount, low limb
// first. ComputeSimple provides the legacy two-input variant that omits the
// lot id and bidder identity; commitments produced by one scheme never
// verify against the other.
//
// All functions here are pure: no state, no I/O, no randomness. Choosing the
// secret is the caller's job.
package commitment
