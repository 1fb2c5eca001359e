// Package bidder orchestrates a single account's participation in sealed-bid
// lots: committing with a fresh secret, revealing, finalization for
// privileged identities, and winner proof generation. It composes the
// commitment engine, the lifecycle state machine, the participation wallet,
// the bid vault, and a ledger gateway, and it enforces the client-side
// preconditions before any transaction is dispatched.
package bidder
