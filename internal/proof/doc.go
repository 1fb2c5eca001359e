// Package proof generates and requests zero-knowledge proofs that a
// finalized lot's winning bid matches its on-ledger commitment.
//
// A Generator can be a local Groth16 prover or an HTTP client talking to a
// remote proving service; both consume the same Request and return opaque
// calldata ready for settlement.
package proof
