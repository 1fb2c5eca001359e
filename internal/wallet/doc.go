// Package wallet is the bidder's durable local store.
//
// It keeps two things per connected account, both keyed by the normalized
// account identity and both surviving process restarts:
//
//   - the participation ledger: per-lot monotonic booleans recording whether
//     the account has participated (committed and revealed), paid, and
//     generated its winner proof;
//   - the secret vault: the retained bid commitments {secret, amount,
//     bidder, commitment} per lot. Losing a secret before reveal forfeits
//     the bid, so vault writes are synced to disk before the commit
//     transaction is ever dispatched.
//
// Records are created lazily, never deleted, and never garbage-collected;
// archival-keyed eviction is a known future concern, not a defect.
// Unparseable files are treated as absent (all-false, no secrets) but are
// logged distinctly so corruption is diagnosable.
package wallet
