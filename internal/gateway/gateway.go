// gateway.go - The authoritative-ledger interface and its error taxonomy.

package gateway

import (
	"context"
	"fmt"
	"math/big"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
)

// Tx is the handle of a submitted ledger transaction.
type Tx struct {
	Hash string `json:"hash"`
}

// CreateLotParams are the inputs of the privileged create_lot operation.
// The id must be the next sequential lot id; the ledger enforces this.
type CreateLotParams struct {
	ID            uint64
	Producer      auction.Identity
	Breed         string
	InitialWeight uint64
	HeadCount     uint64
	MetadataURI   string
	Duration      uint64
}

// Gateway issues read and write operations against the authoritative
// ledger on behalf of one caller identity. Signing and submission mechanics
// live behind the implementation.
type Gateway interface {
	LotCount(ctx context.Context) (uint64, error)
	LotInfo(ctx context.Context, lotID uint64) (*auction.RawLot, error)
	CreateLot(ctx context.Context, p CreateLotParams) (*Tx, error)
	CommitBid(ctx context.Context, lotID uint64, commitment *big.Int) (*Tx, error)
	RevealBid(ctx context.Context, lotID uint64, amount, secret *big.Int) (*Tx, error)
	FinalizeLot(ctx context.Context, lotID uint64) (*Tx, error)
}

// RejectedError means the ledger processed the call and said no (duplicate
// commit, bad window, insufficient privilege). The cause is state, not
// transience; retrying without changing state will fail again.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction rejected: %s", e.Reason)
}

// TransportError means the call may never have reached the ledger. The
// caller may retry; nothing retries automatically.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
