package proof

import (
	"context"
	"fmt"
	"math/big"
)

// Request carries everything a prover needs to attest that the winning bid
// matches the commitment recorded for the lot. Numeric values travel as
// decimal strings so the wire format is independent of integer width.
type Request struct {
	Amount     string `json:"amount"`
	Secret     string `json:"secret"`
	LotID      uint64 `json:"lot_id"`
	Bidder     string `json:"bidder_identity"`
	Commitment string `json:"commitment"`
}

// NewRequest encodes the in-memory bid data as a Request.
func NewRequest(amount, secret *big.Int, lotID uint64, bidder, commitment *big.Int) *Request {
	return &Request{
		Amount:     amount.String(),
		Secret:     secret.String(),
		LotID:      lotID,
		Bidder:     bidder.String(),
		Commitment: commitment.String(),
	}
}

// Response is the proving service's reply. Calldata is set on success,
// Error on failure.
type Response struct {
	Success  bool   `json:"success"`
	Calldata []byte `json:"calldata,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Generator produces settlement calldata for a winning bid.
type Generator interface {
	Generate(ctx context.Context, req *Request) ([]byte, error)
}

// ServiceError reports a failed proof attempt. Every failure mode of a
// generator, whether transport, rejection, or proving, surfaces as one.
type ServiceError struct {
	Reason string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("proof service: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("proof service: %s", e.Reason)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// parseField parses a decimal string into a big.Int, rejecting garbage.
func parseField(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, &ServiceError{Reason: fmt.Sprintf("invalid %s %q", name, s)}
	}
	return v, nil
}
