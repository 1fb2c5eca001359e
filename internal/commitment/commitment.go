// commitment.go - Bid commitment computation and reveal-time verification.
//
// Implements the canonical five-input binding scheme and the legacy
// two-input variant using the native MiMC hash over the bw6-761 scalar
// field, matching the in-circuit recomputation in circuit.go.

package commitment

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
)

// LimbBits is the width of one amount limb. Amounts are split into a low and
// a high limb of this width before hashing; the splitting order (low first)
// is part of the binding contract.
const LimbBits = 128

var (
	limbShift = new(big.Int).Lsh(big.NewInt(1), LimbBits)
	maxAmount = new(big.Int).Lsh(big.NewInt(1), 2*LimbBits)
)

// MalformedInputError reports an input outside the commitment domain.
// Out-of-range values fail fast; they are never truncated or submitted.
type MalformedInputError struct {
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed commitment input %s: %s", e.Field, e.Reason)
}

// Modulus returns the order of the hash field. Secrets and bidder identities
// must be strictly below it.
func Modulus() *big.Int {
	return fr.Modulus()
}

// SplitAmount decomposes an amount into 128-bit low and high limbs.
// Returns MalformedInputError if the amount is negative or does not fit in
// two limbs.
func SplitAmount(amount *big.Int) (low, high *big.Int, err error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, nil, &MalformedInputError{Field: "amount", Reason: "must be a non-negative integer"}
	}
	if amount.Cmp(maxAmount) >= 0 {
		return nil, nil, &MalformedInputError{Field: "amount", Reason: "exceeds 256 bits"}
	}
	low = new(big.Int).And(amount, new(big.Int).Sub(limbShift, big.NewInt(1)))
	high = new(big.Int).Rsh(amount, LimbBits)
	return low, high, nil
}

// JoinLimbs reconstructs an amount from its low and high limbs:
// low + high<<128.
func JoinLimbs(low, high *big.Int) *big.Int {
	v := new(big.Int).Lsh(high, LimbBits)
	return v.Add(v, low)
}

// Compute derives the canonical bid commitment binding the secret, amount,
// lot id and bidder identity:
//
//	MiMC(secret, amountLow, amountHigh, lotID, bidder)
//
// It is pure and deterministic; identical inputs always yield the same
// output. Inputs outside the domain fail with MalformedInputError.
func Compute(secret, amount *big.Int, lotID uint64, bidder *big.Int) (*big.Int, error) {
	if err := checkFieldValue("secret", secret); err != nil {
		return nil, err
	}
	if lotID == 0 {
		return nil, &MalformedInputError{Field: "lot_id", Reason: "must be positive"}
	}
	if err := checkFieldValue("bidder", bidder); err != nil {
		return nil, err
	}
	low, high, err := SplitAmount(amount)
	if err != nil {
		return nil, err
	}

	h := mimcNative.NewMiMC()
	writeElement(h, secret)
	writeElement(h, low)
	writeElement(h, high)
	writeElement(h, new(big.Int).SetUint64(lotID))
	writeElement(h, bidder)
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// ComputeSimple derives the legacy two-input commitment used before a bidder
// identity is bound into the hash:
//
//	MiMC(amountLow, amountHigh, secret)
//
// A commitment produced here will NOT verify against the canonical scheme;
// reveal verification and the winning-bid circuit only accept Compute.
func ComputeSimple(amount, secret *big.Int) (*big.Int, error) {
	if err := checkFieldValue("secret", secret); err != nil {
		return nil, err
	}
	low, high, err := SplitAmount(amount)
	if err != nil {
		return nil, err
	}

	h := mimcNative.NewMiMC()
	writeElement(h, low)
	writeElement(h, high)
	writeElement(h, secret)
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// Verify recomputes the canonical commitment from revealed values and
// compares it with the committed one. A mismatch is not an error: it is a
// legitimate false result (wrong secret, wrong amount, or a commitment built
// with the simple scheme).
func Verify(committed, secret, amount *big.Int, lotID uint64, bidder *big.Int) (bool, error) {
	recomputed, err := Compute(secret, amount, lotID, bidder)
	if err != nil {
		return false, err
	}
	return recomputed.Cmp(committed) == 0, nil
}

// checkFieldValue rejects values outside [0, Modulus).
func checkFieldValue(field string, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return &MalformedInputError{Field: field, Reason: "must be a non-negative integer"}
	}
	if v.Cmp(fr.Modulus()) >= 0 {
		return &MalformedInputError{Field: field, Reason: "not representable in the hash field"}
	}
	return nil
}

// writeElement feeds one canonical field element into the hasher. The MiMC
// digest only accepts whole blocks of canonical element bytes, so every
// input is reduced to its fr encoding first. Callers must have validated the
// value against the field modulus already.
func writeElement(h interface{ Write([]byte) (int, error) }, v *big.Int) {
	var e fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	h.Write(b[:])
}
