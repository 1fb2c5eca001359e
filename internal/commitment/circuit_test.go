package commitment

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
)

func TestWinningBidCircuitCompiles(t *testing.T) {
	var circuit WinningBidCircuit
	_, err := frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		t.Fatalf("circuit compilation failed: %v", err)
	}
}

func TestCircuitMatchesNativeHash(t *testing.T) {
	// Cross-check: a commitment computed natively must satisfy the in-circuit
	// recomputation. This is the client/verifier consistency guarantee.
	secret := big.NewInt(42)
	amount := big.NewInt(1000)
	bidder := big.NewInt(0xabc)

	cm, err := Compute(secret, amount, 1, bidder)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	low, high, err := SplitAmount(amount)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}

	assignment := &WinningBidCircuit{
		Commitment: cm.String(),
		LotID:      1,
		Bidder:     bidder.String(),
		Amount:     amount.String(),
		Secret:     secret.String(),
		AmountLow:  low.String(),
		AmountHigh: high.String(),
	}
	var circuit WinningBidCircuit
	if err := test.IsSolved(&circuit, assignment, ecc.BW6_761.ScalarField()); err != nil {
		t.Fatalf("valid witness rejected: %v", err)
	}
}

func TestCircuitRejectsWrongReveal(t *testing.T) {
	secret := big.NewInt(42)
	amount := big.NewInt(1000)
	bidder := big.NewInt(0xabc)

	cm, err := Compute(secret, amount, 1, bidder)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// Claim a different amount than the one committed.
	wrong := big.NewInt(5000)
	low, high, err := SplitAmount(wrong)
	if err != nil {
		t.Fatalf("SplitAmount failed: %v", err)
	}

	assignment := &WinningBidCircuit{
		Commitment: cm.String(),
		LotID:      1,
		Bidder:     bidder.String(),
		Amount:     wrong.String(),
		Secret:     secret.String(),
		AmountLow:  low.String(),
		AmountHigh: high.String(),
	}
	var circuit WinningBidCircuit
	if err := test.IsSolved(&circuit, assignment, ecc.BW6_761.ScalarField()); err == nil {
		t.Fatal("witness with a forged amount was accepted")
	}
}
