package commitment

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// WinningBidCircuit proves that a revealed winning bid matches its on-chain
// commitment under the canonical binding scheme. The commitment, lot id,
// bidder identity and revealed amount are public; the secret and the amount
// limbs are private witnesses.
//
// Compiled over ecc.BW6_761.ScalarField(), so the in-circuit MiMC matches
// the native hash in Compute exactly.
type WinningBidCircuit struct {
	// Public
	Commitment frontend.Variable `gnark:",public"`
	LotID      frontend.Variable `gnark:",public"`
	Bidder     frontend.Variable `gnark:",public"`
	Amount     frontend.Variable `gnark:",public"`

	// Private
	Secret     frontend.Variable
	AmountLow  frontend.Variable
	AmountHigh frontend.Variable
}

// Define enforces limb recomposition, limb range, and the commitment hash.
func (c *WinningBidCircuit) Define(api frontend.API) error {
	// Amount = AmountLow + AmountHigh << 128, limbs constrained to 128 bits.
	api.ToBinary(c.AmountLow, LimbBits)
	api.ToBinary(c.AmountHigh, LimbBits)
	shift := new(big.Int).Lsh(big.NewInt(1), LimbBits)
	api.AssertIsEqual(c.Amount, api.Add(c.AmountLow, api.Mul(c.AmountHigh, shift)))

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Secret, c.AmountLow, c.AmountHigh, c.LotID, c.Bidder)
	api.AssertIsEqual(c.Commitment, h.Sum())
	return nil
}
