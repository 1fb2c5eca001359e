// prover.go - Local Groth16 prover for winning-bid attestations.
//
// The constraint system is compiled once at construction and the proving and
// verifying keys are loaded from disk when present, generated and saved
// otherwise, so repeated daemon restarts reuse the same trusted setup.

package proof

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/adrianvrj/zk-sealed-cattle/internal/commitment"
)

// Prover generates winning-bid proofs in-process.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewProver compiles the winning-bid circuit and sets up or loads Groth16
// keys from keyDir.
func NewProver(keyDir string) (*Prover, error) {
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return nil, &ServiceError{Reason: "key directory", Err: err}
	}

	ccs, err := frontend.Compile(ecc.BW6_761.ScalarField(), r1cs.NewBuilder, &commitment.WinningBidCircuit{})
	if err != nil {
		return nil, &ServiceError{Reason: "circuit compilation", Err: err}
	}

	pk, vk, err := setupOrLoadKeys(ccs,
		filepath.Join(keyDir, "winning_bid.pk"),
		filepath.Join(keyDir, "winning_bid.vk"))
	if err != nil {
		return nil, &ServiceError{Reason: "key setup", Err: err}
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// Generate checks the request against the commitment scheme, proves the
// statement, verifies the proof locally, and returns it serialized.
func (p *Prover) Generate(ctx context.Context, req *Request) ([]byte, error) {
	amount, err := parseField("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	secret, err := parseField("secret", req.Secret)
	if err != nil {
		return nil, err
	}
	bidder, err := parseField("bidder_identity", req.Bidder)
	if err != nil {
		return nil, err
	}
	committed, err := parseField("commitment", req.Commitment)
	if err != nil {
		return nil, err
	}

	ok, err := commitment.Verify(committed, secret, amount, req.LotID, bidder)
	if err != nil {
		return nil, &ServiceError{Reason: "malformed request", Err: err}
	}
	if !ok {
		return nil, &ServiceError{Reason: "bid does not match commitment"}
	}

	low, high, err := commitment.SplitAmount(amount)
	if err != nil {
		return nil, &ServiceError{Reason: "malformed amount", Err: err}
	}

	assignment := &commitment.WinningBidCircuit{
		Commitment: committed,
		LotID:      req.LotID,
		Bidder:     bidder,
		Amount:     amount,
		Secret:     secret,
		AmountLow:  low,
		AmountHigh: high,
	}
	w, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, &ServiceError{Reason: "witness creation", Err: err}
	}
	prf, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, &ServiceError{Reason: "proving", Err: err}
	}

	pub, err := w.Public()
	if err != nil {
		return nil, &ServiceError{Reason: "public witness", Err: err}
	}
	if err := groth16.Verify(prf, p.vk, pub); err != nil {
		return nil, &ServiceError{Reason: "self-verification", Err: err}
	}

	var buf bytes.Buffer
	if _, err := prf.WriteTo(&buf); err != nil {
		return nil, &ServiceError{Reason: "proof serialization", Err: err}
	}
	return buf.Bytes(), nil
}

// Verify checks serialized calldata against the request's public inputs.
func (p *Prover) Verify(req *Request, calldata []byte) error {
	amount, err := parseField("amount", req.Amount)
	if err != nil {
		return err
	}
	bidder, err := parseField("bidder_identity", req.Bidder)
	if err != nil {
		return err
	}
	committed, err := parseField("commitment", req.Commitment)
	if err != nil {
		return err
	}

	assignment := &commitment.WinningBidCircuit{
		Commitment: committed,
		LotID:      req.LotID,
		Bidder:     bidder,
		Amount:     amount,
	}
	pub, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return &ServiceError{Reason: "public witness", Err: err}
	}

	prf := groth16.NewProof(ecc.BW6_761)
	if _, err := prf.ReadFrom(bytes.NewReader(calldata)); err != nil {
		return &ServiceError{Reason: "proof deserialization", Err: err}
	}
	if err := groth16.Verify(prf, p.vk, pub); err != nil {
		return &ServiceError{Reason: "verification", Err: err}
	}
	return nil
}

func setupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, pkErr := loadProvingKey(pkPath)
	vk, vkErr := loadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, nil
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, err
	}
	if err := saveKey(pkPath, pk); err != nil {
		return nil, nil, err
	}
	if err := saveKey(vkPath, vk); err != nil {
		return nil, nil, err
	}
	return pk, vk, nil
}

func saveKey(path string, k interface{ WriteTo(io.Writer) (int64, error) }) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = k.WriteTo(f)
	return err
}

func loadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BW6_761)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func loadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BW6_761)
	_, err = vk.ReadFrom(f)
	return vk, err
}
