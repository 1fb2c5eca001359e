// wallet.go - Per-account participation ledger, persisted as a JSON file.

package wallet

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Record is the participation state of one (account, lot) pair. The zero
// value is the state of a lot the account never touched.
type Record struct {
	Participated   bool `json:"participated"`
	Paid           bool `json:"paid"`
	ProofGenerated bool `json:"proof_generated"`
}

// Wallet holds one account's participation records. All mutations persist
// immediately; each setter is an idempotent monotonic set-true with no
// unset operation.
type Wallet struct {
	account string
	dir     string
	records map[uint64]*Record
}

type walletFile struct {
	Account string             `json:"account"`
	Records map[uint64]*Record `json:"records"`
}

// Open loads the participation records for the given normalized account
// key, creating the store directory if needed. A corrupted file is treated
// as absence but logged so it is distinguishable from a fresh account.
func Open(dir, account string) (*Wallet, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create wallet dir: %w", err)
	}
	w := &Wallet{
		account: account,
		dir:     dir,
		records: make(map[uint64]*Record),
	}

	path := w.path()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var file walletFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Printf("[wallet] %s: participation records corrupted, treating as empty: %v", path, err)
		return w, nil
	}
	if file.Account != "" && file.Account != account {
		log.Printf("[wallet] %s: records belong to %s, not %s, treating as empty", path, file.Account, account)
		return w, nil
	}
	if file.Records != nil {
		w.records = file.Records
	}
	return w, nil
}

// Account returns the normalized account key this wallet is scoped to.
func (w *Wallet) Account() string { return w.account }

// Record returns the participation record for a lot. Absence is an
// all-false record, not an error.
func (w *Wallet) Record(lotID uint64) Record {
	if r, ok := w.records[lotID]; ok {
		return *r
	}
	return Record{}
}

// SetParticipated marks the lot as committed-and-revealed by this account.
func (w *Wallet) SetParticipated(lotID uint64) error {
	return w.set(lotID, func(r *Record) { r.Participated = true })
}

// SetPaid marks the lot as paid by this account.
func (w *Wallet) SetPaid(lotID uint64) error {
	return w.set(lotID, func(r *Record) { r.Paid = true })
}

// SetProofGenerated marks the winner proof as generated for this lot.
func (w *Wallet) SetProofGenerated(lotID uint64) error {
	return w.set(lotID, func(r *Record) { r.ProofGenerated = true })
}

func (w *Wallet) set(lotID uint64, mutate func(*Record)) error {
	r, ok := w.records[lotID]
	if !ok {
		r = &Record{}
		w.records[lotID] = r
	}
	before := *r
	mutate(r)
	if before == *r {
		return nil // idempotent: nothing changed, nothing to persist
	}
	return w.save()
}

func (w *Wallet) save() error {
	f, err := os.Create(w.path())
	if err != nil {
		return fmt.Errorf("failed to create wallet file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(walletFile{Account: w.account, Records: w.records}); err != nil {
		return fmt.Errorf("failed to encode wallet file: %w", err)
	}
	return nil
}

func (w *Wallet) path() string {
	return filepath.Join(w.dir, w.account+"_wallet.json")
}

// SaveProofArtifact durably retains the proof calldata returned by the
// proof service for a winning lot.
func (w *Wallet) SaveProofArtifact(lotID uint64, calldata []byte) error {
	path := w.artifactPath(lotID)
	if err := os.WriteFile(path, calldata, 0o600); err != nil {
		return fmt.Errorf("failed to write proof artifact: %w", err)
	}
	return nil
}

// LoadProofArtifact returns a previously retained proof artifact.
func (w *Wallet) LoadProofArtifact(lotID uint64) ([]byte, error) {
	return os.ReadFile(w.artifactPath(lotID))
}

func (w *Wallet) artifactPath(lotID uint64) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_proof_%d.bin", w.account, lotID))
}
