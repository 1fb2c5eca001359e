// vault.go - Durable retention of bid secrets, persisted as CBOR.
//
// A BidRecord must exist on disk before the commit transaction is
// dispatched: a crash between submission and acknowledgment must not lose
// the secret, or the bid becomes permanently unrevealable.

package wallet

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// BidRecord is the retained material for one committed bid. It is kept
// until (and after) reveal; the winner proof needs it again once the lot
// finalizes. Acknowledged flips once the ledger accepted the commit; an
// unacknowledged record marks a dispatch that may never have landed and is
// safe to re-send.
type BidRecord struct {
	LotID        uint64   `cbor:"lot_id"`
	Secret       *big.Int `cbor:"secret"`
	Amount       *big.Int `cbor:"amount"`
	Bidder       string   `cbor:"bidder"`
	Commitment   *big.Int `cbor:"commitment"`
	Acknowledged bool     `cbor:"acknowledged"`
}

// Vault holds one account's retained bid records.
type Vault struct {
	account string
	dir     string
	records map[uint64]*BidRecord
}

// OpenVault loads the retained bid records for the given normalized account
// key. A corrupted vault file is treated as empty but logged; there is no
// way to recover secrets from a file that does not parse.
func OpenVault(dir, account string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vault dir: %w", err)
	}
	v := &Vault{
		account: account,
		dir:     dir,
		records: make(map[uint64]*BidRecord),
	}

	path := v.path()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}
	if err := cbor.Unmarshal(data, &v.records); err != nil {
		log.Printf("[wallet] %s: secret vault corrupted, treating as empty: %v", path, err)
		v.records = make(map[uint64]*BidRecord)
	}
	return v, nil
}

// Put stores a bid record and syncs it to disk before returning.
func (v *Vault) Put(rec *BidRecord) error {
	v.records[rec.LotID] = rec
	data, err := cbor.Marshal(v.records)
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}
	f, err := os.OpenFile(v.path(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open vault file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write vault file: %w", err)
	}
	// The secret must be durable before the commit tx is dispatched.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync vault file: %w", err)
	}
	return nil
}

// Get returns the retained record for a lot, if any.
func (v *Vault) Get(lotID uint64) (*BidRecord, bool) {
	rec, ok := v.records[lotID]
	return rec, ok
}

func (v *Vault) path() string {
	return filepath.Join(v.dir, v.account+"_secrets.cbor")
}
