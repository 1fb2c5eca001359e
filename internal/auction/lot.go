// lot.go - The Lot record, its loosely typed wire form, and the typed
// adapter between them.
//
// The authoritative ledger returns felt-like string fields; ParseLot turns
// them into the strict Lot record or fails with MalformedLotError instead of
// letting untyped values propagate.

package auction

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Lot is the read-only projection of one auctioned batch of goods.
// BestBid and BestBidder are authoritative only when Finalized is true;
// before finalization they must be treated as undefined even if the gateway
// returns placeholder values.
type Lot struct {
	ID            uint64
	Producer      Identity
	Breed         string
	InitialWeight uint64
	HeadCount     uint64
	MetadataURI   string
	StartTime     uint64
	Duration      uint64
	Finalized     bool
	BestBid       *big.Int
	BestBidder    Identity
}

// End returns the first second after the bidding window, saturating at the
// maximum representable time so adversarial start/duration pairs cannot wrap
// an expired lot back to pending.
func (l *Lot) End() uint64 {
	end := l.StartTime + l.Duration
	if end < l.StartTime {
		return math.MaxUint64
	}
	return end
}

// LotMetadata is the off-chain descriptive content referenced by
// Lot.MetadataURI. Resolution is a collaborator concern; a lot without
// metadata is fully functional.
type LotMetadata struct {
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Images         []string `json:"images,omitempty"`
}

// RawLot is the gateway wire form of a lot: every numeric field is a
// decimal or hex string, the way the ledger serializes field elements.
type RawLot struct {
	ID            string `json:"id"`
	Producer      string `json:"producer"`
	Breed         string `json:"breed"`
	InitialWeight string `json:"initial_weight"`
	HeadCount     string `json:"head_count"`
	MetadataURI   string `json:"metadata_uri"`
	StartTime     string `json:"start_time"`
	Duration      string `json:"duration"`
	Finalized     bool   `json:"finalized"`
	BestBid       string `json:"best_bid"`
	BestBidder    string `json:"best_bidder"`
}

// MalformedLotError reports a gateway response field that does not parse
// into the strict Lot record.
type MalformedLotError struct {
	Field string
	Value string
}

func (e *MalformedLotError) Error() string {
	return fmt.Sprintf("malformed lot field %s: %q", e.Field, e.Value)
}

// ParseLot converts a wire lot into the strict record.
func ParseLot(raw *RawLot) (*Lot, error) {
	id, err := parseUint("id", raw.ID)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, &MalformedLotError{Field: "id", Value: raw.ID}
	}
	producer, err := ParseIdentity(raw.Producer)
	if err != nil {
		return nil, &MalformedLotError{Field: "producer", Value: raw.Producer}
	}
	weight, err := parseUint("initial_weight", raw.InitialWeight)
	if err != nil {
		return nil, err
	}
	head, err := parseUint("head_count", raw.HeadCount)
	if err != nil {
		return nil, err
	}
	start, err := parseUint("start_time", raw.StartTime)
	if err != nil {
		return nil, err
	}
	duration, err := parseUint("duration", raw.Duration)
	if err != nil {
		return nil, err
	}

	lot := &Lot{
		ID:            id,
		Producer:      producer,
		Breed:         raw.Breed,
		InitialWeight: weight,
		HeadCount:     head,
		MetadataURI:   raw.MetadataURI,
		StartTime:     start,
		Duration:      duration,
		Finalized:     raw.Finalized,
		BestBid:       new(big.Int),
	}

	// Winner fields may be absent or placeholder zeros pre-finalization.
	if raw.BestBid != "" {
		bid, ok := new(big.Int).SetString(raw.BestBid, 10)
		if !ok || bid.Sign() < 0 {
			return nil, &MalformedLotError{Field: "best_bid", Value: raw.BestBid}
		}
		lot.BestBid = bid
	}
	if raw.BestBidder != "" {
		bidder, err := ParseIdentity(raw.BestBidder)
		if err != nil {
			return nil, &MalformedLotError{Field: "best_bidder", Value: raw.BestBidder}
		}
		lot.BestBidder = bidder
	}
	return lot, nil
}

func parseUint(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &MalformedLotError{Field: field, Value: s}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &MalformedLotError{Field: field, Value: s}
	}
	return v, nil
}
