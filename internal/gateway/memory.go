// memory.go - In-memory authoritative chain for tests and the demo
// scenario.
//
// Enforces the same rules the real ledger does: sequential lot ids,
// commit/reveal only inside the bidding window, one commit per account,
// reveal verified against the stored commitment, privileged finalize, and
// winner fields hidden until finalization.

package gateway

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/commitment"
)

type memLot struct {
	id            uint64
	producer      auction.Identity
	breed         string
	initialWeight uint64
	headCount     uint64
	metadataURI   string
	startTime     uint64
	duration      uint64
	finalized     bool

	commits  map[string]*big.Int // account key -> commitment
	revealed map[string]bool

	bestBid    *big.Int
	bestBidder auction.Identity
}

// MemoryChain is a process-local authoritative ledger. Create one per test
// or demo and bind per-account gateways with ForAccount.
type MemoryChain struct {
	mu         sync.Mutex
	clock      auction.Clock
	privileged *auction.Privileged
	lots       map[uint64]*memLot
}

// NewMemoryChain creates an empty chain whose window checks read the given
// clock and whose create/finalize operations require the given policy.
func NewMemoryChain(clock auction.Clock, privileged *auction.Privileged) *MemoryChain {
	return &MemoryChain{
		clock:      clock,
		privileged: privileged,
		lots:       make(map[uint64]*memLot),
	}
}

// ForAccount returns a Gateway issuing calls as the given identity, the way
// a wallet-bound provider would.
func (c *MemoryChain) ForAccount(caller auction.Identity) Gateway {
	return &boundGateway{chain: c, caller: caller}
}

type boundGateway struct {
	chain  *MemoryChain
	caller auction.Identity
}

func (g *boundGateway) LotCount(ctx context.Context) (uint64, error) {
	g.chain.mu.Lock()
	defer g.chain.mu.Unlock()
	return uint64(len(g.chain.lots)), nil
}

func (g *boundGateway) LotInfo(ctx context.Context, lotID uint64) (*auction.RawLot, error) {
	g.chain.mu.Lock()
	defer g.chain.mu.Unlock()

	lot, ok := g.chain.lots[lotID]
	if !ok {
		return nil, &RejectedError{Reason: fmt.Sprintf("lot %d does not exist", lotID)}
	}

	raw := &auction.RawLot{
		ID:            strconv.FormatUint(lot.id, 10),
		Producer:      lot.producer.Key(),
		Breed:         lot.breed,
		InitialWeight: strconv.FormatUint(lot.initialWeight, 10),
		HeadCount:     strconv.FormatUint(lot.headCount, 10),
		MetadataURI:   lot.metadataURI,
		StartTime:     strconv.FormatUint(lot.startTime, 10),
		Duration:      strconv.FormatUint(lot.duration, 10),
		Finalized:     lot.finalized,
		BestBid:       "0",
	}
	// Winner fields are confidential until finalization.
	if lot.finalized {
		raw.BestBid = lot.bestBid.String()
		raw.BestBidder = lot.bestBidder.Key()
	}
	return raw, nil
}

func (g *boundGateway) CreateLot(ctx context.Context, p CreateLotParams) (*Tx, error) {
	g.chain.mu.Lock()
	defer g.chain.mu.Unlock()

	if !g.chain.privileged.Allows(g.caller) {
		return nil, &RejectedError{Reason: "caller may not create lots"}
	}
	if want := uint64(len(g.chain.lots)) + 1; p.ID != want {
		return nil, &RejectedError{Reason: fmt.Sprintf("lot id must be %d", want)}
	}
	if p.Duration == 0 {
		return nil, &RejectedError{Reason: "duration must be positive"}
	}

	g.chain.lots[p.ID] = &memLot{
		id:            p.ID,
		producer:      p.Producer,
		breed:         p.Breed,
		initialWeight: p.InitialWeight,
		headCount:     p.HeadCount,
		metadataURI:   p.MetadataURI,
		startTime:     g.chain.clock.Now(),
		duration:      p.Duration,
		commits:       make(map[string]*big.Int),
		revealed:      make(map[string]bool),
		bestBid:       new(big.Int),
	}
	return newTx(), nil
}

func (g *boundGateway) CommitBid(ctx context.Context, lotID uint64, cm *big.Int) (*Tx, error) {
	g.chain.mu.Lock()
	defer g.chain.mu.Unlock()

	lot, err := g.chain.openLot(lotID)
	if err != nil {
		return nil, err
	}
	key := g.caller.Key()
	if _, dup := lot.commits[key]; dup {
		return nil, &RejectedError{Reason: "account already committed on this lot"}
	}
	lot.commits[key] = new(big.Int).Set(cm)
	return newTx(), nil
}

func (g *boundGateway) RevealBid(ctx context.Context, lotID uint64, amount, secret *big.Int) (*Tx, error) {
	g.chain.mu.Lock()
	defer g.chain.mu.Unlock()

	lot, err := g.chain.openLot(lotID)
	if err != nil {
		return nil, err
	}
	key := g.caller.Key()
	committed, ok := lot.commits[key]
	if !ok {
		return nil, &RejectedError{Reason: "no commitment from this account"}
	}
	if lot.revealed[key] {
		return nil, &RejectedError{Reason: "bid already revealed"}
	}

	match, err := commitment.Verify(committed, secret, amount, lotID, g.caller.BigInt())
	if err != nil {
		return nil, &RejectedError{Reason: err.Error()}
	}
	if !match {
		return nil, &RejectedError{Reason: "reveal does not match commitment"}
	}

	lot.revealed[key] = true
	if amount.Cmp(lot.bestBid) > 0 {
		lot.bestBid = new(big.Int).Set(amount)
		lot.bestBidder = g.caller
	}
	return newTx(), nil
}

func (g *boundGateway) FinalizeLot(ctx context.Context, lotID uint64) (*Tx, error) {
	g.chain.mu.Lock()
	defer g.chain.mu.Unlock()

	if !g.chain.privileged.Allows(g.caller) {
		return nil, &RejectedError{Reason: "caller may not finalize lots"}
	}
	lot, ok := g.chain.lots[lotID]
	if !ok {
		return nil, &RejectedError{Reason: fmt.Sprintf("lot %d does not exist", lotID)}
	}
	if lot.finalized {
		return nil, &RejectedError{Reason: "lot already finalized"}
	}
	lot.finalized = true
	return newTx(), nil
}

// openLot returns the lot if it exists, is not finalized, and its bidding
// window contains now.
func (c *MemoryChain) openLot(lotID uint64) (*memLot, error) {
	lot, ok := c.lots[lotID]
	if !ok {
		return nil, &RejectedError{Reason: fmt.Sprintf("lot %d does not exist", lotID)}
	}
	if lot.finalized {
		return nil, &RejectedError{Reason: "lot is finalized"}
	}
	now := c.clock.Now()
	if now < lot.startTime || now >= lot.startTime+lot.duration {
		return nil, &RejectedError{Reason: "bidding window is closed"}
	}
	return lot, nil
}

func newTx() *Tx {
	return &Tx{Hash: uuid.NewString()}
}
