// main.go - End-to-end sealed-bid scenario against an in-process ledger.
//
// This walks the full protocol with one producer and three bidders:
//   - the producer registers a lot of cattle with a one hour window
//   - each bidder commits a sealed bid; secrets are vaulted locally first
//   - each bidder reveals; the ledger verifies every opening
//   - the producer finalizes and the winner is fixed
//   - the winner generates a Groth16 proof that their bid matches the
//     commitment recorded on the ledger
//
// Usage:
//
//	go run main.go
//
// Wallets land in wallets/, Groth16 keys in keys/. Keys are generated on
// the first run and reused afterwards.

package main

import (
	"context"
	"log"
	"math/big"
	"time"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/bidder"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
	"github.com/adrianvrj/zk-sealed-cattle/internal/proof"
)

func main() {
	log.Println("=== Sealed-Bid Cattle Auction: commit/reveal scenario ===")

	ctx := context.Background()
	producer := auction.MustIdentity("0x1")
	bidders := []auction.Identity{
		auction.MustIdentity("0xa1"),
		auction.MustIdentity("0xb2"),
		auction.MustIdentity("0xc3"),
	}
	amounts := []*big.Int{
		big.NewInt(125_000),
		big.NewInt(140_000),
		big.NewInt(131_500),
	}

	policy := auction.NewPrivileged(producer)
	clock := auction.NewManualClock(uint64(time.Now().Unix()))
	chain := gateway.NewMemoryChain(clock, policy)

	log.Println("Compiling circuit and preparing Groth16 keys...")
	start := time.Now()
	prover, err := proof.NewProver("keys")
	if err != nil {
		log.Fatalf("prover setup failed: %v", err)
	}
	log.Printf("Prover ready in %s", time.Since(start).Round(time.Millisecond))

	newSession := func(id auction.Identity) *bidder.Session {
		s, err := bidder.NewSession(bidder.Config{
			Account:    id,
			Clock:      clock,
			Provider:   chain,
			Prover:     prover,
			Privileged: policy,
			StoreDir:   "wallets",
		})
		if err != nil {
			log.Fatalf("session for %s failed: %v", id.Key(), err)
		}
		return s
	}

	// 1. The producer registers a lot.
	producerSession := newSession(producer)
	tx, err := producerSession.CreateLot(ctx, gateway.CreateLotParams{
		Breed:         "brangus",
		InitialWeight: 480,
		HeadCount:     35,
		Duration:      3600,
	})
	if err != nil {
		log.Fatalf("lot creation failed: %v", err)
	}
	log.Printf("Lot 1 created (tx %s)", tx.Hash)

	// 2. Sealed commits. Each bid's secret is vaulted before dispatch.
	sessions := make([]*bidder.Session, len(bidders))
	for i, id := range bidders {
		sessions[i] = newSession(id)
		tx, err := sessions[i].CommitBid(ctx, 1, amounts[i])
		if err != nil {
			log.Fatalf("commit for %s failed: %v", id.Key(), err)
		}
		log.Printf("Bidder %s committed a sealed bid (tx %s)", id.Key(), tx.Hash)
	}

	view, err := producerSession.Lot(ctx, 1)
	if err != nil {
		log.Fatalf("lot fetch failed: %v", err)
	}
	log.Printf("Lot 1 is %s, %s remaining, bids are sealed", view.State, view.Remaining)

	// 3. Reveals. The ledger checks each opening against its commitment.
	for i, s := range sessions {
		tx, err := s.RevealBid(ctx, 1)
		if err != nil {
			log.Fatalf("reveal for %s failed: %v", bidders[i].Key(), err)
		}
		log.Printf("Bidder %s revealed %s (tx %s)", bidders[i].Key(), amounts[i], tx.Hash)
	}

	// 4. Finalize and fix the winner.
	if _, err := producerSession.Finalize(ctx, 1); err != nil {
		log.Fatalf("finalize failed: %v", err)
	}
	view, err = producerSession.Lot(ctx, 1)
	if err != nil {
		log.Fatalf("lot fetch failed: %v", err)
	}
	log.Printf("Lot 1 finalized: winner %s at %s", view.Lot.BestBidder.Key(), view.Lot.BestBid)

	// 5. The winner proves their bid matches the recorded commitment.
	var winnerSession *bidder.Session
	for i, id := range bidders {
		if view.Lot.BestBidder.Equal(id) {
			winnerSession = sessions[i]
		}
	}
	if winnerSession == nil {
		log.Fatal("winner is not one of the scenario bidders")
	}

	start = time.Now()
	calldata, err := winnerSession.GenerateWinnerProof(ctx, 1)
	if err != nil {
		log.Fatalf("winner proof failed: %v", err)
	}
	log.Printf("Winner proof generated in %s (%d bytes of calldata)",
		time.Since(start).Round(time.Millisecond), len(calldata))

	if err := winnerSession.MarkPaid(ctx, 1); err != nil {
		log.Fatalf("payment failed: %v", err)
	}
	log.Println("Winner settled the lot. Scenario complete.")
}
