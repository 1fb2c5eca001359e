package gateway_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/commitment"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
)

var (
	owner  = auction.MustIdentity("0x1")
	alice  = auction.MustIdentity("0xa11ce")
	bob    = auction.MustIdentity("0xb0b")
	policy = auction.NewPrivileged(owner)
)

func newChain(t *testing.T) (*gateway.MemoryChain, *auction.ManualClock) {
	t.Helper()
	clock := auction.NewManualClock(1000)
	return gateway.NewMemoryChain(clock, policy), clock
}

func createLot(t *testing.T, c *gateway.MemoryChain, id, duration uint64) {
	t.Helper()
	_, err := c.ForAccount(owner).CreateLot(context.Background(), gateway.CreateLotParams{
		ID:            id,
		Producer:      owner,
		Breed:         "angus",
		InitialWeight: 450,
		HeadCount:     20,
		Duration:      duration,
	})
	check.Nil(t, err)
}

func TestCreateLot(t *testing.T) {
	ctx := context.Background()

	t.Run("sequential ids enforced", func(t *testing.T) {
		chain, _ := newChain(t)
		g := chain.ForAccount(owner)

		_, err := g.CreateLot(ctx, gateway.CreateLotParams{ID: 2, Producer: owner, Duration: 100})
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))

		createLot(t, chain, 1, 100)
		createLot(t, chain, 2, 100)

		n, err := g.LotCount(ctx)
		check.Nil(t, err)
		check.Equal(t, uint64(2), n)
	})

	t.Run("only privileged may create", func(t *testing.T) {
		chain, _ := newChain(t)
		_, err := chain.ForAccount(alice).CreateLot(ctx, gateway.CreateLotParams{ID: 1, Producer: alice, Duration: 100})
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})

	t.Run("start time taken from clock", func(t *testing.T) {
		chain, clock := newChain(t)
		clock.Set(5000)
		createLot(t, chain, 1, 600)

		raw, err := chain.ForAccount(alice).LotInfo(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, "5000", raw.StartTime)
		check.Equal(t, "600", raw.Duration)
	})
}

func TestCommitBid(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted inside window", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		tx, err := chain.ForAccount(alice).CommitBid(ctx, 1, big.NewInt(777))
		check.Nil(t, err)
		check.True(t, tx.Hash != "")
	})

	t.Run("rejected after window", func(t *testing.T) {
		chain, clock := newChain(t)
		createLot(t, chain, 1, 100)
		clock.Advance(100)

		_, err := chain.ForAccount(alice).CommitBid(ctx, 1, big.NewInt(777))
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})

	t.Run("one commit per account", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)
		g := chain.ForAccount(alice)

		_, err := g.CommitBid(ctx, 1, big.NewInt(1))
		check.Nil(t, err)
		_, err = g.CommitBid(ctx, 1, big.NewInt(2))
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))

		// A different account is unaffected.
		_, err = chain.ForAccount(bob).CommitBid(ctx, 1, big.NewInt(3))
		check.Nil(t, err)
	})

	t.Run("unknown lot", func(t *testing.T) {
		chain, _ := newChain(t)
		_, err := chain.ForAccount(alice).CommitBid(ctx, 9, big.NewInt(1))
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})
}

func commitFor(t *testing.T, secret, amount *big.Int, lotID uint64, who auction.Identity) *big.Int {
	t.Helper()
	cm, err := commitment.Compute(secret, amount, lotID, who.BigInt())
	check.Nil(t, err)
	return cm
}

func TestRevealBid(t *testing.T) {
	ctx := context.Background()

	t.Run("matching reveal tracked as best bid", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		secret, amount := big.NewInt(42), big.NewInt(1500)
		g := chain.ForAccount(alice)
		_, err := g.CommitBid(ctx, 1, commitFor(t, secret, amount, 1, alice))
		check.Nil(t, err)
		_, err = g.RevealBid(ctx, 1, amount, secret)
		check.Nil(t, err)

		// Winner fields stay hidden until finalization.
		raw, err := g.LotInfo(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, "0", raw.BestBid)
		check.Equal(t, "", raw.BestBidder)

		_, err = chain.ForAccount(owner).FinalizeLot(ctx, 1)
		check.Nil(t, err)

		raw, err = g.LotInfo(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, "1500", raw.BestBid)
		check.Equal(t, alice.Key(), raw.BestBidder)
	})

	t.Run("highest reveal wins", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		sa, aa := big.NewInt(11), big.NewInt(1000)
		sb, ab := big.NewInt(22), big.NewInt(2000)

		ga, gb := chain.ForAccount(alice), chain.ForAccount(bob)
		_, err := ga.CommitBid(ctx, 1, commitFor(t, sa, aa, 1, alice))
		check.Nil(t, err)
		_, err = gb.CommitBid(ctx, 1, commitFor(t, sb, ab, 1, bob))
		check.Nil(t, err)
		_, err = ga.RevealBid(ctx, 1, aa, sa)
		check.Nil(t, err)
		_, err = gb.RevealBid(ctx, 1, ab, sb)
		check.Nil(t, err)

		_, err = chain.ForAccount(owner).FinalizeLot(ctx, 1)
		check.Nil(t, err)

		raw, err := ga.LotInfo(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, "2000", raw.BestBid)
		check.Equal(t, bob.Key(), raw.BestBidder)
	})

	t.Run("mismatched reveal rejected", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		g := chain.ForAccount(alice)
		_, err := g.CommitBid(ctx, 1, commitFor(t, big.NewInt(42), big.NewInt(1500), 1, alice))
		check.Nil(t, err)

		_, err = g.RevealBid(ctx, 1, big.NewInt(9999), big.NewInt(42))
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})

	t.Run("reveal without commit rejected", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		_, err := chain.ForAccount(alice).RevealBid(ctx, 1, big.NewInt(1), big.NewInt(2))
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})

	t.Run("double reveal rejected", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		secret, amount := big.NewInt(42), big.NewInt(1500)
		g := chain.ForAccount(alice)
		_, err := g.CommitBid(ctx, 1, commitFor(t, secret, amount, 1, alice))
		check.Nil(t, err)
		_, err = g.RevealBid(ctx, 1, amount, secret)
		check.Nil(t, err)
		_, err = g.RevealBid(ctx, 1, amount, secret)
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})
}

func TestFinalizeLot(t *testing.T) {
	ctx := context.Background()

	t.Run("only privileged may finalize", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)

		_, err := chain.ForAccount(alice).FinalizeLot(ctx, 1)
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
	})

	t.Run("finalize is terminal", func(t *testing.T) {
		chain, _ := newChain(t)
		createLot(t, chain, 1, 100)
		g := chain.ForAccount(owner)

		_, err := g.FinalizeLot(ctx, 1)
		check.Nil(t, err)
		_, err = g.FinalizeLot(ctx, 1)
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))

		// No further commits or reveals after finalization.
		_, err = chain.ForAccount(alice).CommitBid(ctx, 1, big.NewInt(1))
		check.True(t, errors.As(err, &rej))
	})
}
