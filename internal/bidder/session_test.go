package bidder_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/bidder"
	"github.com/adrianvrj/zk-sealed-cattle/internal/commitment"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
	"github.com/adrianvrj/zk-sealed-cattle/internal/proof"
	"github.com/adrianvrj/zk-sealed-cattle/internal/wallet"
)

var (
	owner = auction.MustIdentity("0x1")
	alice = auction.MustIdentity("0xa11ce")
	bob   = auction.MustIdentity("0xb0b")
)

// checkingProver verifies the request against the commitment scheme and
// returns fixed calldata, standing in for a real proving backend.
type checkingProver struct{}

func (checkingProver) Generate(ctx context.Context, req *proof.Request) ([]byte, error) {
	amount, _ := new(big.Int).SetString(req.Amount, 10)
	secret, _ := new(big.Int).SetString(req.Secret, 10)
	bidderID, _ := new(big.Int).SetString(req.Bidder, 10)
	committed, _ := new(big.Int).SetString(req.Commitment, 10)
	ok, err := commitment.Verify(committed, secret, amount, req.LotID, bidderID)
	if err != nil {
		return nil, &proof.ServiceError{Reason: "malformed request", Err: err}
	}
	if !ok {
		return nil, &proof.ServiceError{Reason: "bid does not match commitment"}
	}
	return []byte("calldata"), nil
}

type fixture struct {
	chain *gateway.MemoryChain
	clock *auction.ManualClock
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := auction.NewManualClock(1000)
	return &fixture{
		chain: gateway.NewMemoryChain(clock, auction.NewPrivileged(owner)),
		clock: clock,
		dir:   t.TempDir(),
	}
}

func (f *fixture) session(t *testing.T, id auction.Identity) *bidder.Session {
	t.Helper()
	s, err := bidder.NewSession(bidder.Config{
		Account:    id,
		Clock:      f.clock,
		Provider:   f.chain,
		Prover:     checkingProver{},
		Privileged: auction.NewPrivileged(owner),
		StoreDir:   f.dir,
	})
	assert.Nil(t, err)
	return s
}

func (f *fixture) createLot(t *testing.T, duration uint64) {
	t.Helper()
	_, err := f.session(t, owner).CreateLot(context.Background(), gateway.CreateLotParams{
		Breed:         "brangus",
		InitialWeight: 480,
		HeadCount:     30,
		Duration:      duration,
	})
	assert.Nil(t, err)
}

func TestCommitBid(t *testing.T) {
	ctx := context.Background()

	t.Run("vaults the bid without marking participation", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		s := f.session(t, alice)

		tx, err := s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)
		check.True(t, tx.Hash != "")

		// Participation means committed AND revealed; a commit alone does
		// not set it.
		view, err := s.Lot(ctx, 1)
		check.Nil(t, err)
		check.False(t, view.Record.Participated)

		// The vaulted record survives a fresh session.
		v, err := wallet.OpenVault(f.dir, alice.Key())
		check.Nil(t, err)
		rec, ok := v.Get(1)
		check.True(t, ok)
		check.Equal(t, "1500", rec.Amount.String())
		check.True(t, rec.Secret.Sign() > 0)
		check.True(t, rec.Acknowledged)
	})

	t.Run("refused outside the window", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 100)
		f.clock.Advance(100)

		_, err := f.session(t, alice).CommitBid(ctx, 1, big.NewInt(1500))
		var lv *auction.LifecycleViolationError
		check.True(t, errors.As(err, &lv))
		check.Equal(t, auction.StateExpiredUnfinalized, lv.State)
	})

	t.Run("refused once the ledger acknowledged a commit", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		s := f.session(t, alice)

		_, err := s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)
		_, err = s.CommitBid(ctx, 1, big.NewInt(2000))
		var lv *auction.LifecycleViolationError
		check.True(t, errors.As(err, &lv))
	})

	t.Run("transport failure leaves the commit retryable", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)

		failures := 1
		s, err := bidder.NewSession(bidder.Config{
			Account:    alice,
			Clock:      f.clock,
			Provider:   &flakyProvider{chain: f.chain, failures: &failures},
			Prover:     checkingProver{},
			Privileged: auction.NewPrivileged(owner),
			StoreDir:   f.dir,
		})
		assert.Nil(t, err)

		_, err = s.CommitBid(ctx, 1, big.NewInt(1500))
		var te *gateway.TransportError
		check.True(t, errors.As(err, &te))

		// The secret is vaulted but unacknowledged; the retry re-sends the
		// same sealed bid instead of refusing.
		v, err := wallet.OpenVault(f.dir, alice.Key())
		check.Nil(t, err)
		rec, ok := v.Get(1)
		check.True(t, ok)
		check.False(t, rec.Acknowledged)

		_, err = s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)

		// The retried commitment opens cleanly against the ledger.
		_, err = s.RevealBid(ctx, 1)
		check.Nil(t, err)

		// Once acknowledged, further commits are refused locally.
		_, err = s.CommitBid(ctx, 1, big.NewInt(2000))
		var lv *auction.LifecycleViolationError
		check.True(t, errors.As(err, &lv))
	})
}

// flakyProvider fails the first N commit dispatches at the transport layer.
type flakyProvider struct {
	chain    *gateway.MemoryChain
	failures *int
}

func (p *flakyProvider) ForAccount(id auction.Identity) gateway.Gateway {
	return &flakyGateway{Gateway: p.chain.ForAccount(id), failures: p.failures}
}

type flakyGateway struct {
	gateway.Gateway
	failures *int
}

func (g *flakyGateway) CommitBid(ctx context.Context, lotID uint64, cm *big.Int) (*gateway.Tx, error) {
	if *g.failures > 0 {
		*g.failures--
		return nil, &gateway.TransportError{Err: errors.New("connection reset")}
	}
	return g.Gateway.CommitBid(ctx, lotID, cm)
}

func TestRevealBid(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip against the ledger", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		s := f.session(t, alice)

		_, err := s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)
		_, err = s.RevealBid(ctx, 1)
		check.Nil(t, err)

		// The reveal is what marks participation.
		view, err := s.Lot(ctx, 1)
		check.Nil(t, err)
		check.True(t, view.Record.Participated)

		// Finalize and confirm the ledger accepted the opened bid.
		_, err = f.session(t, owner).Finalize(ctx, 1)
		check.Nil(t, err)
		view, err = s.Lot(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, "1500", view.Lot.BestBid.String())
		check.True(t, view.Lot.BestBidder.Equal(alice))
	})

	t.Run("second reveal refused before any dispatch", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		s := f.session(t, alice)

		_, err := s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)
		_, err = s.RevealBid(ctx, 1)
		check.Nil(t, err)

		// An already-revealed bid fails the local gate, not the ledger's.
		_, err = s.RevealBid(ctx, 1)
		var lv *auction.LifecycleViolationError
		check.True(t, errors.As(err, &lv))
	})

	t.Run("refused without a vaulted bid", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)

		_, err := f.session(t, alice).RevealBid(ctx, 1)
		var lv *auction.LifecycleViolationError
		check.True(t, errors.As(err, &lv))
	})
}

func TestCreateAndFinalizeAuthorization(t *testing.T) {
	ctx := context.Background()

	t.Run("unprivileged create is refused locally", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.session(t, alice).CreateLot(ctx, gateway.CreateLotParams{Duration: 100})
		var na *auction.NotAuthorizedError
		check.True(t, errors.As(err, &na))
	})

	t.Run("unprivileged finalize is refused locally", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 100)
		f.clock.Advance(100)

		_, err := f.session(t, alice).Finalize(ctx, 1)
		var na *auction.NotAuthorizedError
		check.True(t, errors.As(err, &na))
	})

	t.Run("privileged finalize from active is a forced close", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)

		_, err := f.session(t, owner).Finalize(ctx, 1)
		check.Nil(t, err)

		view, err := f.session(t, alice).Lot(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, auction.StateFinalized, view.State)
	})

	t.Run("sequential lot ids", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 100)
		f.createLot(t, 100)

		s := f.session(t, alice)
		views, err := s.Lots(ctx)
		check.Nil(t, err)
		check.Equal(t, 2, len(views))
		check.Equal(t, uint64(1), views[0].Lot.ID)
		check.Equal(t, uint64(2), views[1].Lot.ID)
	})
}

func TestGenerateWinnerProof(t *testing.T) {
	ctx := context.Background()

	// Full happy path: commit, reveal, finalize, prove, pay.
	t.Run("winner obtains and retains calldata", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		s := f.session(t, alice)

		_, err := s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)
		_, err = s.RevealBid(ctx, 1)
		check.Nil(t, err)
		_, err = f.session(t, owner).Finalize(ctx, 1)
		check.Nil(t, err)

		calldata, err := s.GenerateWinnerProof(ctx, 1)
		check.Nil(t, err)
		check.Equal(t, []byte("calldata"), calldata)

		view, err := s.Lot(ctx, 1)
		check.Nil(t, err)
		check.True(t, view.Record.ProofGenerated)

		w, err := wallet.Open(f.dir, alice.Key())
		check.Nil(t, err)
		stored, err := w.LoadProofArtifact(1)
		check.Nil(t, err)
		check.Equal(t, []byte("calldata"), stored)

		check.Nil(t, s.MarkPaid(ctx, 1))
		view, err = s.Lot(ctx, 1)
		check.Nil(t, err)
		check.True(t, view.Record.Paid)
	})

	t.Run("refused before finalization", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		s := f.session(t, alice)

		_, err := s.CommitBid(ctx, 1, big.NewInt(1500))
		check.Nil(t, err)
		_, err = s.GenerateWinnerProof(ctx, 1)
		var lv *auction.LifecycleViolationError
		check.True(t, errors.As(err, &lv))
	})

	t.Run("refused for a losing account", func(t *testing.T) {
		f := newFixture(t)
		f.createLot(t, 3600)
		sa, sb := f.session(t, alice), f.session(t, bob)

		_, err := sa.CommitBid(ctx, 1, big.NewInt(2000))
		check.Nil(t, err)
		_, err = sa.RevealBid(ctx, 1)
		check.Nil(t, err)
		_, err = sb.CommitBid(ctx, 1, big.NewInt(900))
		check.Nil(t, err)
		_, err = sb.RevealBid(ctx, 1)
		check.Nil(t, err)
		_, err = f.session(t, owner).Finalize(ctx, 1)
		check.Nil(t, err)

		_, err = sb.GenerateWinnerProof(ctx, 1)
		var na *auction.NotAuthorizedError
		check.True(t, errors.As(err, &na))

		_, err = sa.GenerateWinnerProof(ctx, 1)
		check.Nil(t, err)
	})
}

func TestSwitchAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createLot(t, 3600)
	s := f.session(t, alice)

	_, err := s.CommitBid(ctx, 1, big.NewInt(1500))
	check.Nil(t, err)
	_, err = s.RevealBid(ctx, 1)
	check.Nil(t, err)

	// Bob's view carries none of alice's state: no participation record and
	// no vaulted bid to reveal from.
	check.Nil(t, s.SwitchAccount(bob))
	view, err := s.Lot(ctx, 1)
	check.Nil(t, err)
	check.False(t, view.Record.Participated)
	_, err = s.RevealBid(ctx, 1)
	var lv *auction.LifecycleViolationError
	check.True(t, errors.As(err, &lv))

	// Switching back restores alice's record, including the already-revealed
	// gate.
	check.Nil(t, s.SwitchAccount(alice))
	view, err = s.Lot(ctx, 1)
	check.Nil(t, err)
	check.True(t, view.Record.Participated)
	_, err = s.RevealBid(ctx, 1)
	check.True(t, errors.As(err, &lv))
}

func TestMetadataDegradation(t *testing.T) {
	ctx := context.Background()

	md := auction.LotMetadata{Name: "North Pasture Lot", Certifications: []string{"organic"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/meta/good.json" {
			json.NewEncoder(w).Encode(md)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFixture(t)
	resolver := bidder.NewHTTPResolver(srv.URL + "/meta")

	newSession := func(t *testing.T) *bidder.Session {
		s, err := bidder.NewSession(bidder.Config{
			Account:    alice,
			Clock:      f.clock,
			Provider:   f.chain,
			Prover:     checkingProver{},
			Privileged: auction.NewPrivileged(owner),
			Resolver:   resolver,
			StoreDir:   f.dir,
		})
		assert.Nil(t, err)
		return s
	}

	ownerSession := f.session(t, owner)
	_, err := ownerSession.CreateLot(ctx, gateway.CreateLotParams{Duration: 100, MetadataURI: "ipfs://good.json"})
	assert.Nil(t, err)
	_, err = ownerSession.CreateLot(ctx, gateway.CreateLotParams{Duration: 100, MetadataURI: "ipfs://missing.json"})
	assert.Nil(t, err)

	s := newSession(t)

	t.Run("resolved metadata is attached", func(t *testing.T) {
		view, err := s.Lot(ctx, 1)
		check.Nil(t, err)
		assert.True(t, view.Metadata != nil)
		check.Equal(t, md.Name, view.Metadata.Name)
	})

	t.Run("unresolvable metadata degrades to none", func(t *testing.T) {
		view, err := s.Lot(ctx, 2)
		check.Nil(t, err)
		check.True(t, view.Metadata == nil)
	})
}
