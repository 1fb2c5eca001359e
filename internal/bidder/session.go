// session.go - One account's view of the auction and the operations it may
// perform.
//
// Ordering guarantees the session enforces:
//   - A bid's secret is durably vaulted before the commit transaction is
//     dispatched; a crash between the two loses a transaction fee, never a
//     secret.
//   - Reveal refuses to run without a vaulted record, so a reveal can never
//     be sent for a commitment the account cannot reproduce.
//   - Each mutating operation rejects concurrent re-entry for the same
//     account instead of double-dispatching.

package bidder

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync/atomic"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/commitment"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
	"github.com/adrianvrj/zk-sealed-cattle/internal/proof"
	"github.com/adrianvrj/zk-sealed-cattle/internal/wallet"
)

// ErrBusy reports that the same operation is already in flight for this
// session's account.
var ErrBusy = errors.New("operation already in flight")

// MetadataResolver fetches the off-chain descriptive content a lot's
// metadata URI points to.
type MetadataResolver interface {
	Resolve(ctx context.Context, uri string) (*auction.LotMetadata, error)
}

// ChainProvider binds gateways to identities. The in-memory chain and any
// remote provider both satisfy it.
type ChainProvider interface {
	ForAccount(id auction.Identity) gateway.Gateway
}

// LotView is a lot annotated with everything the session derives for it:
// lifecycle state, remaining window time, this account's participation
// record, and resolved metadata when available.
type LotView struct {
	Lot       *auction.Lot
	State     auction.State
	Remaining string
	Record    wallet.Record
	Metadata  *auction.LotMetadata
}

// Session is one account's stateful connection to the auction, serving a
// single cooperative caller. Overlapping calls to the same mutating
// operation fail with ErrBusy rather than queue; SwitchAccount assumes no
// operation is in flight.
type Session struct {
	account  auction.Identity
	clock    auction.Clock
	provider ChainProvider
	chain    gateway.Gateway
	wallet   *wallet.Wallet
	vault    *wallet.Vault
	prover   proof.Generator
	policy   *auction.Privileged
	resolver MetadataResolver
	storeDir string

	committing atomic.Bool
	revealing  atomic.Bool
	finalizing atomic.Bool
	proving    atomic.Bool
}

// Config carries the collaborators a Session composes.
type Config struct {
	Account    auction.Identity
	Clock      auction.Clock
	Provider   ChainProvider
	Prover     proof.Generator
	Privileged *auction.Privileged
	Resolver   MetadataResolver // optional
	StoreDir   string
}

// NewSession opens the account's wallet and vault and binds a gateway for
// it.
func NewSession(cfg Config) (*Session, error) {
	w, err := wallet.Open(cfg.StoreDir, cfg.Account.Key())
	if err != nil {
		return nil, err
	}
	v, err := wallet.OpenVault(cfg.StoreDir, cfg.Account.Key())
	if err != nil {
		return nil, err
	}
	return &Session{
		account:  cfg.Account,
		clock:    cfg.Clock,
		provider: cfg.Provider,
		chain:    cfg.Provider.ForAccount(cfg.Account),
		wallet:   w,
		vault:    v,
		prover:   cfg.Prover,
		policy:   cfg.Privileged,
		resolver: cfg.Resolver,
		storeDir: cfg.StoreDir,
	}, nil
}

// Account returns the identity this session acts as.
func (s *Session) Account() auction.Identity { return s.account }

// SwitchAccount rebinds the session to a different identity: a new gateway,
// wallet, and vault, with no state carried over.
func (s *Session) SwitchAccount(account auction.Identity) error {
	w, err := wallet.Open(s.storeDir, account.Key())
	if err != nil {
		return err
	}
	v, err := wallet.OpenVault(s.storeDir, account.Key())
	if err != nil {
		return err
	}
	s.account = account
	s.chain = s.provider.ForAccount(account)
	s.wallet = w
	s.vault = v
	return nil
}

// Lot fetches and classifies a single lot.
func (s *Session) Lot(ctx context.Context, lotID uint64) (*LotView, error) {
	raw, err := s.chain.LotInfo(ctx, lotID)
	if err != nil {
		return nil, err
	}
	lot, err := auction.ParseLot(raw)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	view := &LotView{
		Lot:       lot,
		State:     auction.Classify(lot, now),
		Remaining: auction.FormatRemaining(lot, now),
		Record:    s.wallet.Record(lotID),
	}
	if s.resolver != nil && lot.MetadataURI != "" {
		md, err := s.resolver.Resolve(ctx, lot.MetadataURI)
		if err != nil {
			// Metadata is decorative; a lot renders fine without it.
			log.Printf("[bidder] lot %d: metadata unavailable: %v", lotID, err)
		} else {
			view.Metadata = md
		}
	}
	return view, nil
}

// Lots fetches and classifies every lot on the ledger, lowest id first.
func (s *Session) Lots(ctx context.Context) ([]*LotView, error) {
	count, err := s.chain.LotCount(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*LotView, 0, count)
	for id := uint64(1); id <= count; id++ {
		view, err := s.Lot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lot %d: %w", id, err)
		}
		views = append(views, view)
	}
	return views, nil
}

// CommitBid places a sealed bid on a lot. It draws a fresh random secret,
// computes the binding commitment, durably vaults the bid, and only then
// dispatches the commit transaction. A commit the ledger already
// acknowledged is refused locally; a vaulted bid whose dispatch failed is
// re-sent unchanged so a transport failure cannot lock the account out of
// the lot. Participation is not recorded here; only a reveal marks it.
func (s *Session) CommitBid(ctx context.Context, lotID uint64, amount *big.Int) (*gateway.Tx, error) {
	if !s.committing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.committing.Store(false)

	view, err := s.Lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := auction.Gate(auction.OpCommit, view.State); err != nil {
		return nil, err
	}
	if rec, ok := s.vault.Get(lotID); ok {
		if rec.Acknowledged {
			return nil, &auction.LifecycleViolationError{
				Op:     auction.OpCommit,
				State:  view.State,
				Reason: "a bid is already committed on this lot",
			}
		}
		// The bid was sealed but the earlier dispatch never got an
		// acknowledgment. Re-send the vaulted commitment as-is; the amount
		// argument is ignored because the sealed bid cannot change.
		return s.dispatchCommit(ctx, rec)
	}

	secret, err := crand.Int(crand.Reader, commitment.Modulus())
	if err != nil {
		return nil, fmt.Errorf("secret generation failed: %w", err)
	}
	cm, err := commitment.Compute(secret, amount, lotID, s.account.BigInt())
	if err != nil {
		return nil, err
	}

	// Vault before dispatch. If the write fails no transaction is sent.
	rec := &wallet.BidRecord{
		LotID:      lotID,
		Secret:     secret,
		Amount:     new(big.Int).Set(amount),
		Bidder:     s.account.Key(),
		Commitment: cm,
	}
	if err := s.vault.Put(rec); err != nil {
		return nil, fmt.Errorf("bid vault write failed: %w", err)
	}
	return s.dispatchCommit(ctx, rec)
}

func (s *Session) dispatchCommit(ctx context.Context, rec *wallet.BidRecord) (*gateway.Tx, error) {
	tx, err := s.chain.CommitBid(ctx, rec.LotID, rec.Commitment)
	if err != nil {
		return nil, err
	}
	rec.Acknowledged = true
	if err := s.vault.Put(rec); err != nil {
		log.Printf("[bidder] lot %d: commit acknowledgment persist failed: %v", rec.LotID, err)
	}
	return tx, nil
}

// RevealBid opens this account's sealed bid on a lot. The vaulted record is
// the only source of the secret and amount; without it the reveal is refused
// before any transaction is dispatched, as is a bid this account already
// revealed. A successful reveal marks the lot as participated.
func (s *Session) RevealBid(ctx context.Context, lotID uint64) (*gateway.Tx, error) {
	if !s.revealing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.revealing.Store(false)

	view, err := s.Lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := auction.Gate(auction.OpReveal, view.State); err != nil {
		return nil, err
	}
	if view.Record.Participated {
		return nil, &auction.LifecycleViolationError{
			Op:     auction.OpReveal,
			State:  view.State,
			Reason: "bid already revealed",
		}
	}
	rec, ok := s.vault.Get(lotID)
	if !ok {
		return nil, &auction.LifecycleViolationError{
			Op:     auction.OpReveal,
			State:  view.State,
			Reason: "no vaulted bid for this lot",
		}
	}
	tx, err := s.chain.RevealBid(ctx, lotID, rec.Amount, rec.Secret)
	if err != nil {
		return nil, err
	}
	if err := s.wallet.SetParticipated(lotID); err != nil {
		log.Printf("[bidder] lot %d: participation record update failed: %v", lotID, err)
	}
	return tx, nil
}

// CreateLot registers a new lot. The id is assigned sequentially from the
// current ledger count. Only privileged identities may create lots; the
// check runs locally so an unauthorized call never reaches the gateway.
func (s *Session) CreateLot(ctx context.Context, p gateway.CreateLotParams) (*gateway.Tx, error) {
	if !s.policy.Allows(s.account) {
		return nil, &auction.NotAuthorizedError{Account: s.account.Key(), Op: "create lot"}
	}
	count, err := s.chain.LotCount(ctx)
	if err != nil {
		return nil, err
	}
	p.ID = count + 1
	if p.Producer.IsZero() {
		p.Producer = s.account
	}
	return s.chain.CreateLot(ctx, p)
}

// Finalize fixes a lot's winner. Legal once the window has expired, or from
// Active as a privileged forced close; either way the caller must be in the
// privileged set.
func (s *Session) Finalize(ctx context.Context, lotID uint64) (*gateway.Tx, error) {
	if !s.finalizing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.finalizing.Store(false)

	if !s.policy.Allows(s.account) {
		return nil, &auction.NotAuthorizedError{Account: s.account.Key(), Op: "finalize"}
	}
	view, err := s.Lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := auction.Gate(auction.OpFinalize, view.State); err != nil {
		return nil, err
	}
	return s.chain.FinalizeLot(ctx, lotID)
}

// GenerateWinnerProof produces the settlement proof for a finalized lot this
// account won. The calldata is retained in the wallet store and the
// proof-generated flag is set.
func (s *Session) GenerateWinnerProof(ctx context.Context, lotID uint64) ([]byte, error) {
	if !s.proving.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.proving.Store(false)

	view, err := s.Lot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := auction.Gate(auction.OpProve, view.State); err != nil {
		return nil, err
	}
	if !view.Lot.BestBidder.Equal(s.account) {
		return nil, &auction.NotAuthorizedError{Account: s.account.Key(), Op: "generate winner proof"}
	}
	rec, ok := s.vault.Get(lotID)
	if !ok {
		return nil, fmt.Errorf("no vaulted bid for lot %d", lotID)
	}

	req := proof.NewRequest(rec.Amount, rec.Secret, lotID, s.account.BigInt(), rec.Commitment)
	calldata, err := s.prover.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.wallet.SaveProofArtifact(lotID, calldata); err != nil {
		log.Printf("[bidder] lot %d: proof artifact retention failed: %v", lotID, err)
	}
	if err := s.wallet.SetProofGenerated(lotID); err != nil {
		log.Printf("[bidder] lot %d: proof record update failed: %v", lotID, err)
	}
	return calldata, nil
}

// MarkPaid records settlement of a won lot. The lot must be finalized with
// this account as the winner.
func (s *Session) MarkPaid(ctx context.Context, lotID uint64) error {
	view, err := s.Lot(ctx, lotID)
	if err != nil {
		return err
	}
	if err := auction.Gate(auction.OpPay, view.State); err != nil {
		return err
	}
	if !view.Lot.BestBidder.Equal(s.account) {
		return &auction.NotAuthorizedError{Account: s.account.Key(), Op: "pay"}
	}
	return s.wallet.SetPaid(lotID)
}
