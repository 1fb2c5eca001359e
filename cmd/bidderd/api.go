// api.go - REST surface of the bidder daemon.
//
// Every mutating endpoint acts as the daemon's configured account. Errors
// map onto status codes by kind: precondition failures are 409, authorization
// failures 403, ledger rejections 422, transport trouble 502.

package main

import (
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/bidder"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
	"github.com/adrianvrj/zk-sealed-cattle/internal/proof"
)

type apiServer struct {
	session *bidder.Session
	logger  *Logger
	metrics *MetricsCollector
	health  *HealthChecker
	limiter *ClientRateLimiter
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /lots", s.handleListLots)
	mux.HandleFunc("GET /lots/{id}", s.handleGetLot)
	mux.HandleFunc("POST /lots", s.handleCreateLot)
	mux.HandleFunc("POST /lots/{id}/commit", s.handleCommit)
	mux.HandleFunc("POST /lots/{id}/reveal", s.handleReveal)
	mux.HandleFunc("POST /lots/{id}/finalize", s.handleFinalize)
	mux.HandleFunc("POST /lots/{id}/proof", s.handleProof)
	mux.HandleFunc("POST /lots/{id}/pay", s.handlePay)
	mux.HandleFunc("POST /account", s.handleSwitchAccount)

	return s.rateLimit(mux)
}

func (s *apiServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}
		if !s.limiter.Allow(client) {
			s.metrics.IncrementCounter(MetricRateLimited)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.CheckHealth()
	status := http.StatusOK
	if health.OverallStatus == Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Summary())
}

type lotResponse struct {
	ID            uint64               `json:"id"`
	Producer      string               `json:"producer"`
	Breed         string               `json:"breed"`
	InitialWeight uint64               `json:"initial_weight"`
	HeadCount     uint64               `json:"head_count"`
	State         string               `json:"state"`
	Remaining     string               `json:"remaining"`
	BestBid       string               `json:"best_bid,omitempty"`
	BestBidder    string               `json:"best_bidder,omitempty"`
	Participated  bool                 `json:"participated"`
	Paid          bool                 `json:"paid"`
	ProofDone     bool                 `json:"proof_generated"`
	Metadata      *auction.LotMetadata `json:"metadata,omitempty"`
}

func toLotResponse(v *bidder.LotView) *lotResponse {
	resp := &lotResponse{
		ID:            v.Lot.ID,
		Producer:      v.Lot.Producer.Key(),
		Breed:         v.Lot.Breed,
		InitialWeight: v.Lot.InitialWeight,
		HeadCount:     v.Lot.HeadCount,
		State:         v.State.String(),
		Remaining:     v.Remaining,
		Participated:  v.Record.Participated,
		Paid:          v.Record.Paid,
		ProofDone:     v.Record.ProofGenerated,
		Metadata:      v.Metadata,
	}
	if v.State == auction.StateFinalized {
		resp.BestBid = v.Lot.BestBid.String()
		resp.BestBidder = v.Lot.BestBidder.Key()
	}
	return resp
}

func (s *apiServer) handleListLots(w http.ResponseWriter, r *http.Request) {
	views, err := s.session.Lots(r.Context())
	if err != nil {
		s.writeFailure(w, "list", err)
		return
	}
	out := make([]*lotResponse, len(views))
	open := 0
	for i, v := range views {
		out[i] = toLotResponse(v)
		if v.State == auction.StateActive {
			open++
		}
	}
	s.metrics.SetGauge(MetricOpenLots, float64(open))
	writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleGetLot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lotID(w, r)
	if !ok {
		return
	}
	view, err := s.session.Lot(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toLotResponse(view))
}

func (s *apiServer) handleCreateLot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Breed         string `json:"breed"`
		InitialWeight uint64 `json:"initial_weight"`
		HeadCount     uint64 `json:"head_count"`
		MetadataURI   string `json:"metadata_uri"`
		Duration      uint64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := s.session.CreateLot(r.Context(), gateway.CreateLotParams{
		Breed:         req.Breed,
		InitialWeight: req.InitialWeight,
		HeadCount:     req.HeadCount,
		MetadataURI:   req.MetadataURI,
		Duration:      req.Duration,
	})
	if err != nil {
		s.writeFailure(w, "create", err)
		return
	}
	s.metrics.IncrementCounter(MetricLotsCreated)
	s.logger.Audit("lot_created", map[string]interface{}{"tx": tx.Hash, "breed": req.Breed})
	writeJSON(w, http.StatusCreated, tx)
}

func (s *apiServer) handleCommit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lotID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, ok2 := new(big.Int).SetString(req.Amount, 10)
	if !ok2 || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal string")
		return
	}

	tx, err := s.session.CommitBid(r.Context(), id, amount)
	if err != nil {
		s.writeFailure(w, "commit", err)
		return
	}
	s.metrics.RecordCommit()
	s.logger.Audit("bid_committed", map[string]interface{}{
		"lot": id, "account": s.session.Account().Key(), "tx": tx.Hash,
	})
	writeJSON(w, http.StatusOK, tx)
}

func (s *apiServer) handleReveal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lotID(w, r)
	if !ok {
		return
	}
	tx, err := s.session.RevealBid(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "reveal", err)
		return
	}
	s.metrics.RecordReveal()
	s.logger.Audit("bid_revealed", map[string]interface{}{
		"lot": id, "account": s.session.Account().Key(), "tx": tx.Hash,
	})
	writeJSON(w, http.StatusOK, tx)
}

func (s *apiServer) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lotID(w, r)
	if !ok {
		return
	}
	tx, err := s.session.Finalize(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "finalize", err)
		return
	}
	s.metrics.RecordFinalize()
	s.logger.Audit("lot_finalized", map[string]interface{}{"lot": id, "tx": tx.Hash})
	writeJSON(w, http.StatusOK, tx)
}

func (s *apiServer) handleProof(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lotID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	calldata, err := s.session.GenerateWinnerProof(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "proof", err)
		return
	}
	s.metrics.RecordProofGeneration(time.Since(start))
	s.logger.Audit("proof_generated", map[string]interface{}{
		"lot": id, "account": s.session.Account().Key(), "bytes": len(calldata),
	})
	writeJSON(w, http.StatusOK, proof.Response{Success: true, Calldata: calldata})
}

func (s *apiServer) handlePay(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lotID(w, r)
	if !ok {
		return
	}
	if err := s.session.MarkPaid(r.Context(), id); err != nil {
		s.writeFailure(w, "pay", err)
		return
	}
	s.logger.Audit("lot_paid", map[string]interface{}{
		"lot": id, "account": s.session.Account().Key(),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"paid": true})
}

func (s *apiServer) handleSwitchAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := auction.ParseIdentity(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account identity")
		return
	}
	if err := s.session.SwitchAccount(id); err != nil {
		s.writeFailure(w, "switch", err)
		return
	}
	s.logger.Info("switched to account %s", id.Key())
	writeJSON(w, http.StatusOK, map[string]string{"account": id.Key()})
}

func (s *apiServer) lotID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return 0, false
	}
	return id, true
}

// writeFailure maps a session error onto a status code and records it.
func (s *apiServer) writeFailure(w http.ResponseWriter, op string, err error) {
	var (
		lifecycle *auction.LifecycleViolationError
		notAuth   *auction.NotAuthorizedError
		malformed *auction.MalformedLotError
		rejected  *gateway.RejectedError
		transport *gateway.TransportError
		svc       *proof.ServiceError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &lifecycle):
		status = http.StatusConflict
	case errors.As(err, &notAuth):
		status = http.StatusForbidden
	case errors.As(err, &rejected):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &transport):
		status = http.StatusBadGateway
	case errors.As(err, &svc):
		status = http.StatusBadGateway
	case errors.As(err, &malformed):
		status = http.StatusBadGateway
	case errors.Is(err, bidder.ErrBusy):
		status = http.StatusConflict
	}

	s.metrics.RecordError(op)
	s.logger.Error("%s failed: %v", op, err)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
