// main.go - Sealed-bid auction bidder daemon.
//
// bidderd exposes one account's auction operations over REST: listing and
// inspecting lots, committing and revealing sealed bids, finalization for
// privileged identities, and winner proof generation. The ledger is either a
// remote gateway service or an in-process one for local runs, selected by
// configuration; proving is likewise remote or in-process.
//
// Usage:
//
//	bidderd [-config bidderd.json]

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/bidder"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
	"github.com/adrianvrj/zk-sealed-cattle/internal/proof"
)

const version = "1.2.0"

// httpProvider binds remote gateways per identity.
type httpProvider struct {
	base string
}

func (p httpProvider) ForAccount(id auction.Identity) gateway.Gateway {
	return gateway.NewHTTPClient(p.base, id)
}

func main() {
	configPath := flag.String("config", "bidderd.json", "path to the configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	auditPath := ""
	if cfg.EnableAudit {
		auditPath = cfg.AuditLogPath
	}
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile, auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("bidderd %s starting", version)

	account, err := auction.ParseIdentity(cfg.Account)
	if err != nil {
		logger.Fatal("invalid account %q: %v", cfg.Account, err)
	}
	privileged := make([]auction.Identity, 0, len(cfg.Privileged))
	for _, s := range cfg.Privileged {
		id, err := auction.ParseIdentity(s)
		if err != nil {
			logger.Fatal("invalid privileged identity %q: %v", s, err)
		}
		privileged = append(privileged, id)
	}
	policy := auction.NewPrivileged(privileged...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := auction.NewTickingClock()
	clock.Start(ctx)

	var provider bidder.ChainProvider
	if cfg.GatewayURL != "" {
		logger.Info("using remote ledger at %s", cfg.GatewayURL)
		provider = httpProvider{base: cfg.GatewayURL}
	} else {
		logger.Info("using in-process ledger")
		provider = gateway.NewMemoryChain(clock, policy)
	}

	var prover proof.Generator
	if cfg.ProofAPI != "" {
		logger.Info("using remote proof service at %s", cfg.ProofAPI)
		prover = proof.NewClient(cfg.ProofAPI)
	} else {
		logger.Info("compiling circuit and loading keys from %s", cfg.KeyDir)
		start := time.Now()
		local, err := proof.NewProver(cfg.KeyDir)
		if err != nil {
			logger.Fatal("prover setup failed: %v", err)
		}
		logger.Info("prover ready in %s", time.Since(start).Round(time.Millisecond))
		prover = local
	}

	session, err := bidder.NewSession(bidder.Config{
		Account:    account,
		Clock:      clock,
		Provider:   provider,
		Prover:     prover,
		Privileged: policy,
		Resolver:   bidder.NewHTTPResolver(cfg.IPFSGateway),
		StoreDir:   cfg.StoreDir,
	})
	if err != nil {
		logger.Fatal("session setup failed: %v", err)
	}
	logger.Info("acting as account %s", account.Key())

	metrics := NewMetricsCollector()
	health := NewHealthChecker(version)
	health.RegisterComponent("ledger", func() error {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := provider.ForAccount(account).LotCount(probeCtx)
		return err
	})
	health.RegisterComponent("wallet_store", func() error {
		return os.MkdirAll(cfg.StoreDir, 0o755)
	})

	api := &apiServer{
		session: session,
		logger:  logger,
		metrics: metrics,
		health:  health,
		limiter: NewClientRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill, time.Second),
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // proof generation can be slow
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server: %v", err)
		}
	}
	logger.Info("bidderd stopped")
}
