// main.go - Winning-bid proof service.
//
// proofd compiles the winning-bid circuit once, sets up or loads the Groth16
// keys, and serves proof requests over HTTP. The bidder daemon points its
// proof_api at this service to keep proving off the bidding host.
//
// Usage:
//
//	proofd [-listen :8481] [-keys keys]

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/adrianvrj/zk-sealed-cattle/internal/proof"
)

func main() {
	listen := flag.String("listen", ":8481", "listen address")
	keyDir := flag.String("keys", "keys", "directory for Groth16 keys")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
	// Route constraint-system and setup progress through the same sink.
	gnarklogger.Set(log)

	log.Info().Str("key_dir", *keyDir).Msg("compiling circuit and preparing keys")
	start := time.Now()
	prover, err := proof.NewProver(*keyDir)
	if err != nil {
		log.Fatal().Err(err).Msg("prover setup failed")
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("prover ready")

	mux := http.NewServeMux()
	mux.Handle("/prove", proof.Handler(prover))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         *listen,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *listen).Msg("serving proof requests")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}
}
