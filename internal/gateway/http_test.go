package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
	"github.com/adrianvrj/zk-sealed-cattle/internal/gateway"
)

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()

	t.Run("lot count", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			check.Equal(t, http.MethodGet, r.Method)
			check.Equal(t, "/lots/count", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]uint64{"count": 7})
		}))
		defer srv.Close()

		n, err := gateway.NewHTTPClient(srv.URL, alice).LotCount(ctx)
		check.Nil(t, err)
		check.Equal(t, uint64(7), n)
	})

	t.Run("lot info", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			check.Equal(t, "/lots/3", r.URL.Path)
			json.NewEncoder(w).Encode(auction.RawLot{
				ID:        "3",
				Producer:  "0x1",
				Breed:     "hereford",
				StartTime: "1000",
				Duration:  "3600",
				BestBid:   "0",
			})
		}))
		defer srv.Close()

		raw, err := gateway.NewHTTPClient(srv.URL, alice).LotInfo(ctx, 3)
		check.Nil(t, err)
		check.Equal(t, "hereford", raw.Breed)
		check.Equal(t, "3600", raw.Duration)
	})

	t.Run("commit posts caller and commitment", func(t *testing.T) {
		var got map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			check.Equal(t, http.MethodPost, r.Method)
			check.Equal(t, "/lots/1/commit", r.URL.Path)
			check.Nil(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(gateway.Tx{Hash: "0xdeadbeef"})
		}))
		defer srv.Close()

		tx, err := gateway.NewHTTPClient(srv.URL, alice).CommitBid(ctx, 1, big.NewInt(12345))
		check.Nil(t, err)
		check.Equal(t, "0xdeadbeef", tx.Hash)
		check.Equal(t, "12345", got["commitment"])
		check.Equal(t, alice.Key(), got["caller"])
	})

	t.Run("non-2xx maps to rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bidding window is closed", http.StatusConflict)
		}))
		defer srv.Close()

		_, err := gateway.NewHTTPClient(srv.URL, alice).RevealBid(ctx, 1, big.NewInt(1), big.NewInt(2))
		var rej *gateway.RejectedError
		check.True(t, errors.As(err, &rej))
		check.True(t, rej.Reason != "")
	})

	t.Run("network failure maps to transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // closed before use

		_, err := gateway.NewHTTPClient(srv.URL, alice).FinalizeLot(ctx, 1)
		var te *gateway.TransportError
		check.True(t, errors.As(err, &te))
	})
}
