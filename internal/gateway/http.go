// http.go - HTTP JSON client for a remote auction ledger service.
//
// The remote service speaks the same resource model as the in-memory chain:
//
//	GET  /lots/count
//	GET  /lots/{id}
//	POST /lots
//	POST /lots/{id}/commit
//	POST /lots/{id}/reveal
//	POST /lots/{id}/finalize
//
// A non-2xx status maps to RejectedError; a network-level failure maps to
// TransportError.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
)

// HTTPClient is a Gateway backed by a remote ledger service. All calls are
// issued as the identity given at construction.
type HTTPClient struct {
	base   string
	caller auction.Identity
	client *http.Client
}

// NewHTTPClient returns a client for the service at base, calling as the
// given identity.
func NewHTTPClient(base string, caller auction.Identity) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(base, "/"),
		caller: caller,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) LotCount(ctx context.Context) (uint64, error) {
	var out struct {
		Count uint64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/lots/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *HTTPClient) LotInfo(ctx context.Context, lotID uint64) (*auction.RawLot, error) {
	var raw auction.RawLot
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/lots/%d", lotID), nil, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (c *HTTPClient) CreateLot(ctx context.Context, p CreateLotParams) (*Tx, error) {
	body := map[string]any{
		"id":             p.ID,
		"producer":       p.Producer.Key(),
		"breed":          p.Breed,
		"initial_weight": p.InitialWeight,
		"head_count":     p.HeadCount,
		"metadata_uri":   p.MetadataURI,
		"duration":       p.Duration,
		"caller":         c.caller.Key(),
	}
	return c.postTx(ctx, "/lots", body)
}

func (c *HTTPClient) CommitBid(ctx context.Context, lotID uint64, cm *big.Int) (*Tx, error) {
	body := map[string]any{
		"commitment": cm.String(),
		"caller":     c.caller.Key(),
	}
	return c.postTx(ctx, fmt.Sprintf("/lots/%d/commit", lotID), body)
}

func (c *HTTPClient) RevealBid(ctx context.Context, lotID uint64, amount, secret *big.Int) (*Tx, error) {
	body := map[string]any{
		"amount": amount.String(),
		"secret": secret.String(),
		"caller": c.caller.Key(),
	}
	return c.postTx(ctx, fmt.Sprintf("/lots/%d/reveal", lotID), body)
}

func (c *HTTPClient) FinalizeLot(ctx context.Context, lotID uint64) (*Tx, error) {
	body := map[string]any{
		"caller": c.caller.Key(),
	}
	return c.postTx(ctx, fmt.Sprintf("/lots/%d/finalize", lotID), body)
}

func (c *HTTPClient) postTx(ctx context.Context, path string, body any) (*Tx, error) {
	var tx Tx
	if err := c.do(ctx, http.MethodPost, path, body, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Err: err}
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return &TransportError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &TransportError{Err: err}
		}
	}
	return nil
}
