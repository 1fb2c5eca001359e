// resolver.go - Off-chain lot metadata resolution.

package bidder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adrianvrj/zk-sealed-cattle/internal/auction"
)

// HTTPResolver fetches lot metadata JSON over HTTP. ipfs:// URIs are
// rewritten through the configured gateway.
type HTTPResolver struct {
	ipfsGateway string
	client      *http.Client
}

// NewHTTPResolver returns a resolver using the given IPFS gateway base URL,
// e.g. "https://ipfs.io/ipfs/".
func NewHTTPResolver(ipfsGateway string) *HTTPResolver {
	return &HTTPResolver{
		ipfsGateway: strings.TrimRight(ipfsGateway, "/") + "/",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, uri string) (*auction.LotMetadata, error) {
	url := uri
	if cid, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		url = r.ipfsGateway + cid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata fetch: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var md auction.LotMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("metadata decode: %w", err)
	}
	return &md, nil
}
