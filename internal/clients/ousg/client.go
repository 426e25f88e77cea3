// Package ousg is the client for the OUSG token ledger service: mints on
// deposit, burns (transfers to the sink) on redemption.
package ousg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ustbills/internal/domain"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type transferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type transferResponse struct {
	BlockIndex uint64 `json:"block_index"`
}

// Transfer moves amount (6-decimal units) to the destination account and
// returns the resulting block index.
func (c *Client) Transfer(ctx context.Context, to domain.Principal, amount uint64) (uint64, error) {
	payload, err := json.Marshal(transferRequest{To: string(to), Amount: amount})
	if err != nil {
		return 0, fmt.Errorf("encode transfer: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/transfer", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call ousg ledger: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ousg ledger returned %d", resp.StatusCode)
	}
	var body transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode transfer response: %w", err)
	}
	return body.BlockIndex, nil
}
