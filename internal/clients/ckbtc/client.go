// Package ckbtc is the read-side client for the ckBTC ledger service, used
// to verify that a claimed deposit transfer exists.
package ckbtc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ustbills/internal/domain"
	"ustbills/internal/minting"
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

type transactionResponse struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     uint64 `json:"amount"`
	IsTransfer bool   `json:"is_transfer"`
}

// GetTransaction fetches the ledger entry at blockIndex.
func (c *Client) GetTransaction(ctx context.Context, blockIndex uint64) (minting.LedgerTransfer, error) {
	url := fmt.Sprintf("%s/transactions/%d", c.base, blockIndex)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return minting.LedgerTransfer{}, fmt.Errorf("build ledger request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return minting.LedgerTransfer{}, fmt.Errorf("query ckbtc ledger: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return minting.LedgerTransfer{}, fmt.Errorf("ckbtc ledger returned %d for block %d", resp.StatusCode, blockIndex)
	}
	var body transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return minting.LedgerTransfer{}, fmt.Errorf("decode ledger response: %w", err)
	}
	return minting.LedgerTransfer{
		From:       domain.Principal(body.From),
		To:         domain.Principal(body.To),
		Amount:     body.Amount,
		IsTransfer: body.IsTransfer,
	}, nil
}
