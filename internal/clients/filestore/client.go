// Package filestore is the client for the external document store that
// receives KYC uploads. Registration is announced there so a user's later
// uploads have a home.
package filestore

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

// NotifyRegistered announces a new account to the document store.
func (c *Client) NotifyRegistered(ctx context.Context, p domain.Principal) error {
	payload, err := json.Marshal(map[string]string{"principal": string(p)})
	if err != nil {
		return fmt.Errorf("encode registration notice: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/users", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build registration notice: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify file store: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("file store returned %d", resp.StatusCode)
	}
	return nil
}
