package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPOracle queries an exchange-rate service over HTTP.
type HTTPOracle struct {
	base string
	http *http.Client
}

func NewHTTPOracle(baseURL string) *HTTPOracle {
	return &HTTPOracle{
		base: baseURL,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

type rateResponse struct {
	Rate float64 `json:"rate"`
}

func (o *HTTPOracle) GetRate(ctx context.Context, base, quote string) (float64, error) {
	url := fmt.Sprintf("%s/rates/%s/%s", o.base, base, quote)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build rate request: %w", err)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query rate oracle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate oracle returned %d", resp.StatusCode)
	}
	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}
	if body.Rate <= 0 {
		return 0, fmt.Errorf("rate oracle returned non-positive rate %f", body.Rate)
	}
	return body.Rate, nil
}
