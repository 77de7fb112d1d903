// Package exchange talks to the external currency-rate provider.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bankrest.org/internal/ledger"
)

const defaultTimeout = 10 * time.Second

// Client fetches exchange rates over HTTP. The provider returns rates
// relative to the home unit as {"data": {"EUR": 0.93, ...}} and answers
// 422 when any requested code is unknown.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a Client for the given provider endpoint.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ratesResponse struct {
	Data map[string]float64 `json:"data"`
}

// Rates returns a currency code -> rate map. An empty code list asks the
// provider for all supported currencies.
func (c *Client) Rates(ctx context.Context, codes []string) (map[string]float64, error) {
	u := c.baseURL + "?currencies=" + url.QueryEscape(strings.Join(codes, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ledger.ErrInvalidCurrency
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ledger.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ledger.ErrUpstreamUnavailable, err)
	}
	return body.Data, nil
}

var _ ledger.RateGateway = (*Client)(nil)
