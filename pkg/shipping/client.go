package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
)

const (
	feesPath                    = "fees"
	checkoutFeesPath            = "fees/checkout"
	responseBodyReadLimit int64 = 1024
	defaultTimeout              = 10 * time.Second
)

var errBaseURLRequired = errors.New("shipping base url is required")

// Client calls the external pricing service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	currency   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sets the key sent in the X-Api-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithDefaultCurrency sets the currency assumed when the provider omits one.
func WithDefaultCurrency(currency string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(currency); trimmed != "" {
			c.currency = strings.ToUpper(trimmed)
		}
	}
}

// WithTimeout overrides the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the pricing client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		currency:   "VND",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// FetchFee prices a set of selected items against an address.
func (c *Client) FetchFee(ctx context.Context, req ItemsRequest) (Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping client not configured")
	}
	if len(req.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	return c.post(ctx, feesPath, req)
}

// FetchCheckoutFee prices the full per-shop item map for the checkout address.
func (c *Client) FetchCheckoutFee(ctx context.Context, req CheckoutRequest) (Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping client not configured")
	}
	if len(req.Shops) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one shop is required")
	}
	return c.post(ctx, checkoutFeesPath, req)
}

func (c *Client) post(ctx context.Context, path string, body any) (Quote, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal fee request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build fee request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute fee request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedAddress, "carrier does not deliver to this address").
			WithDetails(map[string]any{"provider_message": strings.TrimSpace(string(msg))})
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "fee request failed")
	}

	var apiResp struct {
		Fees map[string]Fee `json:"fees"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode fee response")
	}

	quote := make(Quote, len(apiResp.Fees))
	for shopID, fee := range apiResp.Fees {
		if fee.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned a negative fee")
		}
		if strings.TrimSpace(fee.Currency) == "" {
			fee.Currency = c.currency
		}
		quote[shopID] = fee
	}
	return quote, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
