package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-merchant-link/internal/domain"
	"shopify-merchant-link/internal/ports"

	"github.com/rs/zerolog"
)

// maxErrorBody caps how much of an upstream error body ends up in logs
const maxErrorBody = 512

// Client calls the merchant KYC service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ ports.IdentityClient = (*Client)(nil)

// NewClient creates a merchant KYC client. Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a client on a caller-supplied http.Client
func NewClientWithHTTP(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// ConnectStore registers a store against a merchant. The access token must already be encrypted.
func (c *Client) ConnectStore(ctx context.Context, merchantID string, input ports.ConnectStoreInput) error {
	if merchantID == "" {
		return fmt.Errorf("%w: merchant id is required", domain.ErrValidation)
	}
	if input.Type == "" {
		input.Type = domain.StoreTypeShopify
	}

	resp, err := c.do(ctx, http.MethodPost, "/merchants/"+url.PathEscape(merchantID)+"/stores", input)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logFailure(resp, "connect store")
		return fmt.Errorf("%w: connect store returned status %d", domain.ErrUpstream, resp.StatusCode)
	}

	c.logger.Info().
		Str("merchantId", merchantID).
		Str("shop", input.ShopDomain).
		Msg("Store connected to merchant")
	return nil
}

// GetMerchant fetches a merchant with its connected stores
func (c *Client) GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	if merchantID == "" {
		return nil, fmt.Errorf("%w: merchant id is required", domain.ErrValidation)
	}

	resp, err := c.do(ctx, http.MethodGet, "/merchants/"+url.PathEscape(merchantID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: merchant %s", domain.ErrNotFound, merchantID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logFailure(resp, "get merchant")
		return nil, fmt.Errorf("%w: get merchant returned status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var merchant domain.Merchant
	if err := json.NewDecoder(resp.Body).Decode(&merchant); err != nil {
		return nil, fmt.Errorf("%w: decode merchant: %v", domain.ErrUpstream, err)
	}
	return &merchant, nil
}

// Login exchanges merchant credentials for a token. Rejected credentials yield nil, nil.
func (c *Client) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	resp, err := c.do(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Info().Int("status", resp.StatusCode).Msg("Merchant login rejected")
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logFailure(resp, "login")
		return nil, fmt.Errorf("%w: login returned status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var result ports.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode login response: %v", domain.ErrUpstream, err)
	}
	if result.Merchant.ID == "" {
		return nil, fmt.Errorf("%w: login response has no merchant id", domain.ErrUpstream)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrUpstream, method, path, err)
	}
	return resp, nil
}

func (c *Client) logFailure(resp *http.Response, op string) {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.logger.Error().
		Int("status", resp.StatusCode).
		Str("operation", op).
		Str("body", string(snippet)).
		Msg("Merchant KYC service request failed")
}
