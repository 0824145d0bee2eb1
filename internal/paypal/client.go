// Package paypal talks to the PayPal REST API: OAuth2 client-credentials
// tokens, the catalog products API and checkout orders.
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// tokenSkew renews the token slightly before PayPal expires it
const tokenSkew = time.Minute

// Config configures a Client
type Config struct {
	BaseURL      string        // API host, e.g. https://api-m.sandbox.paypal.com
	ClientID     string        // OAuth2 client id
	ClientSecret string        // OAuth2 client secret
	HomeURL      string        // home_url sent with created products
	Timeout      time.Duration // Per request timeout, 30s when zero
}

// Client is a PayPal REST client with an in-memory access token cache
type Client struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	homeURL      string

	mu        sync.Mutex
	token     string
	issuedAt  time.Time
	expiresIn time.Duration

	now func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// NewClient builds a client; credentials are checked lazily on the first call
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:         resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).SetTimeout(timeout),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		homeURL:      cfg.HomeURL,
		now:          time.Now,
	}
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

// accessToken returns the cached token, fetching a new one once issued-at + expires-in has passed
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.issuedAt.Add(c.expiresIn-tokenSkew)) {
		return c.token, nil
	}
	if !c.Configured() {
		return "", fmt.Errorf("%w: missing client credentials", ErrUnauthorized)
	}

	issuedAt := c.now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post("/v1/oauth2/token")
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if resp.IsError() {
		return "", newAPIError("get access token", resp)
	}

	var out tokenResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token not found in response")
	}

	c.token = out.AccessToken
	c.issuedAt = issuedAt
	c.expiresIn = time.Duration(out.ExpiresIn) * time.Second
	logrus.WithFields(logrus.Fields{
		"expires_in": out.ExpiresIn,
	}).Debug("PayPal access token refreshed")
	return c.token, nil
}

// dropToken forgets the cached token so the next call fetches a fresh one
func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do performs one authenticated call. It never retries.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, opts ...func(*resty.Request)) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		c.dropToken()
	}
	if resp.IsError() {
		apiErr := newAPIError(op, resp)
		logrus.WithFields(logrus.Fields{
			"op":       op,
			"status":   apiErr.StatusCode,
			"debug_id": apiErr.DebugID,
		}).Warn("PayPal request failed")
		return nil, apiErr
	}

	raw := resp.Body()
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", op, err)
		}
	}
	return raw, nil
}
