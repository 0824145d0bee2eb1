// Package stripe creates and reads Stripe Checkout sessions over the REST API.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Stripe API host
const DefaultBaseURL = "https://api.stripe.com"

var ErrNotConfigured = errors.New("stripe: secret key not configured")

// Config configures a Client
type Config struct {
	BaseURL    string
	SecretKey  string
	SuccessURL string // {CHECKOUT_SESSION_ID} is expanded by Stripe
	CancelURL  string
}

// Client is a minimal Stripe REST client
type Client struct {
	http       *resty.Client
	secretKey  string
	successURL string
	cancelURL  string
}

// LineItem is one cart line priced inline
type LineItem struct {
	Name      string
	ImageURL  string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CheckoutRequest describes a checkout session
type CheckoutRequest struct {
	Currency      string
	CustomerEmail string
	ClientRef     string // client_reference_id, our user id for signed-in buyers
	Items         []LineItem
}

// Session is a checkout session as Stripe returns it
type Session struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Status            string            `json:"status"`         // open, complete, expired
	PaymentStatus     string            `json:"payment_status"` // paid, unpaid, no_payment_required
	AmountTotal       int64             `json:"amount_total"`   // minor units
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	CustomerDetails   *CustomerDetails  `json:"customer_details"`
	Metadata          map[string]string `json:"metadata"`
	Raw               json.RawMessage   `json:"-"`
}

// CustomerDetails is the buyer as collected by Checkout
type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Error is a non-2xx answer from Stripe
type Error struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stripe: status %d", e.StatusCode)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds a client
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		http:       resty.New().SetBaseURL(strings.TrimRight(base, "/")).SetTimeout(30 * time.Second),
		secretKey:  cfg.SecretKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

// Configured reports whether a secret key is present
func (c *Client) Configured() bool {
	return c != nil && c.secretKey != ""
}

// zeroDecimal lists the currencies Stripe charges in whole units
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// MinorUnits converts a decimal amount to the smallest unit of currency
func MinorUnits(d decimal.Decimal, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return d.Round(0).IntPart()
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// sessionForm flattens a request into Stripe's bracketed form encoding
func (c *Client) sessionForm(req CheckoutRequest) map[string]string {
	form := map[string]string{
		"mode":        "payment",
		"success_url": c.successURL,
		"cancel_url":  c.cancelURL,
	}
	if req.CustomerEmail != "" {
		form["customer_email"] = req.CustomerEmail
	}
	if req.ClientRef != "" {
		form["client_reference_id"] = req.ClientRef
	}
	currency := strings.ToLower(req.Currency)
	for i, it := range req.Items {
		p := "line_items[" + strconv.Itoa(i) + "]"
		form[p+"[quantity]"] = strconv.Itoa(it.Quantity)
		form[p+"[price_data][currency]"] = currency
		form[p+"[price_data][unit_amount]"] = strconv.FormatInt(MinorUnits(it.UnitPrice, currency), 10)
		form[p+"[price_data][product_data][name]"] = it.Name
		if it.ImageURL != "" {
			form[p+"[price_data][product_data][images][0]"] = it.ImageURL
		}
	}
	return form
}

// CreateCheckoutSession starts a hosted checkout for req
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(req.Items) == 0 {
		return nil, errors.New("stripe: checkout has no items")
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.secretKey).
		SetFormData(c.sessionForm(req)).
		Post("/v1/checkout/sessions")
	return c.session(resp, err, "create checkout session")
}

// GetCheckoutSession reads a session by id
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.secretKey).
		SetPathParam("id", id).
		Get("/v1/checkout/sessions/{id}")
	return c.session(resp, err, "get checkout session")
}

func (c *Client) session(resp *resty.Response, err error, op string) (*Session, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	if resp.IsError() {
		var env errorEnvelope
		_ = json.Unmarshal(resp.Body(), &env)
		stripeErr := &Error{
			StatusCode: resp.StatusCode(),
			Type:       env.Error.Type,
			Code:       env.Error.Code,
			Message:    env.Error.Message,
		}
		logrus.WithFields(logrus.Fields{
			"op":     op,
			"status": stripeErr.StatusCode,
			"code":   stripeErr.Code,
		}).Warn("Stripe request failed")
		return nil, stripeErr
	}
	var s Session
	if err := json.Unmarshal(resp.Body(), &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", op, err)
	}
	s.Raw = resp.Body()
	return &s, nil
}
