package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ordersPath       = "/v2/checkout/orders"
	orderPath        = "/v2/checkout/orders/{id}"
	orderCapturePath = "/v2/checkout/orders/{id}/capture"
)

// Order statuses reported by PayPal
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusApproved  = "APPROVED"
	OrderStatusCompleted = "COMPLETED"
)

// Money is a PayPal amount
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// LineItem is one cart line sent to PayPal
type LineItem struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderRequest describes a checkout order to create
type CreateOrderRequest struct {
	ReferenceID string
	Currency    string
	Items       []LineItem
}

// Order is a checkout order as PayPal returns it
type Order struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Payer         *Payer          `json:"payer,omitempty"`
	PurchaseUnits []PurchaseUnit  `json:"purchase_units"`
	Links         []Link          `json:"links,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// Payer identifies the buyer
type Payer struct {
	PayerID      string `json:"payer_id"`
	EmailAddress string `json:"email_address"`
	Name         struct {
		GivenName string `json:"given_name"`
		Surname   string `json:"surname"`
	} `json:"name"`
}

// FullName joins given name and surname
func (p *Payer) FullName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.Name.GivenName == "":
		return p.Name.Surname
	case p.Name.Surname == "":
		return p.Name.GivenName
	}
	return p.Name.GivenName + " " + p.Name.Surname
}

// PurchaseUnit is a purchase unit of an order
type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	Amount      *Amount   `json:"amount,omitempty"`
	Items       []Item    `json:"items,omitempty"`
	Shipping    *Shipping `json:"shipping,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

// Amount is a total with an optional breakdown
type Amount struct {
	CurrencyCode string     `json:"currency_code"`
	Value        string     `json:"value"`
	Breakdown    *Breakdown `json:"breakdown,omitempty"`
}

// Breakdown splits an amount
type Breakdown struct {
	ItemTotal Money `json:"item_total"`
}

// Item is a line item of a purchase unit
type Item struct {
	Name       string `json:"name"`
	SKU        string `json:"sku,omitempty"`
	Quantity   string `json:"quantity"`
	UnitAmount Money  `json:"unit_amount"`
	Category   string `json:"category,omitempty"`
}

// Shipping is the shipping detail of a purchase unit
type Shipping struct {
	Name *struct {
		FullName string `json:"full_name"`
	} `json:"name,omitempty"`
	Address json.RawMessage `json:"address,omitempty"`
}

// Payments holds captures of a purchase unit
type Payments struct {
	Captures []Capture `json:"captures"`
}

// Capture is a captured payment
type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Money  `json:"amount"`
}

// Link is a HATEOAS link
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// ApproveURL returns the buyer approval link, if any
func (o *Order) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

type createOrderBody struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// CreateOrder creates a CAPTURE-intent order with an item breakdown
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("paypal: order has no items")
	}
	total := decimal.Zero
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, Item{
			Name:       it.Name,
			SKU:        it.SKU,
			Quantity:   strconv.Itoa(it.Quantity),
			UnitAmount: Money{CurrencyCode: req.Currency, Value: it.UnitPrice.StringFixed(2)},
			Category:   "PHYSICAL_GOODS",
		})
	}
	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []PurchaseUnit{{
			ReferenceID: req.ReferenceID,
			Amount: &Amount{
				CurrencyCode: req.Currency,
				Value:        total.StringFixed(2),
				Breakdown:    &Breakdown{ItemTotal: Money{CurrencyCode: req.Currency, Value: total.StringFixed(2)}},
			},
			Items: items,
		}},
	}

	var out Order
	raw, err := c.do(ctx, "create order", http.MethodPost, ordersPath, body, &out, func(r *resty.Request) {
		r.SetHeader("PayPal-Request-Id", uuid.NewString())
		r.SetHeader("Prefer", "return=representation")
	})
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// AlreadyCaptured reports whether err is PayPal refusing a second capture of the same order
func AlreadyCaptured(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(apiErr.Body, "ORDER_ALREADY_CAPTURED")
}

// CaptureOrder captures payment for an approved order
func (c *Client) CaptureOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	raw, err := c.do(ctx, "capture order", http.MethodPost, orderCapturePath, struct{}{}, &out, func(r *resty.Request) {
		r.SetPathParam("id", id)
		r.SetHeader("Prefer", "return=representation")
	})
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// GetOrder fetches an order
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	raw, err := c.do(ctx, "get order", http.MethodGet, orderPath, nil, &out, func(r *resty.Request) {
		r.SetPathParam("id", id)
	})
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}
