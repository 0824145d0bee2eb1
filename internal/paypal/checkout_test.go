package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderBuildsBreakdown(t *testing.T) {
	f, c := newFake(t)
	f.mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		var body createOrderBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body.Intent)
		require.Len(t, body.PurchaseUnits, 1)
		pu := body.PurchaseUnits[0]
		assert.Equal(t, "42.50", pu.Amount.Value)
		assert.Equal(t, "USD", pu.Amount.CurrencyCode)
		assert.Equal(t, "42.50", pu.Amount.Breakdown.ItemTotal.Value)
		require.Len(t, pu.Items, 2)
		assert.Equal(t, "2", pu.Items[0].Quantity)
		assert.Equal(t, "12.25", pu.Items[0].UnitAmount.Value)

		writeJSON(w, http.StatusCreated, map[string]any{
			"id":     "ORDER-1",
			"status": OrderStatusCreated,
			"links": []map[string]string{
				{"rel": "self", "href": "https://api/self"},
				{"rel": "approve", "href": "https://paypal/approve"},
			},
		})
	})

	o, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Currency: "USD",
		Items: []LineItem{
			{Name: "Candle", Quantity: 2, UnitPrice: decimal.RequireFromString("12.25")},
			{Name: "Print", Quantity: 1, UnitPrice: decimal.NewFromInt(18)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", o.ID)
	assert.Equal(t, "https://paypal/approve", o.ApproveURL())
	assert.NotEmpty(t, o.Raw)
}

func TestCreateOrderRequiresItems(t *testing.T) {
	_, c := newFake(t)
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{Currency: "USD"})
	assert.Error(t, err)
}

func TestCaptureOrder(t *testing.T) {
	f, c := newFake(t)
	f.mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ORDER-1", r.PathValue("id"))
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":     "ORDER-1",
			"status": OrderStatusCompleted,
			"payer": map[string]any{
				"payer_id":      "PAYER-9",
				"email_address": "buyer@example.com",
				"name":          map[string]string{"given_name": "Ada", "surname": "Lovelace"},
			},
			"purchase_units": []map[string]any{{
				"shipping": map[string]any{
					"name":    map[string]string{"full_name": "Ada Lovelace"},
					"address": map[string]string{"address_line_1": "1 Main St", "country_code": "US"},
				},
				"payments": map[string]any{
					"captures": []map[string]any{{
						"id":     "CAP-1",
						"status": "COMPLETED",
						"amount": map[string]string{"currency_code": "USD", "value": "42.50"},
					}},
				},
			}},
		})
	})

	o, err := c.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, o.Status)
	assert.Equal(t, "Ada Lovelace", o.Payer.FullName())
	require.Len(t, o.PurchaseUnits, 1)
	assert.Equal(t, "Ada Lovelace", o.PurchaseUnits[0].Shipping.Name.FullName)
	assert.JSONEq(t, `{"address_line_1":"1 Main St","country_code":"US"}`, string(o.PurchaseUnits[0].Shipping.Address))
	assert.Equal(t, "42.50", o.PurchaseUnits[0].Payments.Captures[0].Amount.Value)
}

func TestGetOrderNotFound(t *testing.T) {
	f, c := newFake(t)
	f.mux.HandleFunc("GET /v2/checkout/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"name": "RESOURCE_NOT_FOUND"})
	})

	_, err := c.GetOrder(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPayerFullName(t *testing.T) {
	var p *Payer
	assert.Equal(t, "", p.FullName())
	p = &Payer{}
	p.Name.GivenName = "Ada"
	assert.Equal(t, "Ada", p.FullName())
}
