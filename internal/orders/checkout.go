package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"miracle_store/internal/domain"
	"miracle_store/internal/paypal"
	"miracle_store/internal/stripe"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// skuPrefix tags PayPal line items with the local item id so a capture can be mapped back
const skuPrefix = "ITEM-"

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOutOfStock    = errors.New("not enough stock")
	ErrNotConfigured = errors.New("payment provider not configured")
)

// Gateway is the slice of the PayPal client used for checkout
type Gateway interface {
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, id string) (*paypal.Order, error)
	GetOrder(ctx context.Context, id string) (*paypal.Order, error)
}

// Sessions is the slice of the Stripe client used for checkout
type Sessions interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripe.Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.Session, error)
}

// CartLine is one line of a client cart. Prices always come from the database.
type CartLine struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,min=1"`
}

type pricedLine struct {
	item     domain.Item
	quantity int
}

// priceCart loads the referenced available items and checks stock
func (s *Service) priceCart(ctx context.Context, lines []CartLine) ([]pricedLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	// Merge repeated lines for the same item
	want := map[uint]int{}
	var order []uint
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
		}
		if _, seen := want[l.ItemID]; !seen {
			order = append(order, l.ItemID)
		}
		want[l.ItemID] += l.Quantity
	}
	var items []domain.Item
	if err := s.db.WithContext(ctx).Where("id IN ? AND available = ?", order, true).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	byID := make(map[uint]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]pricedLine, 0, len(order))
	for _, id := range order {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not available", ErrInvalidOrder, id)
		}
		if it.Quantity < want[id] {
			return nil, fmt.Errorf("%w: %s", ErrOutOfStock, it.Name)
		}
		out = append(out, pricedLine{item: it, quantity: want[id]})
	}
	return out, nil
}

// CheckoutPayPal creates a PayPal order for the cart and returns it for buyer approval
func (s *Service) CheckoutPayPal(ctx context.Context, lines []CartLine) (*paypal.Order, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	priced, err := s.priceCart(ctx, lines)
	if err != nil {
		return nil, err
	}
	req := paypal.CreateOrderRequest{Currency: s.currency}
	for _, p := range priced {
		req.Items = append(req.Items, paypal.LineItem{
			Name:      p.item.Name,
			SKU:       skuPrefix + strconv.FormatUint(uint64(p.item.ID), 10),
			Quantity:  p.quantity,
			UnitPrice: p.item.Price,
		})
	}
	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"paypal_order_id": order.ID, "lines": len(req.Items)}).Info("PayPal order created")
	return order, nil
}

// CaptureAndRecord captures an approved PayPal order and records it. An order
// that is already recorded is returned without a second capture.
func (s *Service) CaptureAndRecord(ctx context.Context, paypalOrderID string, userID *uint) (*domain.Order, bool, error) {
	if existing, err := s.byPayPalID(ctx, paypalOrderID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, false, err
	}
	if s.gateway == nil {
		return nil, false, ErrNotConfigured
	}
	captured, err := s.gateway.CaptureOrder(ctx, paypalOrderID)
	if paypal.AlreadyCaptured(err) {
		// Captured earlier but never recorded here
		logrus.WithField("paypal_order_id", paypalOrderID).Warn("Order already captured, recording from order details")
		captured, err = s.gateway.GetOrder(ctx, paypalOrderID)
	}
	if err != nil {
		return nil, false, err
	}
	if !hasItems(captured) {
		// Capture responses may omit the item breakdown
		full, err := s.gateway.GetOrder(ctx, paypalOrderID)
		if err != nil {
			return nil, false, err
		}
		full.Raw = captured.Raw
		if full.Payer == nil {
			full.Payer = captured.Payer
		}
		captured = mergeCaptures(full, captured)
	}
	in, err := s.captureInput(ctx, captured)
	if err != nil {
		return nil, false, err
	}
	in.UserID = userID
	return s.Create(ctx, in)
}

func hasItems(o *paypal.Order) bool {
	for _, pu := range o.PurchaseUnits {
		if len(pu.Items) > 0 {
			return true
		}
	}
	return false
}

// mergeCaptures copies payment captures from src into dst where dst has none
func mergeCaptures(dst, src *paypal.Order) *paypal.Order {
	for i := range dst.PurchaseUnits {
		if i < len(src.PurchaseUnits) && dst.PurchaseUnits[i].Payments == nil {
			dst.PurchaseUnits[i].Payments = src.PurchaseUnits[i].Payments
		}
	}
	if dst.Status != paypal.OrderStatusCompleted {
		dst.Status = src.Status
	}
	return dst
}

// paymentStatus maps a PayPal order onto the local payment states
func paymentStatus(o *paypal.Order) string {
	failed := false
	for _, pu := range o.PurchaseUnits {
		if pu.Payments == nil {
			continue
		}
		for _, c := range pu.Payments.Captures {
			switch c.Status {
			case "COMPLETED":
				return domain.PaymentCompleted
			case "DECLINED", "FAILED":
				failed = true
			}
		}
	}
	if failed {
		return domain.PaymentFailed
	}
	if o.Status == paypal.OrderStatusCompleted {
		return domain.PaymentCompleted
	}
	return domain.PaymentPending
}

// captureInput builds the Create input from a captured order, snapshotting local items
func (s *Service) captureInput(ctx context.Context, o *paypal.Order) (CreateInput, error) {
	in := CreateInput{
		PayPalOrderID:   o.ID,
		PaymentStatus:   paymentStatus(o),
		ProviderPayload: o.Raw,
		Currency:        s.currency,
	}
	if o.Payer != nil {
		in.PayerID = o.Payer.PayerID
		in.PayerEmail = o.Payer.EmailAddress
		in.PayerName = o.Payer.FullName()
	}
	total := decimal.Zero
	for _, pu := range o.PurchaseUnits {
		if pu.Shipping != nil {
			if pu.Shipping.Name != nil {
				in.ShippingName = pu.Shipping.Name.FullName
			}
			in.ShippingAddress = pu.Shipping.Address
		}
		if pu.Payments != nil {
			for _, c := range pu.Payments.Captures {
				if v, err := decimal.NewFromString(c.Amount.Value); err == nil {
					total = total.Add(v)
					in.Currency = c.Amount.CurrencyCode
				}
			}
		}
		for _, li := range pu.Items {
			qty, err := strconv.Atoi(li.Quantity)
			if err != nil || qty < 1 {
				return in, fmt.Errorf("%w: bad quantity %q", ErrInvalidOrder, li.Quantity)
			}
			price, err := decimal.NewFromString(li.UnitAmount.Value)
			if err != nil {
				return in, fmt.Errorf("%w: bad price %q", ErrInvalidOrder, li.UnitAmount.Value)
			}
			line := LineInput{Name: li.Name, Price: price, Quantity: qty}
			s.snapshot(ctx, li.SKU, &line)
			in.Items = append(in.Items, line)
		}
	}
	in.TotalAmount = total
	return in, nil
}

// snapshot fills the local references of a line from the item named by sku
func (s *Service) snapshot(ctx context.Context, sku string, line *LineInput) {
	if !strings.HasPrefix(sku, skuPrefix) {
		return
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(sku, skuPrefix), 10, 64)
	if err != nil {
		return
	}
	var item domain.Item
	if err := s.db.WithContext(ctx).First(&item, uint(id)).Error; err != nil {
		logrus.WithFields(logrus.Fields{"sku": sku, "error": err}).Warn("Captured item no longer exists locally")
		return
	}
	itemID := item.ID
	line.ItemID = &itemID
	line.PayPalProductID = item.PayPalProductID
	line.ImageURL = item.ImageURL
}

// CheckoutStripe opens a Stripe Checkout session for the cart
func (s *Service) CheckoutStripe(ctx context.Context, lines []CartLine, email string, userID *uint) (*stripe.Session, error) {
	if s.sessions == nil {
		return nil, ErrNotConfigured
	}
	priced, err := s.priceCart(ctx, lines)
	if err != nil {
		return nil, err
	}
	req := stripe.CheckoutRequest{Currency: s.currency, CustomerEmail: email}
	if userID != nil {
		req.ClientRef = strconv.FormatUint(uint64(*userID), 10)
	}
	for _, p := range priced {
		req.Items = append(req.Items, stripe.LineItem{
			Name:      p.item.Name,
			ImageURL:  p.item.ImageURL,
			Quantity:  p.quantity,
			UnitPrice: p.item.Price,
		})
	}
	sess, err := s.sessions.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"session_id": sess.ID, "lines": len(req.Items)}).Info("Stripe checkout session created")
	return sess, nil
}

// StripeSession reads back a Stripe Checkout session
func (s *Service) StripeSession(ctx context.Context, id string) (*stripe.Session, error) {
	if s.sessions == nil {
		return nil, ErrNotConfigured
	}
	return s.sessions.GetCheckoutSession(ctx, id)
}
