// Package orders records provider orders and drives their payment and
// fulfillment status.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"miracle_store/internal/db"
	"miracle_store/internal/domain"
	"miracle_store/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	cachePrefix  = "orders:"        // Every order cache key starts with this
	listCacheTTL = 30 * time.Second // Order listings change often
	maxPageSize  = 100              // Upper bound for admin listings
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidOrder  = errors.New("invalid order")
)

// Service owns order writes
type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	gateway  Gateway  // PayPal checkout, nil when not configured
	sessions Sessions // Stripe checkout, nil when not configured
	currency string
}

// NewService wires an order service. rdb, gateway and sessions may be nil.
func NewService(gdb *gorm.DB, rdb *redis.Client, gateway Gateway, sessions Sessions, currency string) *Service {
	if currency == "" {
		currency = "USD"
	}
	return &Service{db: gdb, rdb: rdb, gateway: gateway, sessions: sessions, currency: currency}
}

// LineInput is one purchased line as reported by the provider
type LineInput struct {
	ItemID          *uint
	Name            string
	Price           decimal.Decimal
	Quantity        int
	PayPalProductID *string
	ImageURL        string
}

// CreateInput describes an order to record
type CreateInput struct {
	PayPalOrderID   string
	UserID          *uint // nil for guest checkout
	PayerID         string
	PayerEmail      string
	PayerName       string
	TotalAmount     decimal.Decimal // zero means sum of the lines
	Currency        string
	PaymentStatus   string // PENDING when empty
	ShippingName    string
	ShippingAddress json.RawMessage
	ProviderPayload json.RawMessage
	Items           []LineInput
}

// Create records an order once per PayPal order id. It returns the existing
// row with created=false when the id was already recorded.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, bool, error) {
	in.PayPalOrderID = strings.TrimSpace(in.PayPalOrderID)
	if in.PayPalOrderID == "" {
		return nil, false, fmt.Errorf("%w: missing PayPal order id", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return nil, false, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = domain.PaymentPending
	}
	if !domain.ValidPaymentStatus(in.PaymentStatus) {
		return nil, false, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, in.PaymentStatus)
	}
	log := logrus.WithField("paypal_order_id", in.PayPalOrderID)

	// Guests skip the user check
	if in.UserID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", *in.UserID).Count(&n).Error; err != nil {
			return nil, false, fmt.Errorf("failed to check user: %w", err)
		}
		if n == 0 {
			return nil, false, ErrUserNotFound
		}
	}

	if existing, err := s.byPayPalID(ctx, in.PayPalOrderID); err == nil {
		log.Info("Order already recorded")
		return existing, false, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, false, err
	}

	order := buildOrder(in, s.currency)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if order.PaymentStatus != domain.PaymentCompleted {
			return nil // Stock is taken once the payment completes
		}
		return adjustStock(tx, order.Items, true)
	})
	if err != nil {
		if db.IsDuplicateKey(err) {
			// Lost a race with a concurrent create of the same order
			existing, ferr := s.byPayPalID(ctx, in.PayPalOrderID)
			if ferr == nil {
				log.Info("Order recorded concurrently, returning existing row")
				return existing, false, nil
			}
		}
		log.WithError(err).Error("Failed to record order")
		return nil, false, fmt.Errorf("failed to record order: %w", err)
	}

	log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.TotalAmount.StringFixed(2),
		"payment":  order.PaymentStatus,
		"guest":    order.UserID == nil,
	}).Info("Order recorded")
	s.invalidate(ctx)
	s.invalidateItems(ctx)
	return &order, true, nil
}

func buildOrder(in CreateInput, defaultCurrency string) domain.Order {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	sum := decimal.Zero
	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, l := range in.Items {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		items = append(items, domain.OrderItem{
			ItemID:          l.ItemID,
			Name:            l.Name,
			Price:           l.Price.Round(2),
			Quantity:        l.Quantity,
			PayPalProductID: l.PayPalProductID,
			ImageURL:        l.ImageURL,
		})
	}
	total := in.TotalAmount
	if total.IsZero() {
		total = sum
	}
	return domain.Order{
		PayPalOrderID:     in.PayPalOrderID,
		PayerID:           in.PayerID,
		PayerEmail:        in.PayerEmail,
		PayerName:         in.PayerName,
		TotalAmount:       total.Round(2),
		Currency:          currency,
		PaymentStatus:     in.PaymentStatus,
		FulfillmentStatus: domain.FulfillmentPending,
		ShippingName:      in.ShippingName,
		ShippingAddress:   jsonOrNil(in.ShippingAddress),
		ProviderPayload:   jsonOrNil(in.ProviderPayload),
		UserID:            in.UserID,
		Items:             items,
	}
}

func jsonOrNil(b json.RawMessage) datatypes.JSON {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return datatypes.JSON(b)
}

func (s *Service) byPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("paypal_order_id = ?", paypalOrderID).First(&order).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// Get loads an order with its items
func (s *Service) Get(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// GetByPayPalID loads an order by its PayPal order id
func (s *Service) GetByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	return s.byPayPalID(ctx, paypalOrderID)
}

// FulfillmentPatch holds fulfillment fields; nil fields are not written
type FulfillmentPatch struct {
	Status         *string `json:"fulfillment_status"`
	TrackingNumber *string `json:"tracking_number"`
	Carrier        *string `json:"carrier"`
	Notes          *string `json:"fulfillment_notes"`
}

// UpdateFulfillment writes the provided fulfillment fields regardless of payment status
func (s *Service) UpdateFulfillment(ctx context.Context, id uint, p FulfillmentPatch) (*domain.Order, error) {
	updates := map[string]any{}
	if p.Status != nil {
		st := strings.ToUpper(strings.TrimSpace(*p.Status))
		if !domain.ValidFulfillmentStatus(st) {
			return nil, fmt.Errorf("%w: fulfillment status %q", ErrInvalidStatus, *p.Status)
		}
		updates["fulfillment_status"] = st
	}
	if p.TrackingNumber != nil {
		updates["tracking_number"] = strings.TrimSpace(*p.TrackingNumber)
	}
	if p.Carrier != nil {
		updates["carrier"] = strings.TrimSpace(*p.Carrier)
	}
	if p.Notes != nil {
		updates["fulfillment_notes"] = *p.Notes
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return order, nil
	}
	if err := s.db.WithContext(ctx).Model(order).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update fulfillment: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"order_id": id,
		"fields":   len(updates),
		"status":   updates["fulfillment_status"],
	}).Info("Order fulfillment updated")
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// UpdatePayment sets the payment status. Moving to COMPLETED restarts fulfillment at PENDING
// and takes stock; moving away from COMPLETED puts the stock back.
func (s *Service) UpdatePayment(ctx context.Context, id uint, status string) (*domain.Order, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !domain.ValidPaymentStatus(status) {
		return nil, fmt.Errorf("%w: payment status %q", ErrInvalidStatus, status)
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{"payment_status": status}
	if status == domain.PaymentCompleted {
		updates["fulfillment_status"] = domain.FulfillmentPending
	}
	completing := status == domain.PaymentCompleted && order.PaymentStatus != domain.PaymentCompleted
	reverting := status != domain.PaymentCompleted && order.PaymentStatus == domain.PaymentCompleted
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if completing || reverting {
			return adjustStock(tx, order.Items, completing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"order_id": id, "payment": status, "from": order.PaymentStatus}).Info("Order payment updated")
	s.invalidate(ctx)
	if completing || reverting {
		s.invalidateItems(ctx)
	}
	return s.Get(ctx, id)
}

// adjustStock takes (or returns) the quantities of the lines that reference an item.
// Taking never drives stock below zero; the buyer has already paid.
func adjustStock(tx *gorm.DB, lines []domain.OrderItem, take bool) error {
	for _, line := range lines {
		if line.ItemID == nil {
			continue
		}
		expr := gorm.Expr("quantity + ?", line.Quantity)
		if take {
			expr = gorm.Expr("CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END", line.Quantity, line.Quantity)
		}
		if err := tx.Model(&domain.Item{}).Where("id = ?", *line.ItemID).Update("quantity", expr).Error; err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
	}
	return nil
}

// ListForUser returns a user's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]domain.Order, error) {
	key := fmt.Sprintf("%suser:%d", cachePrefix, userID)
	var cached []domain.Order
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return cached, nil
	}
	orders := []domain.Order{}
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	_ = utils.SetCache(ctx, s.rdb, key, orders, listCacheTTL)
	return orders, nil
}

// Filter narrows the admin order listing
type Filter struct {
	PaymentStatus     string
	FulfillmentStatus string
	Email             string
	From              *time.Time
	To                *time.Time
}

// Page is one page of orders
type Page struct {
	Orders     []domain.Order `json:"orders"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
	Cached     bool           `json:"cached"`
}

func (f Filter) key(page, size int) string {
	parts := []string{
		"payment=" + f.PaymentStatus,
		"fulfillment=" + f.FulfillmentStatus,
		"email=" + f.Email,
	}
	if f.From != nil {
		parts = append(parts, "from="+f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		parts = append(parts, "to="+f.To.UTC().Format(time.RFC3339))
	}
	parts = append(parts, fmt.Sprintf("page=%d", page), fmt.Sprintf("size=%d", size))
	return cachePrefix + "admin:" + strings.Join(parts, ":")
}

// List returns a filtered page of all orders for admins
func (s *Service) List(ctx context.Context, f Filter, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = 20
	}
	key := f.key(page, size)
	var cached Page
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		cached.Cached = true
		return &cached, nil
	}

	query := s.db.WithContext(ctx).Model(&domain.Order{})
	if f.PaymentStatus != "" {
		query = query.Where("payment_status = ?", strings.ToUpper(f.PaymentStatus))
	}
	if f.FulfillmentStatus != "" {
		query = query.Where("fulfillment_status = ?", strings.ToUpper(f.FulfillmentStatus))
	}
	if f.Email != "" {
		query = query.Where("LOWER(payer_email) = ?", strings.ToLower(f.Email))
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	orders := []domain.Order{}
	if err := query.Preload("Items").Order("created_at desc, id desc").Offset((page - 1) * size).Limit(size).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	res := &Page{
		Orders:     orders,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (int(total) + size - 1) / size,
	}
	_ = utils.SetCache(ctx, s.rdb, key, res, listCacheTTL)
	return res, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := utils.DeleteCachePrefix(ctx, s.rdb, cachePrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate order cache")
	}
}

// invalidateItems drops catalog caches after stock changes
func (s *Service) invalidateItems(ctx context.Context) {
	if err := utils.DeleteCachePrefix(ctx, s.rdb, "items:"); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate item cache")
	}
}
