// Package catalog keeps the local item table and the PayPal product catalog
// loosely in step. The local write always wins; the PayPal call that follows
// is best-effort and a failure only flags the item as local_only until an
// admin runs Sync.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"miracle_store/internal/db"
	"miracle_store/internal/domain"
	"miracle_store/internal/paypal"
	"miracle_store/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	cachePrefix    = "items:"             // Every catalog cache key starts with this
	publicListKey  = "items:public:list"  // Public listing
	publicItemKey  = "items:public:item:" // Public single item, suffixed with the id
	publicCacheTTL = 60 * time.Second     // Public listing cache lifetime
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("invalid item")
)

// Mirror is the slice of the PayPal client the catalog needs
type Mirror interface {
	CreateProduct(ctx context.Context, p paypal.Product) (*paypal.Product, error)
	UpdateProduct(ctx context.Context, id string, u paypal.ProductUpdate) error
	SoftDeleteProduct(ctx context.Context, id string) error
	ListAllProducts(ctx context.Context) ([]paypal.Product, error)
}

// Service owns item writes
type Service struct {
	db     *gorm.DB
	rdb    *redis.Client // nil disables caching
	mirror Mirror        // nil disables mirroring
}

// NewService wires a catalog service. rdb and mirror may be nil.
func NewService(gdb *gorm.DB, rdb *redis.Client, mirror Mirror) *Service {
	return &Service{db: gdb, rdb: rdb, mirror: mirror}
}

// ItemInput carries item fields; nil fields are left untouched on update
type ItemInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	ImageURL    *string          `json:"image_url"`
	Available   *bool            `json:"available"`
}

func (in ItemInput) validate(creating bool) error {
	if creating && (in.Name == nil || in.Price == nil) {
		return fmt.Errorf("%w: name and price are required", ErrInvalidItem)
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" || len(n) > 127 {
			return fmt.Errorf("%w: name must be 1-127 characters", ErrInvalidItem)
		}
	}
	if in.Price != nil && !in.Price.Round(2).IsPositive() {
		return fmt.Errorf("%w: price must be at least 0.01", ErrInvalidItem)
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidItem)
	}
	return nil
}

// product maps an item onto the PayPal product shape
func product(it *domain.Item) paypal.Product {
	return paypal.Product{
		Name:        it.Name,
		Description: it.Description,
		Type:        "PHYSICAL",
		ImageURL:    it.ImageURL,
	}
}

// CreateItem inserts the item, then tries to mirror it. A mirror failure keeps the item local_only.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*domain.Item, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	item := domain.Item{
		Name:       strings.TrimSpace(*in.Name),
		Price:      in.Price.Round(2),
		SyncStatus: domain.SyncStatusLocalOnly,
		Available:  true,
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		logrus.WithError(err).Error("Failed to create item")
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	logrus.WithFields(logrus.Fields{"item_id": item.ID, "name": item.Name}).Info("Item created")

	s.mirrorCreate(ctx, &item)
	s.invalidateItem(ctx, item.ID)
	return &item, nil
}

// mirrorCreate creates the PayPal product for item and records the link
func (s *Service) mirrorCreate(ctx context.Context, item *domain.Item) bool {
	if s.mirror == nil {
		return false
	}
	p, err := s.mirror.CreateProduct(ctx, product(item))
	if err != nil {
		logrus.WithFields(logrus.Fields{"item_id": item.ID, "error": err}).Warn("PayPal mirror failed, item kept local_only")
		return false
	}
	return s.link(ctx, item, p.ID)
}

// link stores a PayPal product id on item and marks it synced
func (s *Service) link(ctx context.Context, item *domain.Item, productID string) bool {
	err := s.db.WithContext(ctx).Model(item).Updates(map[string]any{
		"paypal_product_id": productID,
		"sync_status":       domain.SyncStatusSynced,
	}).Error
	if err != nil {
		logrus.WithFields(logrus.Fields{"item_id": item.ID, "product_id": productID, "error": err}).Error("Failed to store PayPal product id")
		return false
	}
	item.PayPalProductID = &productID
	item.SyncStatus = domain.SyncStatusSynced
	return true
}

func (s *Service) setSyncStatus(ctx context.Context, item *domain.Item, status string) {
	if item.SyncStatus == status {
		return
	}
	if err := s.db.WithContext(ctx).Model(item).Update("sync_status", status).Error; err != nil {
		logrus.WithFields(logrus.Fields{"item_id": item.ID, "error": err}).Error("Failed to update sync status")
		return
	}
	item.SyncStatus = status
}

// GetItem loads one item. Unavailable items are hidden unless includeUnavailable is set.
func (s *Service) GetItem(ctx context.Context, id uint, includeUnavailable bool) (*domain.Item, error) {
	key := fmt.Sprintf("%s%d", publicItemKey, id)
	if !includeUnavailable {
		var cached domain.Item
		if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
			return &cached, nil
		}
	}
	var item domain.Item
	q := s.db.WithContext(ctx)
	if !includeUnavailable {
		q = q.Where("available = ?", true)
	}
	if err := q.First(&item, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if !includeUnavailable {
		_ = utils.SetCache(ctx, s.rdb, key, item, publicCacheTTL)
	}
	return &item, nil
}

// ListItems returns items newest first. The public listing is served from cache when possible.
func (s *Service) ListItems(ctx context.Context, includeUnavailable bool) ([]domain.Item, error) {
	if !includeUnavailable {
		var cached []domain.Item
		if found, err := utils.GetCache(ctx, s.rdb, publicListKey, &cached); err == nil && found {
			return cached, nil
		}
	}
	items := []domain.Item{}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if !includeUnavailable {
		q = q.Where("available = ?", true)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	if !includeUnavailable {
		_ = utils.SetCache(ctx, s.rdb, publicListKey, items, publicCacheTTL)
	}
	return items, nil
}

// UpdateItem applies the non-nil fields of in, then patches the mirror when there is one
func (s *Service) UpdateItem(ctx context.Context, id uint, in ItemInput) (*domain.Item, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	item, err := s.GetItem(ctx, id, true)
	if err != nil {
		return nil, err
	}
	wasAvailable := item.Available
	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = in.Price.Round(2)
	}
	if in.Quantity != nil {
		updates["quantity"] = *in.Quantity
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if in.Available != nil {
		updates["available"] = *in.Available
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
		if err := s.db.WithContext(ctx).First(item, id).Error; err != nil {
			return nil, fmt.Errorf("failed to reload item: %w", err)
		}
	}
	logrus.WithFields(logrus.Fields{"item_id": id, "fields": len(updates)}).Info("Item updated")

	if s.mirror != nil && item.HasMirror() {
		s.mirrorUpdate(ctx, item, wasAvailable)
	}
	s.invalidateItem(ctx, id)
	return item, nil
}

// mirrorUpdate pushes an edit to the linked product. A hidden item keeps its product
// soft-deleted; hiding or showing the item moves the marker with it.
func (s *Service) mirrorUpdate(ctx context.Context, item *domain.Item, wasAvailable bool) {
	productID := *item.PayPalProductID
	var err error
	switch {
	case !item.Available && wasAvailable:
		err = s.mirror.SoftDeleteProduct(ctx, productID)
	case !item.Available:
		return // Still hidden, the description patch would drop the marker
	default:
		desc := item.Description
		if desc == "" && !wasAvailable {
			desc = item.Name // Something has to replace the marked description
		}
		err = s.mirror.UpdateProduct(ctx, productID, paypal.ProductUpdate{
			Description: desc,
			ImageURL:    item.ImageURL,
		})
	}
	switch {
	case err == nil:
		s.setSyncStatus(ctx, item, domain.SyncStatusSynced)
	case errors.Is(err, paypal.ErrNothingToUpdate):
		// Only locally held fields changed
	default:
		logrus.WithFields(logrus.Fields{"item_id": item.ID, "product_id": productID, "error": err}).Warn("PayPal update failed, item marked local_only")
		s.setSyncStatus(ctx, item, domain.SyncStatusLocalOnly)
	}
}

// DeleteItem hides a mirrored item and soft-deletes its PayPal product; an unmirrored item is removed
func (s *Service) DeleteItem(ctx context.Context, id uint) (softDeleted bool, err error) {
	item, err := s.GetItem(ctx, id, true)
	if err != nil {
		return false, err
	}
	defer s.invalidateItem(ctx, id)

	if !item.HasMirror() {
		if err := s.db.WithContext(ctx).Delete(&domain.Item{}, id).Error; err != nil {
			return false, fmt.Errorf("failed to delete item: %w", err)
		}
		logrus.WithField("item_id", id).Info("Item deleted")
		return false, nil
	}

	if err := s.db.WithContext(ctx).Model(item).Update("available", false).Error; err != nil {
		return false, fmt.Errorf("failed to hide item: %w", err)
	}
	logrus.WithFields(logrus.Fields{"item_id": id, "product_id": *item.PayPalProductID}).Info("Item marked unavailable")

	if s.mirror != nil {
		if err := s.mirror.SoftDeleteProduct(ctx, *item.PayPalProductID); err != nil {
			logrus.WithFields(logrus.Fields{"item_id": id, "error": err}).Warn("PayPal soft delete failed")
			s.setSyncStatus(ctx, item, domain.SyncStatusLocalOnly)
		}
	}
	return true, nil
}

// invalidateItem drops the public listing and the cached copy of one item
func (s *Service) invalidateItem(ctx context.Context, id uint) {
	for _, key := range []string{publicListKey, fmt.Sprintf("%s%d", publicItemKey, id)} {
		if err := utils.DeleteCache(ctx, s.rdb, key); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err}).Warn("Failed to invalidate item cache")
		}
	}
}

// invalidate drops every cached catalog view
func (s *Service) invalidate(ctx context.Context) {
	if err := utils.DeleteCachePrefix(ctx, s.rdb, cachePrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate item cache")
	}
}
