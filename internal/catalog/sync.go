package catalog

import (
	"context"
	"fmt"
	"strings"

	"miracle_store/internal/domain"
	"miracle_store/internal/paypal"

	"github.com/sirupsen/logrus"
)

// Overview is the admin view of both stores side by side
type Overview struct {
	Items       []domain.Item    `json:"items"`                  // Every local item, unavailable ones included
	Products    []paypal.Product `json:"paypal_products"`        // Live PayPal products
	RemoteOnly  []paypal.Product `json:"remote_only"`            // PayPal products no local item points at
	PayPalError string           `json:"paypal_error,omitempty"` // Set when the remote listing failed
}

// SyncFailure is an item Sync could not mirror
type SyncFailure struct {
	ItemID uint   `json:"item_id"`
	Name   string `json:"name"`
	Error  string `json:"error"`
}

// SyncReport summarises one Sync run
type SyncReport struct {
	Synced     []uint           `json:"synced"`  // Already linked to a live product
	Linked     []uint           `json:"linked"`  // Matched to a product by name
	Created    []uint           `json:"created"` // Mirrored as a new product
	Failed     []SyncFailure    `json:"failed"`
	RemoteOnly []paypal.Product `json:"remote_only"`
}

// Overview re-fetches local items and the remote catalog. A remote failure is reported, not returned.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	items, err := s.ListItems(ctx, true)
	if err != nil {
		return nil, err
	}
	ov := &Overview{Items: items, Products: []paypal.Product{}, RemoteOnly: []paypal.Product{}}
	if s.mirror == nil {
		ov.PayPalError = "PayPal is not configured"
		return ov, nil
	}
	products, err := s.mirror.ListAllProducts(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to list PayPal products for overview")
		ov.PayPalError = err.Error()
		return ov, nil
	}
	linked := make(map[string]bool, len(items))
	for _, it := range items {
		if it.HasMirror() {
			linked[*it.PayPalProductID] = true
		}
	}
	ov.Products = products
	for _, p := range products {
		if !linked[p.ID] {
			ov.RemoteOnly = append(ov.RemoteOnly, p)
		}
	}
	return ov, nil
}

// Sync reconciles available local items against the full remote catalog.
// Items linked to a live product are synced; otherwise an unclaimed product with
// the same name (case-insensitive) is linked; otherwise a product is created.
func (s *Service) Sync(ctx context.Context) (*SyncReport, error) {
	if s.mirror == nil {
		return nil, fmt.Errorf("sync unavailable: PayPal is not configured")
	}
	products, err := s.mirror.ListAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list PayPal products: %w", err)
	}
	items, err := s.ListItems(ctx, true)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]paypal.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	claimed := map[string]bool{}
	// Hidden items keep their products out of the remote-only list
	for _, it := range items {
		if !it.Available && it.HasMirror() {
			claimed[*it.PayPalProductID] = true
		}
	}

	report := &SyncReport{
		Synced:     []uint{},
		Linked:     []uint{},
		Created:    []uint{},
		Failed:     []SyncFailure{},
		RemoteOnly: []paypal.Product{},
	}
	var pending []*domain.Item

	// First pass: id matches, so name matching cannot steal a linked product
	for i := range items {
		it := &items[i]
		if !it.Available {
			continue
		}
		if it.HasMirror() {
			if _, ok := byID[*it.PayPalProductID]; ok && !claimed[*it.PayPalProductID] {
				claimed[*it.PayPalProductID] = true
				s.setSyncStatus(ctx, it, domain.SyncStatusSynced)
				report.Synced = append(report.Synced, it.ID)
				continue
			}
		}
		pending = append(pending, it)
	}

	for _, it := range pending {
		if p, ok := matchByName(products, claimed, it.Name); ok {
			claimed[p.ID] = true
			if s.link(ctx, it, p.ID) {
				report.Linked = append(report.Linked, it.ID)
				continue
			}
			report.Failed = append(report.Failed, SyncFailure{ItemID: it.ID, Name: it.Name, Error: "failed to store product id"})
			continue
		}
		created, err := s.mirror.CreateProduct(ctx, product(it))
		if err != nil {
			s.setSyncStatus(ctx, it, domain.SyncStatusLocalOnly)
			report.Failed = append(report.Failed, SyncFailure{ItemID: it.ID, Name: it.Name, Error: err.Error()})
			continue
		}
		claimed[created.ID] = true
		if s.link(ctx, it, created.ID) {
			report.Created = append(report.Created, it.ID)
		} else {
			report.Failed = append(report.Failed, SyncFailure{ItemID: it.ID, Name: it.Name, Error: "failed to store product id"})
		}
	}

	for _, p := range products {
		if !claimed[p.ID] {
			report.RemoteOnly = append(report.RemoteOnly, p)
		}
	}
	s.invalidate(ctx)

	logrus.WithFields(logrus.Fields{
		"synced":      len(report.Synced),
		"linked":      len(report.Linked),
		"created":     len(report.Created),
		"failed":      len(report.Failed),
		"remote_only": len(report.RemoteOnly),
	}).Info("Catalog sync finished")
	return report, nil
}

func matchByName(products []paypal.Product, claimed map[string]bool, name string) (paypal.Product, bool) {
	for _, p := range products {
		if !claimed[p.ID] && strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name)) {
			return p, true
		}
	}
	return paypal.Product{}, false
}
