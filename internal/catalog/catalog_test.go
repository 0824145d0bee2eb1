package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"miracle_store/internal/dbtest"
	"miracle_store/internal/domain"
	"miracle_store/internal/paypal"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	products  map[string]paypal.Product
	seq       int
	failNext  error
	updates   []paypal.ProductUpdate
	deleted   []string
	listErr   error
	createErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{products: map[string]paypal.Product{}}
}

func (f *fakeMirror) CreateProduct(_ context.Context, p paypal.Product) (*paypal.Product, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	p.ID = fmt.Sprintf("PROD-%d", f.seq)
	f.products[p.ID] = p
	return &p, nil
}

func (f *fakeMirror) UpdateProduct(_ context.Context, id string, u paypal.ProductUpdate) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	p, ok := f.products[id]
	if !ok {
		return paypal.ErrNotFound
	}
	if u.Description != "" {
		p.Description = u.Description
	}
	f.products[id] = p
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeMirror) SoftDeleteProduct(_ context.Context, id string) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.deleted = append(f.deleted, id)
	if p, ok := f.products[id]; ok && !paypal.IsDeleted(p) {
		p.Description = paypal.DeletedMarker + " " + p.Description
		f.products[id] = p
	}
	return nil
}

func (f *fakeMirror) ListAllProducts(context.Context) ([]paypal.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]paypal.Product, 0, len(f.products))
	for i := 1; i <= f.seq+10; i++ {
		for _, id := range []string{fmt.Sprintf("PROD-%d", i), fmt.Sprintf("REMOTE-%d", i)} {
			if p, ok := f.products[id]; ok && !paypal.IsDeleted(p) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T, mirror Mirror) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(dbtest.New(t), rdb, mirror), mr
}

func candle() ItemInput {
	return ItemInput{
		Name:        ptr("Soy Candle"),
		Description: ptr("Hand poured"),
		Price:       ptr(decimal.RequireFromString("12.50")),
		Quantity:    ptr(5),
		ImageURL:    ptr("https://themiracle.love/uploads/candle.jpg"),
	}
}

func TestCreateItemMirrors(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)

	it, err := s.CreateItem(context.Background(), candle())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSynced, it.SyncStatus)
	require.True(t, it.HasMirror())
	assert.Equal(t, "PROD-1", *it.PayPalProductID)

	stored, err := s.GetItem(context.Background(), it.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "PROD-1", *stored.PayPalProductID)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestCreateItemMirrorFailureKeepsLocal(t *testing.T) {
	m := newFakeMirror()
	m.createErr = paypal.ErrForbidden
	s, _ := newService(t, m)

	it, err := s.CreateItem(context.Background(), candle())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusLocalOnly, it.SyncStatus)
	assert.False(t, it.HasMirror())

	items, err := s.ListItems(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreateItemWithoutMirror(t *testing.T) {
	s, _ := newService(t, nil)
	it, err := s.CreateItem(context.Background(), candle())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusLocalOnly, it.SyncStatus)
}

func TestCreateItemValidation(t *testing.T) {
	s, _ := newService(t, nil)
	ctx := context.Background()

	_, err := s.CreateItem(ctx, ItemInput{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrInvalidItem)

	in := candle()
	in.Price = ptr(decimal.Zero)
	_, err = s.CreateItem(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidItem)

	in = candle()
	in.Price = ptr(decimal.RequireFromString("0.001"))
	_, err = s.CreateItem(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidItem)

	in = candle()
	in.Quantity = ptr(-1)
	_, err = s.CreateItem(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestUpdateItemPatchesOnlyGivenFields(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	updated, err := s.UpdateItem(ctx, it.ID, ItemInput{Quantity: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, "Soy Candle", updated.Name)
	assert.Equal(t, "Hand poured", updated.Description)
	require.Len(t, m.updates, 1)
	assert.Equal(t, "Hand poured", m.updates[0].Description)
}

func TestUpdateItemMirrorFailureMarksLocalOnly(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	m.failNext = errors.New("boom")
	updated, err := s.UpdateItem(ctx, it.ID, ItemInput{Description: ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusLocalOnly, updated.SyncStatus)
	assert.Equal(t, "New", updated.Description)
}

func TestUpdateItemNotFound(t *testing.T) {
	s, _ := newService(t, nil)
	_, err := s.UpdateItem(context.Background(), 99, ItemInput{Quantity: ptr(1)})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDeleteMirroredItemIsSoft(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	soft, err := s.DeleteItem(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, soft)
	assert.Equal(t, []string{"PROD-1"}, m.deleted)

	_, err = s.GetItem(ctx, it.ID, false)
	assert.ErrorIs(t, err, ErrItemNotFound)
	hidden, err := s.GetItem(ctx, it.ID, true)
	require.NoError(t, err)
	assert.False(t, hidden.Available)
}

func TestDeleteLocalItemIsHard(t *testing.T) {
	s, _ := newService(t, nil)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	soft, err := s.DeleteItem(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, soft)
	_, err = s.GetItem(ctx, it.ID, true)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestPublicListCachedAndInvalidated(t *testing.T) {
	s, mr := newService(t, nil)
	ctx := context.Background()
	_, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	items, err := s.ListItems(ctx, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, mr.Exists(publicListKey))

	in := candle()
	in.Name = ptr("Print")
	_, err = s.CreateItem(ctx, in)
	require.NoError(t, err)
	assert.False(t, mr.Exists(publicListKey))

	items, err = s.ListItems(ctx, false)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestEditingHiddenItemKeepsProductDeleted(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)
	_, err = s.DeleteItem(ctx, it.ID)
	require.NoError(t, err)

	updated, err := s.UpdateItem(ctx, it.ID, ItemInput{Quantity: ptr(3), Description: ptr("Back soon")})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.Equal(t, 3, updated.Quantity)
	assert.Empty(t, m.updates)
	assert.True(t, paypal.IsDeleted(m.products["PROD-1"]))
}

func TestHidingItemSoftDeletesProduct(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	updated, err := s.UpdateItem(ctx, it.ID, ItemInput{Available: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.Equal(t, []string{"PROD-1"}, m.deleted)
	assert.Empty(t, m.updates)
	assert.True(t, paypal.IsDeleted(m.products["PROD-1"]))
}

func TestHidingItemMirrorFailureMarksLocalOnly(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)

	m.failNext = errors.New("boom")
	updated, err := s.UpdateItem(ctx, it.ID, ItemInput{Available: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusLocalOnly, updated.SyncStatus)
}

func TestShowingItemRestoresProduct(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	it, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)
	_, err = s.DeleteItem(ctx, it.ID)
	require.NoError(t, err)
	require.True(t, paypal.IsDeleted(m.products["PROD-1"]))

	updated, err := s.UpdateItem(ctx, it.ID, ItemInput{Available: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Available)
	require.Len(t, m.updates, 1)
	assert.False(t, paypal.IsDeleted(m.products["PROD-1"]))
	assert.Equal(t, "Hand poured", m.products["PROD-1"].Description)

	visible, err := s.GetItem(ctx, it.ID, false)
	require.NoError(t, err)
	assert.Equal(t, it.ID, visible.ID)
}

func TestShowingItemWithoutDescriptionUsesName(t *testing.T) {
	m := newFakeMirror()
	s, _ := newService(t, m)
	ctx := context.Background()
	in := candle()
	in.Description = nil
	it, err := s.CreateItem(ctx, in)
	require.NoError(t, err)
	_, err = s.UpdateItem(ctx, it.ID, ItemInput{Available: ptr(false)})
	require.NoError(t, err)

	_, err = s.UpdateItem(ctx, it.ID, ItemInput{Available: ptr(true)})
	require.NoError(t, err)
	require.Len(t, m.updates, 1)
	assert.Equal(t, "Soy Candle", m.updates[0].Description)
	assert.False(t, paypal.IsDeleted(m.products["PROD-1"]))
}

func TestUpdateItemDropsOnlyItsCacheKeys(t *testing.T) {
	s, mr := newService(t, nil)
	ctx := context.Background()
	first, err := s.CreateItem(ctx, candle())
	require.NoError(t, err)
	in := candle()
	in.Name = ptr("Print")
	second, err := s.CreateItem(ctx, in)
	require.NoError(t, err)

	_, err = s.GetItem(ctx, first.ID, false)
	require.NoError(t, err)
	_, err = s.GetItem(ctx, second.ID, false)
	require.NoError(t, err)
	_, err = s.ListItems(ctx, false)
	require.NoError(t, err)

	_, err = s.UpdateItem(ctx, first.ID, ItemInput{Quantity: ptr(1)})
	require.NoError(t, err)
	assert.False(t, mr.Exists(fmt.Sprintf("%s%d", publicItemKey, first.ID)))
	assert.False(t, mr.Exists(publicListKey))
	assert.True(t, mr.Exists(fmt.Sprintf("%s%d", publicItemKey, second.ID)))

	item, err := s.GetItem(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
}
