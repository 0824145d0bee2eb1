package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidURL(t *testing.T) {
	assert.True(t, ValidURL("https://themiracle.love/uploads/a.jpg"))
	assert.True(t, ValidURL("http://localhost:8080/x"))
	assert.False(t, ValidURL(""))
	assert.False(t, ValidURL("/uploads/a.jpg"))
	assert.False(t, ValidURL("ftp://host/file"))
	assert.False(t, ValidURL("not a url"))
}

func TestPatchOpsSkipsInvalidFields(t *testing.T) {
	ops := patchOps(ProductUpdate{
		Description: "  ",
		Category:    "CLOTHING",
		ImageURL:    "/uploads/relative.png",
		HomeURL:     "https://themiracle.love",
	})
	require.Len(t, ops, 2)
	assert.Equal(t, patchOp{Op: "replace", Path: "/category", Value: "CLOTHING"}, ops[0])
	assert.Equal(t, patchOp{Op: "replace", Path: "/home_url", Value: "https://themiracle.love"}, ops[1])

	assert.Empty(t, patchOps(ProductUpdate{ImageURL: "bad"}))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("✨", 100) // 3 bytes each
	cut := truncate(s, descMaxLength)
	assert.True(t, utf8.ValidString(cut))
	assert.Len(t, cut, 255)
	assert.Equal(t, "abc", truncate("abc", descMaxLength))
	assert.Equal(t, "", truncate("é", 1))

	ops := patchOps(ProductUpdate{Description: strings.Repeat("é", 200)})
	require.Len(t, ops, 1)
	assert.True(t, utf8.ValidString(ops[0].Value))
	assert.LessOrEqual(t, len(ops[0].Value), descMaxLength)
}

func TestUpdateProductNothingToUpdate(t *testing.T) {
	f, c := newFake(t)
	var hits atomic.Int32
	f.mux.HandleFunc("PATCH /v1/catalogs/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.UpdateProduct(context.Background(), "PROD-1", ProductUpdate{ImageURL: "relative.png"})
	assert.ErrorIs(t, err, ErrNothingToUpdate)
	assert.Zero(t, hits.Load())
	assert.Zero(t, f.tokenCalls.Load())
}

func TestUpdateProductSendsPatch(t *testing.T) {
	f, c := newFake(t)
	var got []patchOp
	f.mux.HandleFunc("PATCH /v1/catalogs/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PROD-1", r.PathValue("id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.UpdateProduct(context.Background(), "PROD-1", ProductUpdate{Description: "Soy candle", ImageURL: "https://cdn.example.com/a.png"})
	require.NoError(t, err)
	assert.Equal(t, []patchOp{
		{Op: "replace", Path: "/description", Value: "Soy candle"},
		{Op: "replace", Path: "/image_url", Value: "https://cdn.example.com/a.png"},
	}, got)
}

func TestCreateProductDefaults(t *testing.T) {
	f, c := newFake(t)
	f.mux.HandleFunc("POST /v1/catalogs/products", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("PayPal-Request-Id"))
		var in Product
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "PHYSICAL", in.Type)
		assert.Equal(t, "https://themiracle.love", in.HomeURL)
		assert.Empty(t, in.ImageURL)
		in.ID = "PROD-NEW"
		writeJSON(w, http.StatusCreated, in)
	})

	p, err := c.CreateProduct(context.Background(), Product{Name: "Candle", ImageURL: "/uploads/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "PROD-NEW", p.ID)
}

func TestSoftDeleteProduct(t *testing.T) {
	f, c := newFake(t)
	desc := "Hand poured"
	var patches atomic.Int32
	f.mux.HandleFunc("GET /v1/catalogs/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Product{ID: r.PathValue("id"), Name: "Candle", Description: desc})
	})
	f.mux.HandleFunc("PATCH /v1/catalogs/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		patches.Add(1)
		var ops []patchOp
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ops))
		require.Len(t, ops, 1)
		assert.Equal(t, "/description", ops[0].Path)
		desc = ops[0].Value
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.SoftDeleteProduct(ctx, "PROD-1"))
	assert.Equal(t, "[DELETED] Hand poured", desc)
	assert.True(t, IsDeleted(Product{Description: desc}))

	// Already marked: no second patch
	require.NoError(t, c.SoftDeleteProduct(ctx, "PROD-1"))
	assert.EqualValues(t, 1, patches.Load())
}

func TestSoftDeleteProductNotFound(t *testing.T) {
	f, c := newFake(t)
	f.mux.HandleFunc("GET /v1/catalogs/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"name": "RESOURCE_NOT_FOUND"})
	})

	err := c.SoftDeleteProduct(context.Background(), "GONE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAllProductsWalksPagesAndFilters(t *testing.T) {
	f, c := newFake(t)
	pages := map[int][]Product{
		1: {{ID: "A", Name: "a"}, {ID: "B", Name: "b", Description: DeletedMarker + " b"}},
		2: {{ID: "C", Name: "c"}},
	}
	var seen []int
	f.mux.HandleFunc("GET /v1/catalogs/products", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		seen = append(seen, page)
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))
		assert.Equal(t, "true", r.URL.Query().Get("total_required"))
		writeJSON(w, http.StatusOK, ProductPage{Products: pages[page], TotalItems: 3, TotalPages: 2})
	})

	all, err := c.ListAllProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, "C", all[1].ID)
}

func TestListProductsCapsPageSize(t *testing.T) {
	f, c := newFake(t)
	f.mux.HandleFunc("GET /v1/catalogs/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))
		writeJSON(w, http.StatusOK, ProductPage{})
	})

	_, err := c.ListProducts(context.Background(), 0, 500)
	require.NoError(t, err)
}
