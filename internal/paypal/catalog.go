package paypal

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// DeletedMarker prefixes the description of soft-deleted products.
// The catalog API has no delete endpoint.
const DeletedMarker = "[DELETED]"

const (
	productsPath  = "/v1/catalogs/products"
	productPath   = "/v1/catalogs/products/{id}"
	maxPageSize   = 20
	maxListPages  = 100
	defaultType   = "PHYSICAL"
	descMaxLength = 256
)

// Product is a catalog product
type Product struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	HomeURL     string `json:"home_url,omitempty"`
	CreateTime  string `json:"create_time,omitempty"`
	UpdateTime  string `json:"update_time,omitempty"`
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products   []Product `json:"products"`
	TotalItems int       `json:"total_items"`
	TotalPages int       `json:"total_pages"`
}

// ProductUpdate holds candidate values for a product patch. Empty or invalid values are skipped.
type ProductUpdate struct {
	Description string
	Category    string
	ImageURL    string
	HomeURL     string
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// IsDeleted reports whether p was soft-deleted
func IsDeleted(p Product) bool {
	return strings.HasPrefix(p.Description, DeletedMarker)
}

// ValidURL reports whether s is an absolute http(s) URL
func ValidURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// patchOps builds replace operations only for fields with usable values
func patchOps(u ProductUpdate) []patchOp {
	var ops []patchOp
	if d := strings.TrimSpace(u.Description); d != "" {
		ops = append(ops, patchOp{Op: "replace", Path: "/description", Value: truncate(d, descMaxLength)})
	}
	if c := strings.TrimSpace(u.Category); c != "" {
		ops = append(ops, patchOp{Op: "replace", Path: "/category", Value: c})
	}
	if ValidURL(u.ImageURL) {
		ops = append(ops, patchOp{Op: "replace", Path: "/image_url", Value: u.ImageURL})
	}
	if ValidURL(u.HomeURL) {
		ops = append(ops, patchOp{Op: "replace", Path: "/home_url", Value: u.HomeURL})
	}
	return ops
}

// CreateProduct creates p in the catalog and returns PayPal's representation
func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if p.Type == "" {
		p.Type = defaultType
	}
	if p.HomeURL == "" {
		p.HomeURL = c.homeURL
	}
	// PayPal rejects the whole request on a malformed URL
	if !ValidURL(p.ImageURL) {
		p.ImageURL = ""
	}
	if !ValidURL(p.HomeURL) {
		p.HomeURL = ""
	}
	p.Description = truncate(p.Description, descMaxLength)

	var out Product
	_, err := c.do(ctx, "create product", http.MethodPost, productsPath, p, &out, func(r *resty.Request) {
		r.SetHeader("PayPal-Request-Id", uuid.NewString())
		r.SetHeader("Prefer", "return=representation")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct fetches one product by id
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var out Product
	_, err := c.do(ctx, "get product", http.MethodGet, productPath, nil, &out, func(r *resty.Request) {
		r.SetPathParam("id", id)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts returns one page of the catalog. page starts at 1; size is capped at 20.
func (c *Client) ListProducts(ctx context.Context, page, size int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = maxPageSize
	}
	var out ProductPage
	_, err := c.do(ctx, "list products", http.MethodGet, productsPath, nil, &out, func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"page":           strconv.Itoa(page),
			"page_size":      strconv.Itoa(size),
			"total_required": "true",
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAllProducts walks every page and returns the products that are not soft-deleted
func (c *Client) ListAllProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	for page := 1; page <= maxListPages; page++ {
		res, err := c.ListProducts(ctx, page, maxPageSize)
		if err != nil {
			return nil, err
		}
		for _, p := range res.Products {
			if !IsDeleted(p) {
				all = append(all, p)
			}
		}
		if len(res.Products) == 0 || page >= res.TotalPages {
			break
		}
	}
	return all, nil
}

// UpdateProduct patches the fields of u that carry valid values
func (c *Client) UpdateProduct(ctx context.Context, id string, u ProductUpdate) error {
	ops := patchOps(u)
	if len(ops) == 0 {
		return ErrNothingToUpdate
	}
	_, err := c.do(ctx, "update product", http.MethodPatch, productPath, ops, nil, func(r *resty.Request) {
		r.SetPathParam("id", id)
	})
	return err
}

// SoftDeleteProduct flags a product as deleted by prefixing its description
func (c *Client) SoftDeleteProduct(ctx context.Context, id string) error {
	p, err := c.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if IsDeleted(*p) {
		return nil
	}
	desc := strings.TrimSpace(DeletedMarker + " " + p.Description)
	if p.Description == "" {
		desc = DeletedMarker + " " + p.Name
	}
	return c.UpdateProduct(ctx, id, ProductUpdate{Description: desc})
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
