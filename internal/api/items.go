package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // Content type checks

	"miracle_store/internal/catalog" // Catalog reconciliation
	"miracle_store/internal/upload"  // Image storage

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
)

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// ListItemsHandler returns the public catalog
func ListItemsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.ListItems(c.Request.Context(), false)
		if err != nil {
			respondError(c, err, "Failed to fetch items")
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// GetItemHandler returns one available item
func GetItemHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		item, err := svc.GetItem(c.Request.Context(), id, false)
		if err != nil {
			respondError(c, err, "Failed to fetch item")
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": item})
	}
}

// AdminItemsHandler returns local items and PayPal products side by side
func AdminItemsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ov, err := svc.Overview(c.Request.Context())
		if err != nil {
			respondError(c, err, "Failed to fetch items")
			return
		}
		c.JSON(http.StatusOK, ov)
	}
}

// itemForm reads item fields from a multipart form. Absent fields stay nil.
func itemForm(c *gin.Context) (catalog.ItemInput, error) {
	var in catalog.ItemInput
	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return in, catalog.ErrInvalidItem
		}
		in.Price = &d
	}
	if v, ok := c.GetPostForm("quantity"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return in, catalog.ErrInvalidItem
		}
		in.Quantity = &n
	}
	if v, ok := c.GetPostForm("image_url"); ok {
		in.ImageURL = &v
	}
	if v, ok := c.GetPostForm("available"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, catalog.ErrInvalidItem
		}
		in.Available = &b
	}
	return in, nil
}

// bindItem accepts either JSON or a multipart form with an optional "image" file
func bindItem(c *gin.Context, store upload.Store) (catalog.ItemInput, bool) {
	var in catalog.ItemInput
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return in, false
		}
		return in, true
	}
	in, err := itemForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return in, false
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return in, true // No image attached
	}
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return in, false
	}
	url, err := upload.SaveImage(c.Request.Context(), store, fh)
	if err != nil {
		respondError(c, err, "Failed to store image")
		return in, false
	}
	in.ImageURL = &url
	return in, true
}

// CreateItemHandler stores the uploaded image, inserts the item and mirrors it to PayPal best-effort
func CreateItemHandler(svc *catalog.Service, store upload.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindItem(c, store)
		if !ok {
			return
		}
		item, err := svc.CreateItem(c.Request.Context(), in)
		if err != nil {
			respondError(c, err, "Failed to create item")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"item": item, "synced": item.HasMirror()})
	}
}

// UpdateItemHandler patches an item and its mirror
func UpdateItemHandler(svc *catalog.Service, store upload.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		in, ok := bindItem(c, store)
		if !ok {
			return
		}
		item, err := svc.UpdateItem(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, err, "Failed to update item")
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": item})
	}
}

// DeleteItemHandler hides mirrored items and removes local-only ones
func DeleteItemHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		soft, err := svc.DeleteItem(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, "Failed to delete item")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item deleted", "soft_deleted": soft})
	}
}

// SyncItemsHandler runs a full catalog reconciliation
func SyncItemsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.Sync(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
