package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *HTTPHandler) listProducts(c *gin.Context) {
	filter, order, err := parseProductQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	page, pageSize, err := parsePaging(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	result, err := h.catalog.List(c.Request.Context(), filter, order, page, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", result)
}

func (h *HTTPHandler) createProduct(c *gin.Context) {
	draft, image, closeImage, err := h.readProductForm(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer closeImage()

	product, err := h.catalog.Create(c.Request.Context(), draft, image)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusCreated, "product created", product)
}

func (h *HTTPHandler) updateProduct(c *gin.Context) {
	id, err := productID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	draft, image, closeImage, err := h.readProductForm(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer closeImage()

	product, err := h.catalog.Update(c.Request.Context(), id, draft, image)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "product updated", product)
}

func (h *HTTPHandler) getProduct(c *gin.Context) {
	id, err := productID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	product, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", product)
}

func (h *HTTPHandler) deleteProduct(c *gin.Context) {
	id, err := productID(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "product deleted", nil)
}

func (h *HTTPHandler) bulkDeleteProducts(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, badRequest("ids", "expected a list of product ids"))
		return
	}
	if len(req.IDs) == 0 {
		writeError(c, h.logger, badRequest("ids", "select at least one product"))
		return
	}

	removed, err := h.catalog.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "products deleted", gin.H{"removed": removed})
}

func (h *HTTPHandler) categories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeOK(c, http.StatusOK, "", categories)
}

// feedProducts serves the bare product array, without the envelope.
func (h *HTTPHandler) feedProducts(c *gin.Context) {
	products, err := h.catalog.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// appendFeedProduct appends one product with a server assigned id.
func (h *HTTPHandler) appendFeedProduct(c *gin.Context) {
	var draft domain.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		writeError(c, h.logger, badRequest("body", "invalid request body"))
		return
	}
	product, err := h.catalog.Create(c.Request.Context(), draft, nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// readProductForm accepts either a JSON body or a multipart form with an
// optional "image" file. The returned func closes the file.
func (h *HTTPHandler) readProductForm(c *gin.Context) (domain.ProductDraft, *domain.ImageUpload, func(), error) {
	noop := func() {}
	var draft domain.ProductDraft

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&draft); err != nil {
			return draft, nil, noop, bodyError(err, badRequest("body", "invalid request body"))
		}
		return draft, nil, noop, nil
	}
	if _, err := c.MultipartForm(); err != nil {
		return draft, nil, noop, bodyError(err, badRequest("body", "invalid multipart form"))
	}

	verr := &domain.ValidationError{Fields: map[string]string{}}
	draft.ProductName = strings.TrimSpace(c.PostForm("productName"))
	draft.SKU = strings.TrimSpace(c.PostForm("sku"))
	draft.Category = strings.TrimSpace(c.PostForm("category"))
	draft.Description = c.PostForm("description")
	draft.Image = strings.TrimSpace(c.PostForm("image"))

	if v := c.PostForm("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			verr.Fields["price"] = "must be a number"
		}
		draft.Price = price
	}
	if v := c.PostForm("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			verr.Fields["stock"] = "must be a whole number"
		}
		draft.Stock = stock
	}
	if v := c.PostForm("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			verr.Fields["active"] = "must be true or false"
		}
		draft.Active = &active
	}
	if len(verr.Fields) > 0 {
		return draft, nil, noop, verr
	}

	header, err := c.FormFile("image")
	if err != nil {
		// no file part: keep whatever image URL the form carried
		return draft, nil, noop, nil
	}
	file, err := header.Open()
	if err != nil {
		return draft, nil, noop, badRequest("image", "unreadable image file")
	}
	image := &domain.ImageUpload{Filename: header.Filename, Content: file}
	return draft, image, func() { file.Close() }, nil
}

func parseProductQuery(c *gin.Context) (domain.ProductFilter, domain.ProductSort, error) {
	var (
		filter domain.ProductFilter
		order  domain.ProductSort
	)
	filter.Category = c.Query("category")

	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filter, order, badRequest("active", "must be true or false")
		}
		filter.Active = &active
	}
	if v := c.Query("maxPrice"); v != "" {
		maxPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, order, badRequest("maxPrice", "must be a number")
		}
		filter.MaxPrice = &maxPrice
	}

	switch key := domain.ProductSortKey(c.Query("sort")); key {
	case domain.SortNone, domain.SortName, domain.SortPrice:
		order.Key = key
	default:
		return filter, order, badRequest("sort", "must be name or price")
	}
	switch c.DefaultQuery("order", "asc") {
	case "asc":
	case "desc":
		order.Desc = true
	default:
		return filter, order, badRequest("order", "must be asc or desc")
	}

	return filter, order, nil
}

func parsePaging(c *gin.Context) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 0, 0, badRequest("page", "must be a whole number")
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "0"))
	if err != nil {
		return 0, 0, badRequest("pageSize", "must be a whole number")
	}
	return page, pageSize, nil
}

func productID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, badRequest("id", "must be a numeric product id")
	}
	return id, nil
}
