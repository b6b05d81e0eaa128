package domain

import (
	"io"
	"strconv"
)

type Product struct {
	ID          int64   `json:"id"`
	ProductName string  `json:"productName"`
	SKU         string  `json:"sku"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Active      bool    `json:"active"`
}

// Key is the string form of the id used by order selections and quantities.
func (p Product) Key() string {
	return strconv.FormatInt(p.ID, 10)
}

// ProductDraft is the validated input of the product create and edit forms.
// Active defaults to true when omitted.
type ProductDraft struct {
	ProductName string  `json:"productName" validate:"required"`
	SKU         string  `json:"sku" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Price       float64 `json:"price" validate:"gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty" validate:"omitempty,url"`
	Active      *bool   `json:"active,omitempty"`
}

type ProductSortKey string

const (
	SortNone  ProductSortKey = ""
	SortName  ProductSortKey = "name"
	SortPrice ProductSortKey = "price"
)

// ProductFilter holds the optional list predicates; nil/empty means no filter.
type ProductFilter struct {
	Category string
	Active   *bool
	MaxPrice *float64
}

type ProductSort struct {
	Key  ProductSortKey
	Desc bool
}

type ProductPage struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	Total      int       `json:"total"`
}

// ImageUpload is an image file attached to a product form.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}
