package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "Pending"
	DeliveryStatusShipped   DeliveryStatus = "Shipped"
	DeliveryStatusDelivered DeliveryStatus = "Delivered"
	DeliveryStatusCanceled  DeliveryStatus = "Canceled"
)

const OrderIDPrefix = "ORD-"

// Order is the persisted order record. TotalAmount is computed at save time
// and is not kept in sync with later catalog price changes.
type Order struct {
	ID               string         `json:"id"`
	ClientName       string         `json:"clientName"`
	DeliveryAddress  string         `json:"deliveryAddress"`
	SelectedProducts []string       `json:"selectedProducts"`
	Quantities       map[string]int `json:"quantities"`
	PaymentStatus    PaymentStatus  `json:"paymentStatus"`
	DeliveryStatus   DeliveryStatus `json:"deliveryStatus"`
	ExpectedDelivery string         `json:"expectedDelivery"`
	TotalAmount      float64        `json:"totalAmount"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// OrderDraft is the input for creating an order or quoting one.
type OrderDraft struct {
	ClientName       string         `json:"clientName" validate:"required"`
	DeliveryAddress  string         `json:"deliveryAddress" validate:"required"`
	SelectedProducts []string       `json:"selectedProducts" validate:"min=1,dive,required"`
	Quantities       map[string]int `json:"quantities" validate:"dive,gte=1"`
	PaymentStatus    PaymentStatus  `json:"paymentStatus" validate:"required,oneof=Paid Pending Refunded"`
	DeliveryStatus   DeliveryStatus `json:"deliveryStatus" validate:"required,oneof=Pending Shipped Delivered Canceled"`
	ExpectedDelivery string         `json:"expectedDelivery" validate:"required,datetime=2006-01-02"`
}

// OrderPatch carries the recognized optional fields of an order edit. Nil
// fields are left untouched. Quantities hold raw values and are normalized
// before the merge is persisted.
type OrderPatch struct {
	ClientName       *string         `json:"clientName,omitempty" validate:"omitempty,min=1"`
	DeliveryAddress  *string         `json:"deliveryAddress,omitempty" validate:"omitempty,min=1"`
	SelectedProducts []string        `json:"selectedProducts,omitempty" validate:"omitempty,min=1,dive,required"`
	Quantities       map[string]any  `json:"quantities,omitempty"`
	PaymentStatus    *PaymentStatus  `json:"paymentStatus,omitempty" validate:"omitempty,oneof=Paid Pending Refunded"`
	DeliveryStatus   *DeliveryStatus `json:"deliveryStatus,omitempty" validate:"omitempty,oneof=Pending Shipped Delivered Canceled"`
	ExpectedDelivery *string         `json:"expectedDelivery,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// LineItem is one row of an order breakdown.
type LineItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"lineTotal"`
	Missing     bool    `json:"missing,omitempty"`
}

// QuoteRequest is an unsaved selection priced for preview. Quantities are raw
// form values.
type QuoteRequest struct {
	SelectedProducts []string       `json:"selectedProducts"`
	Quantities       map[string]any `json:"quantities"`
}

type Quote struct {
	Lines []LineItem `json:"lines"`
	Total float64    `json:"total"`
}

// Repricing compares a stored order total with the total under current prices.
type Repricing struct {
	OrderID     string     `json:"orderId"`
	Lines       []LineItem `json:"lines"`
	StoredTotal float64    `json:"storedTotal"`
	LiveTotal   float64    `json:"liveTotal"`
	Stale       bool       `json:"stale"`
}

type OrderPage struct {
	Orders     []Order `json:"orders"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
	Total      int     `json:"total"`
}
