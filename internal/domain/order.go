package domain

import (
	"fmt"
	"time"
)

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipping  = "shipping"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
)

// DefaultShippingFee is the flat per-order shipping fee in VND, applied
// unless overridden per order.
const DefaultShippingFee = 30000

// Order is a customer order. Monetary amounts are VND; the total is computed
// once at creation and never recomputed.
type Order struct {
	ID             string      `json:"id"`
	OrderCode      int64       `json:"order_code"` // numeric code visible to the payment gateway
	OrderNumber    string      `json:"order_number"`
	UserID         string      `json:"user_id"`
	Status         string      `json:"status"`
	Items          []OrderItem `json:"items"`
	Subtotal       int64       `json:"subtotal"`
	DiscountAmount int64       `json:"discount_amount"`
	ShippingFee    int64       `json:"shipping_fee"`
	TotalAmount    int64       `json:"total_amount"`
	CouponCode     string      `json:"coupon_code,omitempty"`
	ShippingInfo   ShippingInfo `json:"shipping_info"`
	PaymentMethod  string      `json:"payment_method"`
	Notes          string      `json:"notes,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderItem is one product line frozen at checkout time. UnitPrice comes
// from the cart line snapshot, not the live catalog.
type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// LineTotal returns quantity times the snapshot price.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// ShippingInfo is the address snapshot stored on the order.
type ShippingInfo struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	Ward        string `json:"ward"`
	District    string `json:"district"`
	City        string `json:"city"`
}

// NewOrderNumber generates an order number from the creation timestamp,
// with microsecond precision to keep concurrent checkouts distinct.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%s%06d", now.UTC().Format("20060102150405"), now.Nanosecond()/1000)
}

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusShipping,
		OrderStatusDelivered,
		OrderStatusCanceled,
	}
}

// AllowedOrderTransitions defines the valid status transitions. Confirmed and
// canceled are never re-opened; delivered and canceled are terminal.
func AllowedOrderTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCanceled},
		OrderStatusConfirmed: {OrderStatusShipping},
		OrderStatusShipping:  {OrderStatusDelivered},
		OrderStatusDelivered: {},
		OrderStatusCanceled:  {},
	}
}

// CanTransitionTo checks whether the order may move to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedOrderTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition can occur.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCanceled
}
