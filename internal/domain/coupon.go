package domain

import "time"

// Coupon discount type constants.
const (
	DiscountTypePercent     = "percent"
	DiscountTypeFixed       = "fixed"
	DiscountTypeShipPercent = "ship_percent"
	DiscountTypeShipFixed   = "ship_fixed"
)

// Coupon is a durable discount code. All monetary fields are VND.
type Coupon struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discount_type"`
	Value         int64     `json:"value"`
	MinOrderValue int64     `json:"min_order_value"`
	MaxDiscount   int64     `json:"max_discount"` // 0 = unbounded
	ValidFrom     time.Time `json:"valid_from"`
	ValidTo       time.Time `json:"valid_to"`
	IsActive      bool      `json:"is_active"`
	MaxUses       int       `json:"max_uses"`
	UsedCount     int       `json:"used_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidDiscountTypes returns the set of valid discount types.
func ValidDiscountTypes() []string {
	return []string{
		DiscountTypePercent,
		DiscountTypeFixed,
		DiscountTypeShipPercent,
		DiscountTypeShipFixed,
	}
}

// IsValidDiscountType checks whether t is a known discount type.
func IsValidDiscountType(t string) bool {
	for _, v := range ValidDiscountTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// IsValid reports whether the coupon can currently be redeemed: active,
// inside its time window, and under its usage cap. Applicability (the
// minimum-order gate) is a separate check performed by CalculateDiscount.
func (c *Coupon) IsValid(now time.Time) bool {
	return c.IsActive &&
		!now.Before(c.ValidFrom) &&
		!now.After(c.ValidTo) &&
		c.UsedCount < c.MaxUses
}

// CalculateDiscount returns the discount amount for the given order subtotal
// and shipping fee. A subtotal below MinOrderValue yields zero; the caller
// must distinguish that from an invalid coupon. Validity is checked by the
// caller before calling this.
func (c *Coupon) CalculateDiscount(subtotal, shippingFee int64) int64 {
	if subtotal < c.MinOrderValue {
		return 0
	}

	var discount int64
	switch c.DiscountType {
	case DiscountTypePercent:
		discount = subtotal * c.Value / 100
		if c.MaxDiscount > 0 && discount > c.MaxDiscount {
			discount = c.MaxDiscount
		}
	case DiscountTypeFixed:
		discount = c.Value
	case DiscountTypeShipPercent:
		discount = shippingFee * c.Value / 100
		if c.MaxDiscount > 0 && discount > c.MaxDiscount {
			discount = c.MaxDiscount
		}
	case DiscountTypeShipFixed:
		discount = c.Value
		if discount > shippingFee {
			discount = shippingFee
		}
	}
	return discount
}
