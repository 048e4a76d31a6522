package domain

// Product is the catalog read model consumed by the cart and checkout. The
// catalog itself is maintained elsewhere; this core only reads prices and
// active flags.
type Product struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	DiscountPrice  int64  `json:"discount_price"` // 0 = not on sale
	IsActive       bool   `json:"is_active"`
	CategoryActive bool   `json:"category_active"`
}

// EffectivePrice returns the discounted price when on sale, else the list
// price.
func (p *Product) EffectivePrice() int64 {
	if p.DiscountPrice > 0 && p.DiscountPrice < p.Price {
		return p.DiscountPrice
	}
	return p.Price
}

// IsPurchasable reports whether the product and its category are both active.
func (p *Product) IsPurchasable() bool {
	return p.IsActive && p.CategoryActive
}
